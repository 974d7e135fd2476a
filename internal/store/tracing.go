package store

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MaraisMark/NotetakingMark/internal/models"
)

const tracerName = "github.com/MaraisMark/NotetakingMark/internal/store"

type tracedStore struct {
	next   Store
	tracer trace.Tracer
	system string
}

// WithTracing wraps s so every gateway call runs in its own span. system names
// the backend (mongodb, postgresql, sqlite) and is recorded on each span.
func WithTracing(s Store, system string) Store {
	return &tracedStore{
		next:   s,
		tracer: otel.Tracer(tracerName),
		system: system,
	}
}

func (t *tracedStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", t.system))
	return t.tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// end records err on span. Not-found results are expected outcomes and are
// not marked as span errors.
func end(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrItemNotFound) && !errors.Is(err, ErrListNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *tracedStore) ListItems(ctx context.Context) ([]models.Item, error) {
	ctx, span := t.start(ctx, "ListItems")
	items, err := t.next.ListItems(ctx)
	span.SetAttributes(attribute.Int("todo.items", len(items)))
	end(span, err)
	return items, err
}

func (t *tracedStore) SeedItems(ctx context.Context, seed []models.Item) (bool, error) {
	ctx, span := t.start(ctx, "SeedItems", attribute.Int("todo.seed", len(seed)))
	seeded, err := t.next.SeedItems(ctx, seed)
	span.SetAttributes(attribute.Bool("todo.seeded", seeded))
	end(span, err)
	return seeded, err
}

func (t *tracedStore) AddItem(ctx context.Context, name string) (models.Item, error) {
	ctx, span := t.start(ctx, "AddItem")
	item, err := t.next.AddItem(ctx, name)
	end(span, err)
	return item, err
}

func (t *tracedStore) DeleteItem(ctx context.Context, id string) error {
	ctx, span := t.start(ctx, "DeleteItem", attribute.String("todo.item_id", id))
	err := t.next.DeleteItem(ctx, id)
	end(span, err)
	return err
}

func (t *tracedStore) GetList(ctx context.Context, name string) (*models.List, error) {
	ctx, span := t.start(ctx, "GetList", attribute.String("todo.list", name))
	list, err := t.next.GetList(ctx, name)
	end(span, err)
	return list, err
}

func (t *tracedStore) CreateList(ctx context.Context, name string, seed []models.Item) (*models.List, error) {
	ctx, span := t.start(ctx, "CreateList", attribute.String("todo.list", name))
	list, err := t.next.CreateList(ctx, name, seed)
	end(span, err)
	return list, err
}

func (t *tracedStore) AppendListItem(ctx context.Context, listName, itemName string) (models.Item, error) {
	ctx, span := t.start(ctx, "AppendListItem", attribute.String("todo.list", listName))
	item, err := t.next.AppendListItem(ctx, listName, itemName)
	end(span, err)
	return item, err
}

func (t *tracedStore) RemoveListItem(ctx context.Context, listName, itemID string) error {
	ctx, span := t.start(ctx, "RemoveListItem",
		attribute.String("todo.list", listName),
		attribute.String("todo.item_id", itemID),
	)
	err := t.next.RemoveListItem(ctx, listName, itemID)
	end(span, err)
	return err
}

func (t *tracedStore) Ping(ctx context.Context) error {
	ctx, span := t.start(ctx, "Ping")
	err := t.next.Ping(ctx)
	end(span, err)
	return err
}

func (t *tracedStore) Close(ctx context.Context) error {
	return t.next.Close(ctx)
}
