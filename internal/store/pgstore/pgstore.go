// Package pgstore implements store.Store on PostgreSQL. Lists are stored as
// documents: one row per list with the embedded items in a JSONB array.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MaraisMark/NotetakingMark/internal/models"
	"github.com/MaraisMark/NotetakingMark/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
    seq  BIGSERIAL,
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS items_seq_idx ON items (seq);

CREATE TABLE IF NOT EXISTS lists (
    name       TEXT PRIMARY KEY,
    items      JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects a pool to dsn and creates the tables if they do not exist.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := s.pool.Query(ctx, "select id, name from items order by seq")
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Item, error) {
		var it models.Item
		err := row.Scan(&it.ID, &it.Name)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	return items, nil
}

func (s *Store) SeedItems(ctx context.Context, seed []models.Item) (bool, error) {
	seeded := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var empty bool
		if err := tx.QueryRow(ctx, "select not exists (select 1 from items)").Scan(&empty); err != nil {
			return fmt.Errorf("count items: %w", err)
		}
		if !empty {
			return nil
		}

		batch := &pgx.Batch{}
		for i, it := range seed {
			batch.Queue("insert into items (id, name) values ($1, $2) on conflict (id) do nothing", store.SeedID(i), it.Name)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert seed items: %w", err)
		}
		seeded = len(seed) > 0
		return nil
	})
	return seeded, err
}

func (s *Store) AddItem(ctx context.Context, name string) (models.Item, error) {
	it := models.Item{ID: newID(), Name: name}
	if _, err := s.pool.Exec(ctx, "insert into items (id, name) values ($1, $2)", it.ID, it.Name); err != nil {
		return models.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return it, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, "delete from items where id = $1", id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

func (s *Store) GetList(ctx context.Context, name string) (*models.List, error) {
	return getList(ctx, s.pool, name, "")
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getList(ctx context.Context, q querier, name, suffix string) (*models.List, error) {
	list := &models.List{Name: name}
	err := q.QueryRow(ctx, "select items from lists where name = $1"+suffix, name).Scan(&list.Items)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query list: %w", err)
	}
	if list.Items == nil {
		list.Items = []models.Item{}
	}
	return list, nil
}

func (s *Store) CreateList(ctx context.Context, name string, seed []models.Item) (*models.List, error) {
	items := make([]models.Item, len(seed))
	for i, it := range seed {
		items[i] = models.Item{ID: newID(), Name: it.Name}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode list items: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		"insert into lists (name, items) values ($1, $2::jsonb) on conflict (name) do nothing",
		name, string(raw)); err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	return s.GetList(ctx, name)
}

func (s *Store) AppendListItem(ctx context.Context, listName, itemName string) (models.Item, error) {
	it := models.Item{ID: newID(), Name: itemName}
	result, err := s.pool.Exec(ctx,
		"update lists set items = items || jsonb_build_array(jsonb_build_object('id', $2::text, 'name', $3::text)) where name = $1",
		listName, it.ID, it.Name)
	if err != nil {
		return models.Item{}, fmt.Errorf("append list item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.Item{}, store.ErrListNotFound
	}
	return it, nil
}

func (s *Store) RemoveListItem(ctx context.Context, listName, itemID string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		list, err := getList(ctx, tx, listName, " for update")
		if err != nil {
			return err
		}

		kept := make([]models.Item, 0, len(list.Items))
		for _, it := range list.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		if len(kept) == len(list.Items) {
			return store.ErrItemNotFound
		}

		raw, err := json.Marshal(kept)
		if err != nil {
			return fmt.Errorf("encode list items: %w", err)
		}
		if _, err := tx.Exec(ctx, "update lists set items = $2::jsonb where name = $1", listName, string(raw)); err != nil {
			return fmt.Errorf("update list: %w", err)
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

// reset empties both tables. Used by tests against a shared database.
func (s *Store) reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "truncate items, lists restart identity")
	return err
}
