// Package store defines the persistence gateway for items and lists.
//
// Backends live in sub-packages (mongostore, pgstore, sqlitestore). Each keeps
// two document collections: standalone items, and lists with embedded items.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MaraisMark/NotetakingMark/internal/models"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrListNotFound = errors.New("list not found")
)

// ItemStore covers the standalone item collection backing the default list.
type ItemStore interface {
	// ListItems returns all standalone items in natural store order.
	ListItems(ctx context.Context) ([]models.Item, error)

	// SeedItems inserts seed into the standalone collection if, and only if,
	// the collection is empty. Seeded items get SeedID IDs so concurrent
	// callers converge on a single copy. Reports whether anything was written.
	SeedItems(ctx context.Context, seed []models.Item) (bool, error)

	AddItem(ctx context.Context, name string) (models.Item, error)

	// DeleteItem returns ErrItemNotFound when no item has the given ID.
	DeleteItem(ctx context.Context, id string) error
}

// ListStore covers the named lists collection.
type ListStore interface {
	// GetList returns ErrListNotFound for an unknown name.
	GetList(ctx context.Context, name string) (*models.List, error)

	// CreateList creates the list seeded with copies of seed unless a list
	// with that name already exists, and returns the stored list either way.
	CreateList(ctx context.Context, name string, seed []models.Item) (*models.List, error)

	// AppendListItem appends a new item to the end of the list's items.
	AppendListItem(ctx context.Context, listName, itemName string) (models.Item, error)

	RemoveListItem(ctx context.Context, listName, itemID string) error
}

// Store is the full persistence gateway used by the web layer.
type Store interface {
	ItemStore
	ListStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// SeedID returns the deterministic ID of the i-th seeded standalone item.
// The value is a valid 12-byte hex object id so every backend can use it.
func SeedID(i int) string {
	return fmt.Sprintf("5eed%020x", i+1)
}
