// Package sqlitestore implements store.Store on an embedded SQLite database.
// Lists are kept as one row per list with the embedded items serialized as a
// JSON array, mirroring the document layout of the other backends.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MaraisMark/NotetakingMark/internal/models"
	"github.com/MaraisMark/NotetakingMark/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps :memory: a single database.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			slog.Error("Failed to apply pragma", "pragma", pragma, "error", err)
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing db", "error", closeErr)
			}
			return nil, err
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM items ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Name); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) SeedItems(ctx context.Context, seed []models.Item) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		return false, fmt.Errorf("count items: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	for i, it := range seed {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO items (id, name) VALUES (?, ?)", store.SeedID(i), it.Name); err != nil {
			return false, fmt.Errorf("insert seed item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	return len(seed) > 0, nil
}

func (s *Store) AddItem(ctx context.Context, name string) (models.Item, error) {
	it := models.Item{ID: newID(), Name: name}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO items (id, name) VALUES (?, ?)", it.ID, it.Name); err != nil {
		return models.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return it, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

func (s *Store) GetList(ctx context.Context, name string) (*models.List, error) {
	return getList(ctx, s.db, name)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getList(ctx context.Context, q queryer, name string) (*models.List, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT items FROM lists WHERE name = ?", name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query list: %w", err)
	}

	list := &models.List{Name: name, Items: []models.Item{}}
	if err := json.Unmarshal([]byte(raw), &list.Items); err != nil {
		return nil, fmt.Errorf("decode list items: %w", err)
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

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO lists (name, items, created_at) VALUES (?, ?, ?)",
		name, string(raw), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	return s.GetList(ctx, name)
}

// updateList loads the list inside a transaction, applies fn to its items and
// writes the result back.
func (s *Store) updateList(ctx context.Context, name string, fn func([]models.Item) ([]models.Item, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin list update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	list, err := getList(ctx, tx, name)
	if err != nil {
		return err
	}
	items, err := fn(list.Items)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode list items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE lists SET items = ? WHERE name = ?", string(raw), name); err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	return tx.Commit()
}

func (s *Store) AppendListItem(ctx context.Context, listName, itemName string) (models.Item, error) {
	it := models.Item{ID: newID(), Name: itemName}
	err := s.updateList(ctx, listName, func(items []models.Item) ([]models.Item, error) {
		return append(items, it), nil
	})
	if err != nil {
		return models.Item{}, err
	}
	return it, nil
}

func (s *Store) RemoveListItem(ctx context.Context, listName, itemID string) error {
	return s.updateList(ctx, listName, func(items []models.Item) ([]models.Item, error) {
		for i, it := range items {
			if it.ID == itemID {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, store.ErrItemNotFound
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
