// Package storetest is a behavioural test suite shared by all store backends.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaraisMark/NotetakingMark/internal/models"
	"github.com/MaraisMark/NotetakingMark/internal/store"
)

// Factory returns an empty store. It should register its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"ListItemsEmpty", testListItemsEmpty},
		{"SeedItems", testSeedItems},
		{"SeedItemsSkipsNonEmpty", testSeedItemsSkipsNonEmpty},
		{"SeedItemsConcurrent", testSeedItemsConcurrent},
		{"AddItemKeepsOrder", testAddItemKeepsOrder},
		{"DeleteItem", testDeleteItem},
		{"DeleteItemNotFound", testDeleteItemNotFound},
		{"GetListNotFound", testGetListNotFound},
		{"CreateList", testCreateList},
		{"CreateListExisting", testCreateListExisting},
		{"ListNamesCaseSensitive", testListNamesCaseSensitive},
		{"AppendListItem", testAppendListItem},
		{"AppendListItemMissingList", testAppendListItemMissingList},
		{"RemoveListItem", testRemoveListItem},
		{"RemoveListItemErrors", testRemoveListItemErrors},
		{"ListsIndependent", testListsIndependent},
		{"Ping", testPing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func names(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func defaultNames() []string {
	return names(models.DefaultItems())
}

func testListItemsEmpty(t *testing.T, s store.Store) {
	items, err := s.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testSeedItems(t *testing.T, s store.Store) {
	ctx := context.Background()

	seeded, err := s.SeedItems(ctx, models.DefaultItems())
	require.NoError(t, err)
	assert.True(t, seeded)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultNames(), names(items))
	for i, it := range items {
		assert.Equal(t, store.SeedID(i), it.ID)
	}
}

func testSeedItemsSkipsNonEmpty(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.AddItem(ctx, "existing")
	require.NoError(t, err)

	seeded, err := s.SeedItems(ctx, models.DefaultItems())
	require.NoError(t, err)
	assert.False(t, seeded)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"existing"}, names(items))
}

func testSeedItemsConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SeedItems(ctx, models.DefaultItems())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultNames(), names(items))
}

func testAddItemKeepsOrder(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, n := range []string{"b", "a", "c"} {
		it, err := s.AddItem(ctx, n)
		require.NoError(t, err)
		assert.NotEmpty(t, it.ID)
		assert.Equal(t, n, it.Name)
	}

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, names(items))
}

func testDeleteItem(t *testing.T, s store.Store) {
	ctx := context.Background()

	keep, err := s.AddItem(ctx, "keep")
	require.NoError(t, err)
	drop, err := s.AddItem(ctx, "drop")
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(ctx, drop.ID))

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Item{keep}, items)
}

func testDeleteItemNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.AddItem(ctx, "x")
	require.NoError(t, err)

	for _, id := range []string{store.SeedID(40), "not-an-id", ""} {
		err := s.DeleteItem(ctx, id)
		assert.ErrorIs(t, err, store.ErrItemNotFound, "id %q", id)
	}
}

func testGetListNotFound(t *testing.T, s store.Store) {
	_, err := s.GetList(context.Background(), "Work")
	assert.ErrorIs(t, err, store.ErrListNotFound)
}

func testCreateList(t *testing.T, s store.Store) {
	ctx := context.Background()

	list, err := s.CreateList(ctx, "Work", models.DefaultItems())
	require.NoError(t, err)
	assert.Equal(t, "Work", list.Name)
	assert.Equal(t, defaultNames(), names(list.Items))
	for _, it := range list.Items {
		assert.NotEmpty(t, it.ID)
	}

	got, err := s.GetList(ctx, "Work")
	require.NoError(t, err)
	assert.Equal(t, list, got)

	standalone, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, standalone)
}

func testCreateListExisting(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.CreateList(ctx, "Work", models.DefaultItems())
	require.NoError(t, err)
	added, err := s.AppendListItem(ctx, "Work", "report")
	require.NoError(t, err)

	list, err := s.CreateList(ctx, "Work", []models.Item{{Name: "ignored"}})
	require.NoError(t, err)
	assert.Equal(t, append(defaultNames(), "report"), names(list.Items))
	assert.Equal(t, added, list.Items[len(list.Items)-1])
}

func testListNamesCaseSensitive(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.CreateList(ctx, "work", []models.Item{{Name: "lower"}})
	require.NoError(t, err)
	_, err = s.CreateList(ctx, "Work", []models.Item{{Name: "upper"}})
	require.NoError(t, err)
	_, err = s.CreateList(ctx, "Work ", []models.Item{{Name: "space"}})
	require.NoError(t, err)

	for name, want := range map[string]string{"work": "lower", "Work": "upper", "Work ": "space"} {
		list, err := s.GetList(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []string{want}, names(list.Items), "list %q", name)
	}
}

func testAppendListItem(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.CreateList(ctx, "Groceries", models.DefaultItems())
	require.NoError(t, err)

	milk, err := s.AppendListItem(ctx, "Groceries", "Milk")
	require.NoError(t, err)
	assert.NotEmpty(t, milk.ID)
	assert.Equal(t, "Milk", milk.Name)
	_, err = s.AppendListItem(ctx, "Groceries", "Eggs")
	require.NoError(t, err)

	list, err := s.GetList(ctx, "Groceries")
	require.NoError(t, err)
	assert.Equal(t, append(defaultNames(), "Milk", "Eggs"), names(list.Items))
	assert.Equal(t, milk, list.Items[3])
}

func testAppendListItemMissingList(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.AppendListItem(ctx, "Nope", "Milk")
	assert.ErrorIs(t, err, store.ErrListNotFound)

	_, err = s.GetList(ctx, "Nope")
	assert.ErrorIs(t, err, store.ErrListNotFound)
}

func testRemoveListItem(t *testing.T, s store.Store) {
	ctx := context.Background()

	list, err := s.CreateList(ctx, "Work", models.DefaultItems())
	require.NoError(t, err)

	require.NoError(t, s.RemoveListItem(ctx, "Work", list.Items[1].ID))

	got, err := s.GetList(ctx, "Work")
	require.NoError(t, err)
	assert.Equal(t, []models.Item{list.Items[0], list.Items[2]}, got.Items)
}

func testRemoveListItemErrors(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.RemoveListItem(ctx, "Missing", store.SeedID(0))
	assert.ErrorIs(t, err, store.ErrListNotFound)

	_, err = s.CreateList(ctx, "Work", models.DefaultItems())
	require.NoError(t, err)
	err = s.RemoveListItem(ctx, "Work", store.SeedID(40))
	assert.ErrorIs(t, err, store.ErrItemNotFound)

	list, err := s.GetList(ctx, "Work")
	require.NoError(t, err)
	assert.Len(t, list.Items, 3)
}

func testListsIndependent(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.SeedItems(ctx, models.DefaultItems())
	require.NoError(t, err)
	_, err = s.CreateList(ctx, "A", models.DefaultItems())
	require.NoError(t, err)
	_, err = s.CreateList(ctx, "B", models.DefaultItems())
	require.NoError(t, err)

	_, err = s.AppendListItem(ctx, "A", "only in A")
	require.NoError(t, err)
	a, err := s.GetList(ctx, "A")
	require.NoError(t, err)
	require.NoError(t, s.RemoveListItem(ctx, "A", a.Items[0].ID))

	b, err := s.GetList(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, defaultNames(), names(b.Items))

	standalone, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultNames(), names(standalone))

	for _, it := range a.Items {
		for _, other := range b.Items {
			assert.NotEqual(t, it.ID, other.ID)
		}
	}
}

func testPing(t *testing.T, s store.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}
