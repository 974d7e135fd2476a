package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaraisMark/NotetakingMark/internal/models"
	"github.com/MaraisMark/NotetakingMark/internal/store"
	"github.com/MaraisMark/NotetakingMark/internal/store/sqlitestore"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	ctx := context.Background()
	st, err := sqlitestore.Open(ctx, sqlitestore.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(ctx) })

	srv := NewServer(st, Options{
		Mode:   "test",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return srv, st
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func requireRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(t, location, w.Header().Get("Location"))
}

func itemNames(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func defaultNames() []string {
	return itemNames(models.DefaultItems())
}

func TestGetHome_SeedsEmptyStore(t *testing.T) {
	srv, st := newTestServer(t)

	w := get(t, srv, "/")
	requireRedirect(t, w, "/")

	items, err := st.ListItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultNames(), itemNames(items))

	w = get(t, srv, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<h1>Today</h1>")
	assert.Contains(t, body, "Welcome to your note taking app!")
	for _, it := range items {
		assert.Contains(t, body, `value="`+it.ID+`"`)
	}

	// A second visit must not seed again.
	get(t, srv, "/")
	items, err = st.ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestGetHome_DoesNotReseedNonEmpty(t *testing.T) {
	srv, st := newTestServer(t)
	_, err := st.AddItem(context.Background(), "Buy bread")
	require.NoError(t, err)

	w := get(t, srv, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Buy bread")
	assert.NotContains(t, w.Body.String(), "Welcome to your note taking app!")
}

func TestPostItem_Today(t *testing.T) {
	srv, st := newTestServer(t)
	get(t, srv, "/")

	w := postForm(t, srv, "/", url.Values{"newItem": {"X"}, "list": {"Today"}})
	requireRedirect(t, w, "/")

	w = get(t, srv, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<p>X</p>")

	items, err := st.ListItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, append(defaultNames(), "X"), itemNames(items))
}

func TestPostItem_EmptyListNameUsesDefault(t *testing.T) {
	srv, st := newTestServer(t)

	w := postForm(t, srv, "/", url.Values{"newItem": {"orphan"}})
	requireRedirect(t, w, "/")

	items, err := st.ListItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan"}, itemNames(items))
}

func TestPostItem_ExistingList(t *testing.T) {
	srv, st := newTestServer(t)
	requireRedirect(t, get(t, srv, "/Groceries"), "/Groceries")

	w := postForm(t, srv, "/", url.Values{"newItem": {"Milk"}, "list": {"Groceries"}})
	requireRedirect(t, w, "/Groceries")

	w = get(t, srv, "/Groceries")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Groceries</h1>")
	assert.Contains(t, w.Body.String(), "<p>Milk</p>")

	list, err := st.GetList(context.Background(), "Groceries")
	require.NoError(t, err)
	assert.Equal(t, append(defaultNames(), "Milk"), itemNames(list.Items))

	standalone, err := st.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, standalone)
}

func TestPostItem_MissingListIsCreated(t *testing.T) {
	srv, st := newTestServer(t)

	w := postForm(t, srv, "/", url.Values{"newItem": {"Milk"}, "list": {"Groceries"}})
	requireRedirect(t, w, "/Groceries")

	list, err := st.GetList(context.Background(), "Groceries")
	require.NoError(t, err)
	assert.Equal(t, append(defaultNames(), "Milk"), itemNames(list.Items))
}

func TestPostItem_EscapesListPath(t *testing.T) {
	srv, st := newTestServer(t)

	w := postForm(t, srv, "/", url.Values{"newItem": {"Paint"}, "list": {"Home Projects"}})
	requireRedirect(t, w, "/Home%20Projects")

	w = get(t, srv, "/Home%20Projects")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<p>Paint</p>")

	_, err := st.GetList(context.Background(), "Home Projects")
	require.NoError(t, err)
}

func TestPostDelete_Standalone(t *testing.T) {
	srv, st := newTestServer(t)
	get(t, srv, "/")
	before, err := st.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, before, 3)

	w := postForm(t, srv, "/delete", url.Values{"checkbox": {before[1].ID}, "listName": {"Today"}})
	requireRedirect(t, w, "/")

	after, err := st.ListItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Item{before[0], before[2]}, after)

	w = get(t, srv, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), before[1].ID)
}

func TestPostDelete_WithoutListName(t *testing.T) {
	srv, st := newTestServer(t)
	it, err := st.AddItem(context.Background(), "x")
	require.NoError(t, err)

	w := postForm(t, srv, "/delete", url.Values{"checkbox": {it.ID}})
	requireRedirect(t, w, "/")

	items, err := st.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPostDelete_ListItem(t *testing.T) {
	srv, st := newTestServer(t)
	get(t, srv, "/Work")
	list, err := st.GetList(context.Background(), "Work")
	require.NoError(t, err)

	w := postForm(t, srv, "/delete", url.Values{"checkbox": {list.Items[0].ID}, "listName": {"Work"}})
	requireRedirect(t, w, "/Work")

	got, err := st.GetList(context.Background(), "Work")
	require.NoError(t, err)
	assert.Equal(t, list.Items[1:], got.Items)
}

func TestPostDelete_UnknownIDStillRedirects(t *testing.T) {
	srv, st := newTestServer(t)
	get(t, srv, "/")

	w := postForm(t, srv, "/delete", url.Values{"checkbox": {"does-not-exist"}})
	requireRedirect(t, w, "/")

	items, err := st.ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestGetCustomList_CreatesThenRenders(t *testing.T) {
	srv, st := newTestServer(t)

	requireRedirect(t, get(t, srv, "/Work"), "/Work")

	first := get(t, srv, "/Work")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "<h1>Work</h1>")
	assert.Contains(t, first.Body.String(), `name="list" value="Work"`)

	second := get(t, srv, "/Work")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	list, err := st.GetList(context.Background(), "Work")
	require.NoError(t, err)
	assert.Equal(t, defaultNames(), itemNames(list.Items))
}

func TestGetCustomList_NamesDoNotAlias(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	for _, p := range []string{"/work", "/Work", "/Work%20"} {
		get(t, srv, p)
	}
	postForm(t, srv, "/", url.Values{"newItem": {"only lower"}, "list": {"work"}})
	postForm(t, srv, "/", url.Values{"newItem": {"only today"}, "list": {"Today"}})

	lower, err := st.GetList(ctx, "work")
	require.NoError(t, err)
	upper, err := st.GetList(ctx, "Work")
	require.NoError(t, err)
	spaced, err := st.GetList(ctx, "Work ")
	require.NoError(t, err)

	assert.Equal(t, append(defaultNames(), "only lower"), itemNames(lower.Items))
	assert.Equal(t, defaultNames(), itemNames(upper.Items))
	assert.Equal(t, defaultNames(), itemNames(spaced.Items))

	standalone, err := st.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"only today"}, itemNames(standalone))
}

func TestGetAbout(t *testing.T) {
	srv, st := newTestServer(t)

	w := get(t, srv, "/about")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>About</h1>")

	_, err := st.GetList(context.Background(), "about")
	assert.ErrorIs(t, err, store.ErrListNotFound)
}

func TestFavicon(t *testing.T) {
	srv, st := newTestServer(t)

	w := get(t, srv, "/favicon.ico")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := st.GetList(context.Background(), "favicon.ico")
	assert.ErrorIs(t, err, store.ErrListNotFound)
}

func TestGetHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	w := get(t, srv, "/about")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestListPath(t *testing.T) {
	tests := map[string]string{
		"":            "/",
		"Today":       "/",
		"Work":        "/Work",
		"Home Office": "/Home%20Office",
		"a/b":         "/a%2Fb",
	}
	for name, want := range tests {
		assert.Equal(t, want, listPath(name), "list %q", name)
	}
}

// downStore fails every call.
type downStore struct {
	store.Store
	pings int
}

func (d *downStore) Ping(context.Context) error {
	d.pings++
	return errors.New("connection refused")
}

func TestStoreMiddleware_Unreachable(t *testing.T) {
	prev := pingBackoff
	pingBackoff = time.Millisecond
	t.Cleanup(func() { pingBackoff = prev })

	down := &downStore{}
	srv := NewServer(down, Options{
		Mode:   "test",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	w := get(t, srv, "/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not reachable")
	assert.Equal(t, pingAttempts, down.pings)
}

// flakyStore fails its first pings and then delegates.
type flakyStore struct {
	store.Store
	failures int
	pings    int
}

func (f *flakyStore) Ping(ctx context.Context) error {
	f.pings++
	if f.pings <= f.failures {
		return errors.New("not yet")
	}
	return f.Store.Ping(ctx)
}

func TestStoreMiddleware_RetriesThenCaches(t *testing.T) {
	prev := pingBackoff
	pingBackoff = time.Millisecond
	t.Cleanup(func() { pingBackoff = prev })

	_, st := newTestServer(t)
	flaky := &flakyStore{Store: st, failures: 2}
	srv := NewServer(flaky, Options{
		Mode:   "test",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	w := get(t, srv, "/about")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, flaky.pings)

	get(t, srv, "/about")
	assert.Equal(t, 3, flaky.pings, "verified store is not pinged again")
}

// brokenReads fails list reads while the store stays reachable.
type brokenReads struct {
	store.Store
}

func (brokenReads) ListItems(context.Context) ([]models.Item, error) {
	return nil, errors.New("read timeout")
}

func (brokenReads) GetList(context.Context, string) (*models.List, error) {
	return nil, errors.New("read timeout")
}

func TestReadFailuresRenderError(t *testing.T) {
	_, st := newTestServer(t)
	srv := NewServer(brokenReads{Store: st}, Options{
		Mode:   "test",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	for _, p := range []string{"/", "/Work"} {
		w := get(t, srv, p)
		assert.Equal(t, http.StatusInternalServerError, w.Code, p)
		assert.Contains(t, w.Body.String(), "500 Internal Server Error", p)
	}
}
