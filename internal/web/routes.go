package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/MaraisMark/NotetakingMark/internal/models"
	"github.com/MaraisMark/NotetakingMark/internal/store"
)

// listPath is the URL of the named list.
func listPath(name string) string {
	if name == "" || models.IsDefaultList(name) {
		return "/"
	}
	return "/" + url.PathEscape(name)
}

func isDefault(listName string) bool {
	return listName == "" || models.IsDefaultList(listName)
}

// GetHome renders the default list, seeding it first when it is empty.
func GetHome(seed []models.Item) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := GetStore(c)
		if err != nil {
			failRequest(c, err)
			return
		}
		ctx := c.Request.Context()

		items, err := st.ListItems(ctx)
		if err != nil {
			failRequest(c, err)
			return
		}

		if len(items) == 0 && len(seed) > 0 {
			if _, err := st.SeedItems(ctx, seed); err != nil {
				failRequest(c, err)
				return
			}
			slog.Info("Successfully saved the default items to database", "count", len(seed))
			c.Redirect(http.StatusFound, "/")
			return
		}

		renderList(c, models.DefaultListTitle, items)
	}
}

// PostItem adds newItem to the list named by the list form field. A list that
// does not exist yet is created with the seed items first.
func PostItem(seed []models.Item) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := GetStore(c)
		if err != nil {
			failRequest(c, err)
			return
		}
		ctx := c.Request.Context()
		itemName := c.PostForm("newItem")
		listName := c.PostForm("list")

		if isDefault(listName) {
			if _, err := st.AddItem(ctx, itemName); err != nil {
				logFailure(c, "add item", err, "list", models.DefaultListTitle)
			}
			c.Redirect(http.StatusFound, "/")
			return
		}

		_, err = st.AppendListItem(ctx, listName, itemName)
		if errors.Is(err, store.ErrListNotFound) {
			slog.Info("creating list on first add", "list", listName)
			if _, err = st.CreateList(ctx, listName, seed); err == nil {
				_, err = st.AppendListItem(ctx, listName, itemName)
			}
		}
		if err != nil {
			logFailure(c, "append list item", err, "list", listName)
		}
		c.Redirect(http.StatusFound, listPath(listName))
	}
}

// PostDelete removes the checked item, from a named list when listName is set
// and otherwise from the default list.
func PostDelete(c *gin.Context) {
	st, err := GetStore(c)
	if err != nil {
		failRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	itemID := c.PostForm("checkbox")
	listName := c.PostForm("listName")

	if isDefault(listName) {
		err = st.DeleteItem(ctx, itemID)
	} else {
		err = st.RemoveListItem(ctx, listName, itemID)
	}

	switch {
	case err == nil:
		slog.Debug("deleted item", "id", itemID, "list", listName)
	case errors.Is(err, store.ErrItemNotFound), errors.Is(err, store.ErrListNotFound):
		slog.Warn("delete of unknown item", "id", itemID, "list", listName, "error", err)
	default:
		logFailure(c, "delete item", err, "id", itemID, "list", listName)
	}
	c.Redirect(http.StatusFound, listPath(listName))
}

// GetCustomList renders the list named by the path, creating it with the seed
// items on first visit.
func GetCustomList(seed []models.Item) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := GetStore(c)
		if err != nil {
			failRequest(c, err)
			return
		}
		ctx := c.Request.Context()
		name := c.Param("customListName")

		list, err := st.GetList(ctx, name)
		switch {
		case errors.Is(err, store.ErrListNotFound):
			if _, err := st.CreateList(ctx, name, seed); err != nil {
				failRequest(c, err)
				return
			}
			slog.Info("created list", "list", name)
			c.Redirect(http.StatusFound, "/"+url.PathEscape(name))
		case err != nil:
			failRequest(c, err)
		default:
			renderList(c, list.Name, list.Items)
		}
	}
}

func GetAbout(c *gin.Context) {
	c.HTML(http.StatusOK, "about.html", gin.H{"ListTitle": "About"})
}

// GetHealth pings the store on every call.
func GetHealth(c *gin.Context) {
	st, err := GetStore(c)
	if err == nil {
		err = st.Ping(c.Request.Context())
	}
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusServiceUnavailable, "unavailable")
		return
	}
	c.String(http.StatusOK, "ok")
}

func logFailure(c *gin.Context, op string, err error, attrs ...any) {
	_ = c.Error(err)
	slog.Error(op+" failed", append(attrs, "error", err)...)
}

func failRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	renderError(c, http.StatusInternalServerError, "Something went wrong while loading your list.")
}
