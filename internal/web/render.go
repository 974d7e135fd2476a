package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MaraisMark/NotetakingMark/internal/models"
)

func renderList(c *gin.Context, title string, items []models.Item) {
	c.HTML(http.StatusOK, "list.html", gin.H{
		"ListTitle": title,
		"Items":     items,
	})
}

func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{
		"ListTitle":  "Error",
		"Status":     status,
		"StatusText": http.StatusText(status),
		"Message":    message,
	})
}
