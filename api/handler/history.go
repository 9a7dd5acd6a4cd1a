package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arclightning/arclight/history"
)

// LaunchLister reads recent launches.
type LaunchLister interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

type HistoryHandler struct {
	history LaunchLister
}

// NewHistoryHandler serves the launch history. A nil lister serves an empty
// list.
func NewHistoryHandler(l LaunchLister) *HistoryHandler {
	return &HistoryHandler{history: l}
}

// Recent handles GET /api/v1/history?limit=N.
func (h *HistoryHandler) Recent(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, []history.Entry{})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "history: list", err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}
