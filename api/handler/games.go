package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arclightning/arclight/catalog"
	"github.com/arclightning/arclight/history"
	"github.com/arclightning/arclight/launcher"
	"github.com/arclightning/arclight/metrics"
)

// GameLister exposes the client-safe view of the catalog.
type GameLister interface {
	Public() map[string]catalog.PublicGame
}

// GameStarter spawns a catalog game.
type GameStarter interface {
	Start(ctx context.Context, id string) (launcher.Launch, error)
}

// LaunchRecorder persists launch attempts.
type LaunchRecorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Broadcaster fans launch events out to connected clients.
type Broadcaster interface {
	Broadcast(ev Event)
}

type GamesHandler struct {
	games    GameLister
	launcher GameStarter
	history  LaunchRecorder
	events   Broadcaster
}

// NewGamesHandler wires the games endpoints. rec and events may be nil.
func NewGamesHandler(games GameLister, l GameStarter, rec LaunchRecorder, events Broadcaster) *GamesHandler {
	return &GamesHandler{games: games, launcher: l, history: rec, events: events}
}

// ListGames handles GET /api/v1/list_games.
func (h *GamesHandler) ListGames(c *gin.Context) {
	body, err := json.Marshal(h.games.Public())
	if err != nil {
		internalError(c, "list games: encode catalog", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

type startGameRequest struct {
	ID string `json:"id"`
}

// StartGame handles POST /api/v1/start_game. The game is spawned and the
// request returns without waiting for it.
func (h *GamesHandler) StartGame(c *gin.Context) {
	var req startGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		internalError(c, "start game: decode body", err)
		return
	}

	ctx := c.Request.Context()
	launch, err := h.launcher.Start(ctx, req.ID)
	result := launchResult(err)
	metrics.GameLaunches.WithLabelValues(result).Inc()
	h.record(ctx, req.ID, launch, result)
	if err != nil {
		internalError(c, "start game", err)
		return
	}

	if h.events != nil {
		h.events.Broadcast(Event{Type: EventGameStarted, ID: launch.ID, PID: launch.PID, At: launch.StartedAt})
	}
	c.JSON(http.StatusOK, "Starting game!")
}

// launchResult maps a Start error to the result code shared by the metrics
// and the history.
func launchResult(err error) string {
	switch {
	case err == nil:
		return history.ResultStarted
	case errors.Is(err, launcher.ErrGameNotFound):
		return history.ResultNotFound
	default:
		return history.ResultFailed
	}
}

// record writes the attempt to the history. Only the result code is stored,
// since the history is served to clients. Failures there never affect the
// response.
func (h *GamesHandler) record(ctx context.Context, id string, launch launcher.Launch, result string) {
	if h.history == nil {
		return
	}
	entry := history.Entry{GameID: id, PID: launch.PID, StartedAt: launch.StartedAt, Result: result}
	if _, err := h.history.Record(ctx, entry); err != nil {
		slog.WarnContext(ctx, "history: record launch", "id", id, "error", err)
	}
}
