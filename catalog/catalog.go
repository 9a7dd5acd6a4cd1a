// Package catalog holds the set of installed games the panel can list and launch.
package catalog

import (
	"sort"
	"sync"

	"github.com/arbovm/levenshtein"
	validation "github.com/go-ozzo/ozzo-validation"
)

// maxSuggestDistance bounds how different an unknown id may be from a known one
// before Suggest gives up.
const maxSuggestDistance = 3

// Game is a single catalog entry. ExePath and ExeArgs are read from and written
// to the TOML configuration but never serialized to JSON.
type Game struct {
	Name          string   `toml:"name" json:"name"`
	Description   string   `toml:"description" json:"description"`
	Genres        []string `toml:"genres" json:"genres"`
	ThumbnailPath string   `toml:"thumbnail_path" json:"thumbnail_path"`
	ExePath       string   `toml:"exe_path" json:"-"`
	ExeArgs       []string `toml:"exe_args" json:"-"`
}

// Validate reports whether the entry has everything needed to be listed and launched.
func (g Game) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Name, validation.Required),
		validation.Field(&g.ExePath, validation.Required),
	)
}

// PublicGame is the client-facing projection of a Game.
type PublicGame struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Genres        []string `json:"genres"`
	ThumbnailPath string   `json:"thumbnail_path"`
}

// Public strips the executable fields.
func (g Game) Public() PublicGame {
	genres := make([]string, len(g.Genres))
	copy(genres, g.Genres)
	return PublicGame{
		Name:          g.Name,
		Description:   g.Description,
		Genres:        genres,
		ThumbnailPath: g.ThumbnailPath,
	}
}

// Catalog maps game ids to games. It is populated once at startup and is safe
// for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	games map[string]Game
}

// New returns a catalog holding a copy of games.
func New(games map[string]Game) *Catalog {
	c := &Catalog{games: make(map[string]Game, len(games))}
	for id, g := range games {
		c.games[id] = cloneGame(g)
	}
	return c
}

// Lookup returns the game registered under id.
func (c *Catalog) Lookup(id string) (Game, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.games[id]
	if !ok {
		return Game{}, false
	}
	return cloneGame(g), true
}

// List returns a copy of every entry, executable fields included.
func (c *Catalog) List() map[string]Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Game, len(c.games))
	for id, g := range c.games {
		out[id] = cloneGame(g)
	}
	return out
}

// Public returns the client-facing view of every entry, keyed by id.
func (c *Catalog) Public() map[string]PublicGame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]PublicGame, len(c.games))
	for id, g := range c.games {
		out[id] = g.Public()
	}
	return out
}

// IDs returns every game id in lexical order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.games))
	for id := range c.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of games.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.games)
}

// Suggest returns the known id closest to id, for operator-facing messages only.
// Ties resolve to the lexically smallest id.
func (c *Catalog) Suggest(id string) (string, bool) {
	best, bestDist := "", maxSuggestDistance+1
	for _, known := range c.IDs() {
		if d := levenshtein.Distance(id, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best, best != ""
}

func cloneGame(g Game) Game {
	g.Genres = append([]string(nil), g.Genres...)
	g.ExeArgs = append([]string(nil), g.ExeArgs...)
	return g
}
