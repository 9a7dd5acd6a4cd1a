package handler

import (
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"

	"github.com/arclightning/arclight/static"
)

const (
	// StartPage is served for the site root.
	StartPage = "start.html"
	// NotFoundPage is served, with status 404, for anything not in the static dir.
	NotFoundPage = "404.html"

	defaultStaticIndexTTL = 5 * time.Second
)

// fileSet holds slash-separated paths relative to the static root.
type fileSet map[string]struct{}

// StaticHandler serves files from the static directory. Only files that
// exist under the root at index time are reachable; everything else gets
// the 404 page.
type StaticHandler struct {
	root  string
	index *ttlcache.Cache[string, fileSet]
}

// NewStaticHandler indexes root lazily and re-walks it at most every few
// seconds. Call Close to stop the cache's eviction loop.
func NewStaticHandler(root string) *StaticHandler {
	h := &StaticHandler{root: root}
	loader := ttlcache.LoaderFunc[string, fileSet](
		func(cache *ttlcache.Cache[string, fileSet], key string) *ttlcache.Item[string, fileSet] {
			return cache.Set(key, walkStatic(key), ttlcache.DefaultTTL)
		},
	)
	h.index = ttlcache.New[string, fileSet](
		ttlcache.WithTTL[string, fileSet](defaultStaticIndexTTL),
		ttlcache.WithDisableTouchOnHit[string, fileSet](),
		ttlcache.WithLoader[string, fileSet](loader),
	)
	go h.index.Start()
	return h
}

// Close stops the index cache.
func (h *StaticHandler) Close() {
	h.index.Stop()
}

// walkStatic lists every regular file under root. An unreadable root yields
// an empty set, so every request gets the 404 page.
func walkStatic(root string) fileSet {
	files := make(fileSet)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		slog.Warn("static: index walk failed", "root", root, "error", err)
	}
	return files
}

func (h *StaticHandler) has(rel string) bool {
	item := h.index.Get(h.root)
	if item == nil {
		return false
	}
	_, ok := item.Value()[rel]
	return ok
}

// Serve handles GET requests for anything that is not an API endpoint.
func (h *StaticHandler) Serve(c *gin.Context) {
	rel := strings.TrimPrefix(path.Clean("/"+c.Request.URL.Path), "/")
	if rel == "" {
		rel = StartPage
	}
	if !h.has(rel) {
		h.NotFound(c)
		return
	}

	f, err := os.Open(filepath.Join(h.root, filepath.FromSlash(rel)))
	if err != nil {
		// Removed since the last index walk.
		h.NotFound(c)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		internalError(c, "static: stat", err)
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

// NotFound writes the static dir's 404 page with status 404, or the built-in
// one if the dir has none.
func (h *StaticHandler) NotFound(c *gin.Context) {
	data, err := os.ReadFile(filepath.Join(h.root, NotFoundPage))
	if err != nil {
		data = static.NotFoundHTML
	}
	c.Data(http.StatusNotFound, contentType(NotFoundPage, data), data)
}

// contentType prefers the extension and falls back to sniffing.
func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}
