package handler

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
)

const defaultSplashTTL = 30 * time.Second

// splashImage is a file in the splash dir whose content sniffs as an image.
type splashImage struct {
	path        string
	contentType string
}

// SplashHandler serves a random image from the splash directory.
type SplashHandler struct {
	dir    string
	images *ttlcache.Cache[string, []splashImage]
	pick   func(n int) int
}

// NewSplashHandler serves images from dir. An empty dir disables the
// endpoint (every request gets 404).
func NewSplashHandler(dir string) *SplashHandler {
	h := &SplashHandler{dir: dir, pick: rand.IntN}
	loader := ttlcache.LoaderFunc[string, []splashImage](
		func(cache *ttlcache.Cache[string, []splashImage], key string) *ttlcache.Item[string, []splashImage] {
			return cache.Set(key, scanSplash(key), ttlcache.DefaultTTL)
		},
	)
	h.images = ttlcache.New[string, []splashImage](
		ttlcache.WithTTL[string, []splashImage](defaultSplashTTL),
		ttlcache.WithDisableTouchOnHit[string, []splashImage](),
		ttlcache.WithLoader[string, []splashImage](loader),
	)
	go h.images.Start()
	return h
}

// Close stops the image list cache.
func (h *SplashHandler) Close() {
	h.images.Stop()
}

// scanSplash lists the images directly inside dir. Files are sniffed by
// content, so a misnamed extension does not matter.
func scanSplash(dir string) []splashImage {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("splash: read dir", "dir", dir, "error", err)
		return nil
	}
	var images []splashImage
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		mt, err := mimetype.DetectFile(p)
		if err != nil {
			continue
		}
		if strings.HasPrefix(mt.String(), "image/") {
			images = append(images, splashImage{path: p, contentType: mt.String()})
		}
	}
	return images
}

// Random handles GET /api/v1/splash.
func (h *SplashHandler) Random(c *gin.Context) {
	if h.dir == "" {
		c.Status(http.StatusNotFound)
		return
	}
	item := h.images.Get(h.dir)
	if item == nil || len(item.Value()) == 0 {
		c.Status(http.StatusNotFound)
		return
	}
	images := item.Value()
	img := images[h.pick(len(images))]

	f, err := os.Open(img.path)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		internalError(c, "splash: stat", err)
		return
	}
	c.Header("Content-Type", img.contentType)
	c.Header("Cache-Control", "no-store")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
