package transport

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"

	"github.com/WahaajTauqir/hallal-classifier/internal/logger"
)

const staticCacheTTL = 10 * time.Minute

// assetCache is a read-through cache in front of the static asset directory.
// Entries expire so a redeployed asset directory is picked up without a
// restart.
type assetCache struct {
	dir   string
	blobs *cache.Cache
}

func newAssetCache(dir string) *assetCache {
	return &assetCache{
		dir:   dir,
		blobs: cache.New(staticCacheTTL, staticCacheTTL),
	}
}

func (a *assetCache) get(name string) ([]byte, bool) {
	if cached, ok := a.blobs.Get(name); ok {
		return cached.([]byte), true
	}
	blob, err := os.ReadFile(filepath.Join(a.dir, filepath.Clean(name)))
	if err != nil {
		return nil, false
	}
	a.blobs.SetDefault(name, blob)
	return blob, true
}

func (a *assetCache) serve(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		blob, ok := a.get(name)
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, contentTypeFor(name, blob), blob)
	}
}

func contentTypeFor(name string, blob []byte) string {
	switch filepath.Ext(name) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript"
	case ".svg":
		return "image/svg+xml"
	case ".json":
		return "application/json"
	default:
		return http.DetectContentType(blob)
	}
}

// registerStatics mounts every file under dir at its relative path, with
// index.html doubling as the root page.
func registerStatics(r gin.IRoutes, dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.WithField("dir", dir).Warn("Static asset directory missing, skipping")
		return
	}

	assets := newAssetCache(dir)
	r.GET("/", assets.serve("index.html"))

	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		r.GET("/"+filepath.ToSlash(rel), assets.serve(rel))
		return nil
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to register static assets")
	}
}
