package coordinator

import (
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

// PreviewStore holds staged image previews under revocable handles. Handles
// are released explicitly when superseded or on mode reset, and expire on
// their own if a staged upload is simply abandoned.
type PreviewStore struct {
	cache *cache.Cache
}

func NewPreviewStore(ttl time.Duration) *PreviewStore {
	return &PreviewStore{cache: cache.New(ttl, ttl/2)}
}

// Put stores blob and returns its handle.
func (p *PreviewStore) Put(blob []byte) string {
	id := uuid.NewString()
	p.cache.Set(id, blob, cache.DefaultExpiration)
	return id
}

// Get fetches the blob for a handle.
func (p *PreviewStore) Get(id string) ([]byte, bool) {
	v, ok := p.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Release revokes a handle. Releasing an unknown or already-released handle
// is a no-op.
func (p *PreviewStore) Release(id string) {
	p.cache.Delete(id)
}
