package config

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const resolverCacheSize = 64

// Resolver loads products on demand and caches the resolved configuration
// keyed by (product, lang). Entries are write-once after first load; the
// cache is purely a read-side optimization with no invalidation.
type Resolver struct {
	settings Settings

	mu    sync.Mutex
	cache *lru.Cache[string, *Product]
}

// NewResolver creates a resolver over the process settings.
func NewResolver(settings Settings) *Resolver {
	cache, _ := lru.New[string, *Product](resolverCacheSize)
	return &Resolver{settings: settings, cache: cache}
}

// Settings returns the process settings the resolver was built with.
func (r *Resolver) Settings() Settings {
	return r.settings
}

// Product resolves a product in the process-wide DOC_LANG.
func (r *Resolver) Product(id string) (*Product, error) {
	return r.ProductLang(id, r.settings.DocLang)
}

// ProductLang resolves a (product, lang) pair, hitting the cache first.
func (r *Resolver) ProductLang(id, lang string) (*Product, error) {
	key := fmt.Sprintf("%s:%s", id, lang)
	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another loader may have won the race while we waited.
	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	p, err := LoadProduct(r.settings.ProductsDir, id, lang)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, p)
	return p, nil
}
