package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Skotchmaster/community_shop/internal/models"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_catalog_cache_hits_total",
		Help: "Storefront cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_catalog_cache_misses_total",
		Help: "Storefront cache misses.",
	})
)

const KeyAvailable = "available"

// Products caches product listings. Callers must Purge after any stock or catalog change.
// Loaders read Generation before querying and pass it to Set, so a listing loaded before a
// Purge is never stored after it.
type Products struct {
	mu  sync.Mutex
	gen uint64
	lru *expirable.LRU[string, []models.Product]
}

func NewProducts(size int, ttl time.Duration) *Products {
	if size <= 0 {
		size = 128
	}
	return &Products{lru: expirable.NewLRU[string, []models.Product](size, nil, ttl)}
}

func (p *Products) Get(key string) ([]models.Product, bool) {
	v, ok := p.lru.Get(key)
	if ok {
		cacheHitsTotal.Inc()
		return v, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

func (p *Products) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Set stores items loaded at generation gen; it reports false when a Purge happened since.
func (p *Products) Set(key string, items []models.Product, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return false
	}
	p.lru.Add(key, items)
	return true
}

func (p *Products) Purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.lru.Purge()
}
