// Package feedcache keeps recently built pages of the global feed for a short,
// fixed time. Entries are never invalidated per post: a cached page is served
// verbatim until it expires or the whole cache is flushed.
package feedcache

import (
	"context"
	"time"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"github.com/anonto42/concordance/backend/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
)

// FeedPage is the cached unit: one page of the unfiltered feed
type FeedPage = pagination.Page[models.Post]

// Cache is a time-expiring store of feed pages keyed by the requested page value
type Cache struct {
	store *gocache.Cache
}

// New creates a cache whose entries live for ttl
func New(ttl time.Duration) *Cache {
	return &Cache{
		store: gocache.New(ttl, 2*ttl),
	}
}

// Key derives the cache key from the raw `page` query value
func Key(rawPage string) string {
	return "index-page-" + rawPage
}

func (c *Cache) Get(rawPage string) (*FeedPage, bool) {
	v, ok := c.store.Get(Key(rawPage))
	if !ok {
		return nil, false
	}
	page, ok := v.(*FeedPage)
	return page, ok
}

func (c *Cache) Set(rawPage string, page *FeedPage) {
	c.store.Set(Key(rawPage), page, gocache.DefaultExpiration)
}

// GetOrBuild returns the cached page for rawPage, building and storing it on a miss.
// Build errors are returned and nothing is cached.
func (c *Cache) GetOrBuild(ctx context.Context, rawPage string, build func(context.Context) (*FeedPage, error)) (*FeedPage, error) {
	if page, ok := c.Get(rawPage); ok {
		metrics.FeedCacheLookups.WithLabelValues("hit").Inc()
		return page, nil
	}
	metrics.FeedCacheLookups.WithLabelValues("miss").Inc()

	page, err := build(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(rawPage, page)
	return page, nil
}

// Flush drops every cached page immediately
func (c *Cache) Flush() {
	c.store.Flush()
}

// Len reports how many pages are cached, expired-but-unswept entries included
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
