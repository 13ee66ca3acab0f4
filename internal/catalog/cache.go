package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/proposal-customizer/internal/types"
)

// LoadFunc loads one catalog from a path.
type LoadFunc func(ctx context.Context, path string) (*types.CatalogDocument, error)

// LoadHook observes every completed load attempt.
type LoadHook func(path string, elapsed time.Duration, err error)

// Cache memoizes loaded catalogs per path for the lifetime of the cache.
// Concurrent requests for the same uncached path share a single load.
// Failed loads are not cached.
type Cache struct {
	mu     sync.RWMutex
	docs   map[string]*types.CatalogDocument
	group  singleflight.Group
	load   LoadFunc
	hook   LoadHook
	loads  atomic.Int64
	logger *zap.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLoader replaces the default file loader.
func WithLoader(load LoadFunc) CacheOption {
	return func(c *Cache) { c.load = load }
}

// WithLoadHook registers a hook called after every load attempt.
func WithLoadHook(hook LoadHook) CacheOption {
	return func(c *Cache) { c.hook = hook }
}

// NewCache creates an empty cache. A nil logger disables logging.
func NewCache(logger *zap.Logger, opts ...CacheOption) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		docs:   make(map[string]*types.CatalogDocument),
		load:   Load,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the catalog for path, loading it on first use.
// A waiter whose ctx ends stops waiting without cancelling the shared load.
func (c *Cache) Get(ctx context.Context, path string) (*types.CatalogDocument, error) {
	key := cacheKey(path)
	if doc, ok := c.lookup(key); ok {
		return doc, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if doc, ok := c.lookup(key); ok {
			return doc, nil
		}
		start := time.Now()
		doc, err := c.load(context.WithoutCancel(ctx), path)
		c.loads.Add(1)
		if c.hook != nil {
			c.hook(path, time.Since(start), err)
		}
		if err != nil {
			c.logger.Warn("catalog load failed", zap.String("path", path), zap.Error(err))
			return nil, err
		}
		c.logger.Info("catalog loaded",
			zap.String("path", path),
			zap.Int("pages", len(doc.Pages)),
			zap.Duration("elapsed", time.Since(start)),
		)
		c.mu.Lock()
		c.docs[key] = doc
		c.mu.Unlock()
		return doc, nil
	})

	select {
	case <-ctx.Done():
		// the catalog itself may be fine; only this caller stopped waiting
		return nil, fmt.Errorf("waiting for catalog %s: %w", path, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.CatalogDocument), nil
	}
}

// GetAvailable returns the readable catalogs for paths in order together with the
// load errors of the unreadable ones, so one bad catalog does not hide the others.
// The error is non-nil only when ctx ends.
func (c *Cache) GetAvailable(ctx context.Context, paths []string) ([]*types.CatalogDocument, []error, error) {
	var (
		docs     []*types.CatalogDocument
		failures []error
	)
	for _, p := range paths {
		doc, err := c.Get(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, err
			}
			failures = append(failures, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, failures, nil
}

// Put seeds the cache with an already loaded document under its Path.
func (c *Cache) Put(doc *types.CatalogDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[cacheKey(doc.Path)] = doc
}

// Loads returns how many load attempts the cache has made.
func (c *Cache) Loads() int64 {
	return c.loads.Load()
}

// Len returns the number of cached catalogs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *Cache) lookup(key string) (*types.CatalogDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[key]
	return doc, ok
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
