package pdfload

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is used when NewCache is given a non-positive size.
const DefaultCacheSize = 64

// Cache memoises Loader results keyed by path, size and mtime, so a
// rewritten file is parsed again. Failed loads are not cached.
type Cache struct {
	loader *Loader
	docs   *lru.Cache[string, []Document]
}

// NewCache wraps l with an LRU of at most size entries.
func NewCache(l *Loader, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, []Document](size)
	if err != nil {
		return nil, fmt.Errorf("pdfload cache: %w", err)
	}
	return &Cache{loader: l, docs: c}, nil
}

// Load returns cached documents for path when the file is unchanged,
// otherwise it delegates to the Loader.
func (c *Cache) Load(ctx context.Context, path string) ([]Document, error) {
	key, ok := cacheKey(path)
	if !ok {
		return c.loader.Load(ctx, path)
	}
	if docs, hit := c.docs.Get(key); hit {
		c.loader.cfg.Logger.Debug("pdf cache hit", "source", path)
		return cloneDocs(docs), nil
	}

	docs, err := c.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	c.docs.Add(key, cloneDocs(docs))
	return docs, nil
}

// cloneDocs copies docs and their metadata maps so callers never share
// state with a cached entry.
func cloneDocs(docs []Document) []Document {
	out := slices.Clone(docs)
	for i := range out {
		out[i].Metadata = maps.Clone(out[i].Metadata)
	}
	return out
}

// Len reports the number of cached files.
func (c *Cache) Len() int { return c.docs.Len() }

// Purge drops every cached entry.
func (c *Cache) Purge() { c.docs.Purge() }

func cacheKey(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	// path is part of the key because it is recorded as each Document's source.
	return fmt.Sprintf("%s|%s|%d|%d", abs, path, info.Size(), info.ModTime().UnixNano()), true
}
