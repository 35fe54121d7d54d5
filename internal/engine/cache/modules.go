package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"elision/internal/engine/elision"
	"elision/internal/shared/observability"
)

// ModuleKey identifies one analysis: the same path with different content or
// different options is a different entry.
type ModuleKey struct {
	Path        string
	ContentHash string
	Options     string
}

func KeyFor(path string, content []byte, opts elision.Options) ModuleKey {
	sum := sha256.Sum256(content)
	return ModuleKey{
		Path:        path,
		ContentHash: hex.EncodeToString(sum[:]),
		Options:     opts.Fingerprint(),
	}
}

// Results caches module analyses. Cached results are shared and must be
// treated as read-only.
type Results struct {
	lru *LRU[ModuleKey, *elision.Result]
}

func NewResults(capacity int) *Results {
	lru := NewLRU[ModuleKey, *elision.Result](capacity)
	lru.OnEvict(func(ModuleKey, *elision.Result) {
		observability.CacheEntries.Dec()
	})
	return &Results{lru: lru}
}

func (r *Results) Get(key ModuleKey) (*elision.Result, bool) {
	res, ok := r.lru.Get(key)
	if ok {
		observability.CacheHitsTotal.Inc()
	} else {
		observability.CacheMissesTotal.Inc()
	}
	return res, ok
}

func (r *Results) Put(key ModuleKey, res *elision.Result) {
	if _, ok := r.lru.Get(key); !ok {
		observability.CacheEntries.Inc()
	}
	r.lru.Put(key, res)
}

// EvictPath drops every cached analysis of path.
func (r *Results) EvictPath(path string) int {
	return r.lru.RemoveFunc(func(k ModuleKey) bool { return k.Path == path })
}

func (r *Results) Len() int {
	return r.lru.Len()
}

// EvictAll empties the cache. Used when results may depend on files other
// than the one analysed, such as specifier lookups.
func (r *Results) EvictAll() int {
	return r.lru.RemoveFunc(func(ModuleKey) bool { return true })
}
