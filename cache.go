// Copyright 2025 The placehold authors.
// SPDX-License-Identifier: Apache-2.0

package placehold

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Cache stores encoded image artifacts keyed by their ResolvedKey string.
// The method set matches httpcache.Cache, so any of its implementations
// (disk, redis, s3, tiered, ...) can serve as an artifact cache backend.
type Cache interface {
	// Get retrieves the artifact stored under key.
	Get(key string) (data []byte, ok bool)

	// Set stores the artifact under key.
	Set(key string, data []byte)

	// Delete removes the artifact stored under key.
	Delete(key string)
}

// NopCache provides a no-op cache implementation that doesn't actually cache anything.
var NopCache = new(nopCache)

type nopCache struct{}

func (nopCache) Get(string) ([]byte, bool) { return nil, false }
func (nopCache) Set(string, []byte)        {}
func (nopCache) Delete(string)             {}

// memoCache memoizes artifact computation on top of a Cache backend.
// Concurrent misses for the same key collapse into a single computation
// whose outcome all callers share; misses for different keys proceed
// independently.  Failed computations are never stored.
type memoCache struct {
	backend Cache
	group   singleflight.Group
}

func newMemoCache(backend Cache) *memoCache {
	if backend == nil {
		backend = NopCache
	}
	return &memoCache{backend: backend}
}

// GetOrCompute returns the artifact stored under key, computing and storing
// it on a miss.  If ctx ends while a computation is in flight, the caller
// gets ctx.Err() but the computation runs to completion and still populates
// the backend for future callers.
func (c *memoCache) GetOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	if data, ok := c.backend.Get(key); ok {
		cacheHitCount.Inc()
		return data, nil
	}
	cacheMissCount.Inc()

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// a racing caller may have stored the artifact between our
		// miss and this flight starting
		if data, ok := c.backend.Get(key); ok {
			return data, nil
		}
		data, err := compute()
		if err != nil {
			return nil, err
		}
		c.backend.Set(key, data)
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			cacheShareCount.Inc()
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
