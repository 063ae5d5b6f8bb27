// Copyright 2025 The placehold authors.
// SPDX-License-Identifier: Apache-2.0

// Package placehold serves blended variants of registered placeholder
// images over HTTP.  For typical use of creating and running a Server, see
// cmd/placehold/main.go.
package placehold

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Server resolves image variant requests against a registry of base images,
// memoizing the encoded artifacts in its cache.  A Server is constructed
// once at startup and shared by all request-handling goroutines.
type Server struct {
	Registry Registry // source of base image bytes

	// Ratios is the set of accepted blend ratios.  If empty, DefaultRatios
	// is used.
	Ratios []int

	// DefaultRatio is applied to requests naming no ratio at all.  It
	// must be a member of the accepted set; the zero value means no
	// blend.
	DefaultRatio int

	// Blend produces the blended raster.  If nil, FadeToWhite is used.
	Blend BlendFunc

	// Timeout bounds a single resolution, including transform work.  Zero
	// means no limit.  An expired resolution leaves no partial cache entry
	// behind; the abandoned computation still completes and populates the
	// cache for future callers.
	Timeout time.Duration

	cache *memoCache
}

// NewServer constructs a Server serving images from registry, caching
// artifacts in cache.  If cache is nil, artifacts are recomputed on every
// request.
func NewServer(registry Registry, cache Cache) *Server {
	return &Server{
		Registry: registry,
		cache:    newMemoCache(cache),
	}
}

// ServeHTTP handles image variant requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/favicon.ico" {
		return // ignore favicon requests
	}

	start := time.Now()
	defer func() {
		httpRequestsResponseTime.Observe(time.Since(start).Seconds())
	}()

	ctx := r.Context()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	key, fallback, err := ParseRequest(r.URL.Path, r.URL.Query(), s.Registry, s.Ratios, s.DefaultRatio)
	if err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected request")
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	data, err := s.resolve(ctx, key)
	if err != nil {
		log.Error().Err(err).Stringer("key", key).Msg("resolution failed")
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	log.Debug().
		Stringer("key", key).
		Bool("fallback", fallback).
		Int("bytes", len(data)).
		Msg("served variant")

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// resolve returns the encoded artifact for key, computing it on a cache
// miss: load the base image, blend at the key's ratio, encode, store.
func (s *Server) resolve(ctx context.Context, key ResolvedKey) ([]byte, error) {
	return s.cache.GetOrCompute(ctx, key.String(), func() ([]byte, error) {
		base, err := s.Registry.Load(key.Name)
		if err != nil {
			// the parser saw the name, but the registry may have
			// changed underneath us
			return nil, err
		}

		defer func(start time.Time) {
			transformSummary.Observe(time.Since(start).Seconds())
		}(time.Now())

		data, err := Transform(base, key.Ratio, s.Blend)
		if err != nil {
			return nil, &TransformError{Name: key.Name, Ratio: key.Ratio, Err: err}
		}
		return data, nil
	})
}

// statusCode maps resolution errors onto HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidRatio):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownImage):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
