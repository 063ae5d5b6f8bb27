// Copyright 2025 The placehold authors.
// SPDX-License-Identifier: Apache-2.0

// placehold starts an HTTP server that serves blended variants of
// registered placeholder images.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/PaulARoy/azurestoragecache"
	"github.com/die-net/lrucache"
	"github.com/die-net/lrucache/twotier"
	"github.com/gomodule/redigo/redis"
	"github.com/gorilla/mux"
	"github.com/gregjones/httpcache/diskcache"
	rediscache "github.com/gregjones/httpcache/redis"
	"github.com/peterbourgon/diskv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"placehold"
	"placehold/internal/gcscache"
	"placehold/internal/s3cache"
	"placehold/internal/ttldiskcache"
)

// default in-memory cache size, in megabytes
const defaultMemorySize = 100

func main() {
	viper.SetDefault("server.addr", "localhost:8080")
	viper.SetDefault("server.timeout", "0s")
	viper.SetDefault("images.dir", "static")
	viper.SetDefault("images.default_ratio", 0)
	viper.SetDefault("cache.spec", "memory")
	viper.SetDefault("log.level", "info")

	viper.SetConfigName("placehold")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("PLACEHOLD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal().Err(err).Msg("could not read config file")
		}
	}

	level, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	cache, err := parseCache(strings.Fields(viper.GetString("cache.spec")))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid cache spec")
	}

	s := placehold.NewServer(placehold.NewDirRegistry(viper.GetString("images.dir")), cache)
	s.Timeout = viper.GetDuration("server.timeout")
	if ratios := viper.GetIntSlice("images.ratios"); len(ratios) > 0 {
		s.Ratios = ratios
	}
	s.DefaultRatio = viper.GetInt("images.default_ratio")

	r := mux.NewRouter().SkipClean(true)
	r.Handle("/metrics", promhttp.Handler())
	r.PathPrefix("/").Handler(s)

	server := &http.Server{
		Addr:    viper.GetString("server.addr"),
		Handler: r,

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("placehold listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// parseCache builds the artifact cache from the space separated spec values.
// Multiple values compose into tiered caches, first value outermost.
func parseCache(specs []string) (placehold.Cache, error) {
	var cache placehold.Cache
	for _, v := range specs {
		c, err := buildCache(v)
		if err != nil {
			return nil, err
		}

		if cache == nil {
			cache = c
		} else {
			cache = twotier.New(cache, c)
		}
	}
	return cache, nil
}

// buildCache parses c and returns the specified Cache implementation.
func buildCache(c string) (placehold.Cache, error) {
	if c == "" {
		return nil, nil
	}

	if c == "memory" {
		c = fmt.Sprintf("memory:%d", defaultMemorySize)
	}

	u, err := url.Parse(c)
	if err != nil {
		return nil, fmt.Errorf("error parsing cache spec: %w", err)
	}

	switch u.Scheme {
	case "azure":
		return azurestoragecache.New("", "", u.Host)
	case "gcs":
		return gcscache.New(u.Host, strings.TrimPrefix(u.Path, "/"))
	case "memory":
		return lruCache(u.Opaque)
	case "redis":
		conn, err := redis.DialURL(u.String(), redis.DialPassword(os.Getenv("REDIS_PASSWORD")))
		if err != nil {
			return nil, err
		}
		return rediscache.NewWithClient(conn), nil
	case "s3":
		if v := u.Query().Get("ttl"); v != "" {
			ttl, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("error parsing cache ttl: %w", err)
			}
			return s3cache.NewWithTTL(u.String(), ttl)
		}
		return s3cache.New(u.String())
	case "ttldisk":
		ttl := 24 * time.Hour
		if v := u.Query().Get("ttl"); v != "" {
			ttl, err = time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("error parsing cache ttl: %w", err)
			}
		}
		return ttldiskcache.New(u.Path, ttl), nil
	case "file":
		return diskCache(u.Path), nil
	default:
		return diskCache(c), nil
	}
}

// lruCache creates an LRU Cache with the specified options of the form
// "maxSize:maxAge".  maxSize is specified in megabytes, maxAge is a duration.
func lruCache(options string) (*lrucache.LruCache, error) {
	parts := strings.SplitN(options, ":", 2)
	size, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, err
	}

	var age time.Duration
	if len(parts) > 1 {
		age, err = time.ParseDuration(parts[1])
		if err != nil {
			return nil, err
		}
	}

	return lrucache.New(size*1e6, int64(age.Seconds())), nil
}

func diskCache(path string) *diskcache.Cache {
	d := diskv.New(diskv.Options{
		BasePath: path,

		// For file "c0ffee", store file as "c0/ff/c0ffee"
		Transform: func(s string) []string { return []string{s[0:2], s[2:4]} },
	})
	return diskcache.NewWithDiskv(d)
}
