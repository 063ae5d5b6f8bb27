// Copyright 2025 The placehold authors.
// SPDX-License-Identifier: Apache-2.0

package placehold

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHitCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "artifact_cache_hits",
			Help: "Number of requests served from the artifact cache.",
		})
	cacheMissCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "artifact_cache_misses",
			Help: "Number of requests that required computing an artifact.",
		})
	cacheShareCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "artifact_cache_shares",
			Help: "Number of requests that shared another caller's in-flight computation.",
		})
	transformSummary = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "image_transformation_seconds",
		Help: "Time taken for image transformations in seconds.",
	})
	httpRequestsResponseTime = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "http",
		Name:      "response_time_seconds",
		Help:      "Request response times",
	})
)

func init() {
	prometheus.MustRegister(cacheHitCount)
	prometheus.MustRegister(cacheMissCount)
	prometheus.MustRegister(cacheShareCount)
	prometheus.MustRegister(transformSummary)
	prometheus.MustRegister(httpRequestsResponseTime)
}
