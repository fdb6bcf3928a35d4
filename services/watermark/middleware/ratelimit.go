// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// staleClientAfter is how long an idle client keeps its bucket before
// the next prune discards it.
const staleClientAfter = 3 * time.Minute

// clientBucket pairs a token bucket with its last access time so idle
// entries can be pruned.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP using token buckets.
//
// Each client gets an independent bucket refilled at the configured rate.
// Buckets for idle clients are pruned opportunistically so the map does
// not grow without bound under IP churn.
//
// Thread-safe. A single RateLimiter is shared across all requests.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	rps       rate.Limit
	burst     int
	lastPrune time.Time
}

// NewRateLimiter builds a limiter allowing rps requests per second with
// the given burst per client. Non-positive inputs fall back to 10 rps
// with a burst of 20.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &RateLimiter{
		clients:   make(map[string]*clientBucket),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastPrune: time.Now(),
	}
}

// Allow reports whether the client identified by key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastPrune) > staleClientAfter {
		rl.prune(now)
	}

	bucket, ok := rl.clients[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[key] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.Allow()
}

// prune drops buckets idle longer than staleClientAfter.
// Caller must hold rl.mu.
func (rl *RateLimiter) prune(now time.Time) {
	for key, bucket := range rl.clients {
		if now.Sub(bucket.lastSeen) > staleClientAfter {
			delete(rl.clients, key)
		}
	}
	rl.lastPrune = now
}

// RateLimitMiddleware creates a Gin middleware that throttles requests
// per client IP.
//
// Requests over the limit are rejected with 429 and never reach the
// handler. The limiter keys on gin's ClientIP, which honors trusted
// proxy configuration on the router.
//
// Example:
//
//	limiter := middleware.NewRateLimiter(5, 10)
//	v1.POST("/models", middleware.RateLimitMiddleware(limiter), registerHandler)
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
