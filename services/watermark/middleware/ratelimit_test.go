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
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRateLimitedRouter(limiter *RateLimiter) *gin.Engine {
	router := gin.New()
	router.POST("/models", RateLimitMiddleware(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestRateLimiter_Allow_Burst(t *testing.T) {
	// rps low enough that the bucket does not refill during the test.
	limiter := NewRateLimiter(0.001, 2)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimiter_Allow_PerClientIsolation(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	// A different client gets its own bucket.
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestRateLimiter_DefaultsApplied(t *testing.T) {
	limiter := NewRateLimiter(0, 0)

	// Defaults allow a healthy burst.
	for i := 0; i < 20; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "request %d should pass", i)
	}
}

func TestRateLimitMiddleware_RejectsOverLimit(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	router := newRateLimitedRouter(limiter)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/models", nil)
		req.RemoteAddr = "10.1.1.1:5000"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_SeparateClients(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	router := newRateLimitedRouter(limiter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/models", nil)
	req.RemoteAddr = "10.1.1.1:5000"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/models", nil)
	req.RemoteAddr = "10.1.1.2:5000"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// First client is exhausted, second was never throttled.
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/models", nil)
	req.RemoteAddr = "10.1.1.1:5000"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiter_PruneDropsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")

	limiter.mu.Lock()
	limiter.clients["10.0.0.1"].lastSeen = time.Now().Add(-2 * staleClientAfter)
	limiter.prune(time.Now())
	remaining := len(limiter.clients)
	limiter.mu.Unlock()

	assert.Equal(t, 1, remaining)
}
