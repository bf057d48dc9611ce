package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ServiceType identifies a Google API service for rate limiting purposes.
type ServiceType string

const (
	ServiceAds       ServiceType = "ads"
	ServiceAnalytics ServiceType = "analytics"
	ServiceMerchant  ServiceType = "merchant"
	ServiceSheets    ServiceType = "sheets"
	ServiceDrive     ServiceType = "drive"
	ServiceGmail     ServiceType = "gmail"
)

// RateLimitConfig holds rate limiting configuration for a service.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimits stay below the per-user quotas of each service.
// Every customer goroutine shares the limiter of its connector.
var DefaultRateLimits = map[ServiceType]RateLimitConfig{
	ServiceAds:       {RequestsPerSecond: 10.0, BurstSize: 20},
	ServiceAnalytics: {RequestsPerSecond: 5.0, BurstSize: 10},
	ServiceMerchant:  {RequestsPerSecond: 5.0, BurstSize: 10},
	ServiceSheets:    {RequestsPerSecond: 1.0, BurstSize: 5}, // 60 writes/min/user
	ServiceDrive:     {RequestsPerSecond: 8.0, BurstSize: 10},
	ServiceGmail:     {RequestsPerSecond: 2.0, BurstSize: 5},
}

// RateLimiter provides rate limiting for Google API requests.
// It uses a token bucket algorithm with optional backoff for 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	service ServiceType
}

// NewRateLimiter creates a new rate limiter for the specified service.
func NewRateLimiter(service ServiceType) *RateLimiter {
	cfg, ok := DefaultRateLimits[service]
	if !ok {
		cfg = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10}
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		service: service,
	}
}

// NewRateLimiterWithConfig creates a rate limiter with custom configuration.
func NewRateLimiterWithConfig(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Wait blocks until a request can be made. A backoff set by
// RecordRateLimitError is honoured before the token bucket.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// Service returns the service the limiter was created for.
func (r *RateLimiter) Service() ServiceType {
	return r.service
}

// RecordRateLimitError sets a backoff after a 429 response.
// Zero or negative values back off for 60 seconds.
func (r *RateLimiter) RecordRateLimitError(retryAfterSeconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfterSeconds <= 0 {
		retryAfterSeconds = 60
	}

	r.retryAt = time.Now().Add(time.Duration(retryAfterSeconds) * time.Second)
}

// Allow reports whether a request may be made now without blocking.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}

	return r.limiter.Allow()
}
