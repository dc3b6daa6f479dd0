package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig holds the limits enforced per client.
type RateLimitConfig struct {
	RequestsPerMinute int   // 0 disables the per-minute limit
	MaxDataPerDay     int64 // bytes, 0 disables the daily data quota
}

// RateLimitError indicates a request rate limit was exceeded.
type RateLimitError struct {
	Type       string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s, retry after %v",
		e.Limit, e.Type, e.RetryAfter.Round(time.Second))
}

// QuotaExceededError indicates a daily quota was exceeded.
type QuotaExceededError struct {
	Type   string
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily %s quota exceeded: %d of %d used, resets at %s",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}

// clientUsage tracks usage for a single client IP.
type clientUsage struct {
	requestsLastMinute int
	dataToday          int64
	lastRequestTime    time.Time
	dayStartTime       time.Time
}

// RateLimiter enforces per-client request rates and data quotas.
type RateLimiter struct {
	mu      sync.Mutex
	config  RateLimitConfig
	clients map[string]*clientUsage
}

// NewRateLimiter creates a new rate limiter with the given limits.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config:  config,
		clients: make(map[string]*clientUsage),
	}
}

// CheckRateLimit checks whether a request from the given client is allowed
// and records it when so.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	usage, ok := rl.clients[clientID]
	if !ok {
		usage = &clientUsage{dayStartTime: now}
		rl.clients[clientID] = usage
	}

	// Reset counters when their windows elapse
	if now.Day() != usage.dayStartTime.Day() || now.Month() != usage.dayStartTime.Month() {
		usage.dataToday = 0
		usage.dayStartTime = now
	}
	if now.Sub(usage.lastRequestTime) >= time.Minute {
		usage.requestsLastMinute = 0
	}

	if rl.config.RequestsPerMinute > 0 && usage.requestsLastMinute >= rl.config.RequestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.config.RequestsPerMinute,
			RetryAfter: time.Minute - now.Sub(usage.lastRequestTime),
		}
	}

	if rl.config.MaxDataPerDay > 0 && usage.dataToday+dataSize > rl.config.MaxDataPerDay {
		return &QuotaExceededError{
			Type:   "data",
			Limit:  rl.config.MaxDataPerDay,
			Used:   usage.dataToday,
			Resets: usage.dayStartTime.AddDate(0, 0, 1),
		}
	}

	usage.requestsLastMinute++
	usage.dataToday += dataSize
	usage.lastRequestTime = now
	return nil
}
