package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key (client IP, chat ID, ...)
type RateLimiter struct {
	visitors map[string]*Visitor
	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	logger   zerolog.Logger
}

// Visitor represents a visitor with rate limiting info
type Visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per key with the given burst
func NewRateLimiter(rps float64, burst int, logger zerolog.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*Visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		logger:   logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Allow reports whether key may proceed now, consuming a token if so
func (rl *RateLimiter) Allow(key string) bool {
	allowed := rl.getLimiter(key).Allow()
	if !allowed {
		rl.logger.Warn().Str("key", key).Msg("Rate limit exceeded")
	}
	return allowed
}

// getLimiter gets or creates a limiter for a visitor
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[key] = &Visitor{
			limiter:  limiter,
			lastSeen: time.Now(),
		}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup removes visitors not seen for maxAge and returns how many were removed
func (rl *RateLimiter) Cleanup(maxAge time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, v := range rl.visitors {
		if time.Since(v.lastSeen) > maxAge {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// RunCleanup evicts idle visitors every interval until ctx is done
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := rl.Cleanup(interval); removed > 0 {
				rl.logger.Debug().Int("removed", removed).Msg("Evicted idle visitors")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Throttler caps the number of requests in flight
type Throttler struct {
	requests chan struct{}
	logger   zerolog.Logger
}

// NewThrottler creates a new throttler
func NewThrottler(maxConcurrent int, logger zerolog.Logger) *Throttler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Throttler{
		requests: make(chan struct{}, maxConcurrent),
		logger:   logger.With().Str("component", "throttler").Logger(),
	}
}

// TryAcquire takes a slot without waiting
func (t *Throttler) TryAcquire() bool {
	select {
	case t.requests <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot taken by TryAcquire
func (t *Throttler) Release() {
	<-t.requests
}

// IPWhitelist represents a whitelist of IPs that bypass rate limiting
type IPWhitelist struct {
	ips map[string]bool
	mu  sync.RWMutex
}

// NewIPWhitelist creates a new IP whitelist
func NewIPWhitelist(ips ...string) *IPWhitelist {
	w := &IPWhitelist{
		ips: make(map[string]bool),
	}
	for _, ip := range ips {
		w.Add(ip)
	}
	return w
}

// Add adds an IP to the whitelist
func (w *IPWhitelist) Add(ip string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ips[ip] = true
}

// Contains checks if an IP is in the whitelist
func (w *IPWhitelist) Contains(ip string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ips[ip]
}

// Config represents rate limiting configuration
type Config struct {
	Enabled           bool
	RequestsPerSecond int
	Burst             int
	MaxConcurrent     int
	WhitelistedIPs    []string
}

// Manager combines the whitelist, the in-flight throttle and the per-IP limiter
type Manager struct {
	rateLimiter *RateLimiter
	throttler   *Throttler
	whitelist   *IPWhitelist
	config      Config
	logger      zerolog.Logger
}

// NewManager creates a new rate limiting manager
func NewManager(config Config, logger zerolog.Logger) *Manager {
	m := &Manager{
		config:    config,
		whitelist: NewIPWhitelist(config.WhitelistedIPs...),
		logger:    logger,
	}

	if config.Enabled {
		m.rateLimiter = NewRateLimiter(float64(config.RequestsPerSecond), config.Burst, logger)
		m.throttler = NewThrottler(config.MaxConcurrent, logger)
	}

	return m
}

// Start runs background eviction of idle visitors until ctx is done
func (m *Manager) Start(ctx context.Context) {
	if m.rateLimiter != nil {
		go m.rateLimiter.RunCleanup(ctx, time.Hour)
	}
}

// Middleware returns the appropriate middleware based on configuration
func (m *Manager) Middleware() gin.HandlerFunc {
	if !m.config.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if m.whitelist.Contains(ip) {
			c.Next()
			return
		}

		if !m.rateLimiter.Allow(ip) {
			abortLimited(c)
			return
		}

		if !m.throttler.TryAcquire() {
			m.logger.Warn().Msg("Server overloaded")
			abortOverloaded(c)
			return
		}
		defer m.throttler.Release()

		c.Next()
	}
}

func abortLimited(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "Rate limit exceeded",
		"retry_after": "1s",
	})
}

func abortOverloaded(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"error": "Server overloaded, please try again later",
	})
}
