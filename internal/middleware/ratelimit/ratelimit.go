// Package ratelimit applies a fixed-window request quota per client.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Limiter counts requests per client key in windows that start with the
// client's first request and expire on their own.
type Limiter struct {
	clients  *gocache.Cache
	limit    int64
	window   time.Duration
	stopOnce sync.Once

	allowed  atomic.Int64
	rejected atomic.Int64
}

type Config struct {
	RequestsPerMinute int
	// Window defaults to one minute. Tests shorten it.
	Window          time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 20,
		Window:            time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

func NewLimiter(config Config) *Limiter {
	defaults := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}

	return &Limiter{
		clients: gocache.New(config.Window, config.CleanupInterval),
		limit:   int64(config.RequestsPerMinute),
		window:  config.Window,
	}
}

// Allow reports whether clientKey still has quota in its current window.
func (rl *Limiter) Allow(clientKey string) bool {
	if rl.admit(clientKey) {
		rl.allowed.Add(1)
		return true
	}
	rl.rejected.Add(1)
	return false
}

func (rl *Limiter) admit(clientKey string) bool {
	if err := rl.clients.Add(clientKey, int64(1), rl.window); err == nil {
		return true
	}
	n, err := rl.clients.IncrementInt64(clientKey, 1)
	if err != nil {
		// window expired between Add and Increment
		rl.clients.Set(clientKey, int64(1), rl.window)
		return true
	}
	return n <= rl.limit
}

func (rl *Limiter) ActiveClients() int {
	return rl.clients.ItemCount()
}

// Stop forgets every tracked client. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(rl.clients.Flush)
}

type Metrics struct {
	Allowed     int64
	Rejected    int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		Allowed:     rl.allowed.Load(),
		Rejected:    rl.rejected.Load(),
		ClientCount: int64(rl.clients.ItemCount()),
	}
}

// Middleware rejects over-quota requests with onLimit, or a plain 429 when
// onLimit is nil.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(rl.window.Round(time.Second) / time.Second))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
