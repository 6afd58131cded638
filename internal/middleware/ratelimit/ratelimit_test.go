package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowsUpToLimitPerClient(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "other clients have their own quota")

	m := rl.GetMetrics()
	assert.EqualValues(t, 4, m.Allowed)
	assert.EqualValues(t, 1, m.Rejected)
	assert.EqualValues(t, 2, m.ClientCount)
}

func TestLimiter_WindowResets(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, Window: 50 * time.Millisecond, CleanupInterval: time.Hour})
	defer rl.Stop()

	require.True(t, rl.Allow("c"))
	require.False(t, rl.Allow("c"))

	assert.Eventually(t, func() bool { return rl.Allow("c") }, time.Second, 20*time.Millisecond)
}

func TestLimiter_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 10})
	defer rl.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared") {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, granted)
}

func TestLimiter_StopForgetsClients(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	rl.Allow("a")
	rl.Allow("b")
	require.Equal(t, 2, rl.ActiveClients())

	rl.Stop()
	rl.Stop()
	assert.Equal(t, 0, rl.ActiveClients())
}

func TestMiddleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	ip := func(*http.Request) string { return "192.0.2.1" }
	var limited int
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		limited++
		w.WriteHeader(http.StatusTooManyRequests)
	}
	h := rl.Middleware(ip, onLimit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat-with-data", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat-with-data", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, limited)
}
