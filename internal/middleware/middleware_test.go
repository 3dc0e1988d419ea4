package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	handlerCalled := 0
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled++
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/all/fleet", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("rate limit not exceeded", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("192.168.1.1:12345").Code)
		assert.Equal(t, http.StatusOK, send("192.168.1.1:12346").Code)
		assert.Equal(t, 2, handlerCalled)
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		w := send("192.168.1.1:12347")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"message":"Rate limit exceeded"}`, w.Body.String())
		assert.Equal(t, 2, handlerCalled)

		// Other clients are unaffected.
		assert.Equal(t, http.StatusOK, send("192.168.1.2:12345").Code)
	})

	t.Run("window slides", func(t *testing.T) {
		now = now.Add(time.Minute + time.Second)
		assert.Equal(t, http.StatusOK, send("192.168.1.1:12345").Code)
	})
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.Len(t, limiter.requests, 2)

	now = now.Add(2 * time.Minute)
	assert.True(t, limiter.Allow("10.0.0.3"))
	assert.Len(t, limiter.requests, 1)
	assert.Contains(t, limiter.requests, "10.0.0.3")
}

func TestRateLimiter_ZeroLimitKeepsNoState(t *testing.T) {
	limiter := NewRateLimiter(0, time.Minute)

	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.2"))
	assert.Empty(t, limiter.requests)
}

func TestRateLimiter_Concurrent(t *testing.T) {
	limiter := NewRateLimiter(10, time.Hour)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("10.0.0.1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{name: "remote addr", remote: "10.1.2.3:5555", want: "10.1.2.3"},
		{name: "forwarded for", header: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:80", want: "203.0.113.7"},
		{name: "real ip", header: map[string]string{"X-Real-IP": "198.51.100.4"}, remote: "10.0.0.1:80", want: "198.51.100.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	var seen string
	handler := RequestLogger(logger.WithField("component", "http"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	t.Run("generates an id", func(t *testing.T) {
		hook.Reset()
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/all/fleet", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, seen)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, http.StatusCreated, entry.Data["status"])
		assert.Equal(t, "/all/fleet", entry.Data["path"])
		assert.Equal(t, id, entry.Data["request_id"])
		assert.Equal(t, "http", entry.Data["component"])
	})

	t.Run("reuses inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", seen)
	})

	t.Run("server errors log at warn", func(t *testing.T) {
		hook.Reset()
		failing := RequestLogger(logger.WithField("component", "http"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/all/fleet", nil))
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	})
}
