package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/draftlock/internal/config"
	"github.com/davidbz/draftlock/internal/httpserver/middleware"
	"github.com/davidbz/draftlock/internal/observability"
)

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := middleware.Chain(tag("outer"), tag("inner"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestTrace_InjectsIDs(t *testing.T) {
	var requestID, sessionID string
	handler := middleware.Trace()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		requestID = observability.GetRequestID(r.Context())
		sessionID = observability.GetSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
	req.Header.Set(middleware.SessionHeader, "editor-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.NotEmpty(t, requestID)
	require.Equal(t, requestID, w.Header().Get("X-Request-Id"))
	require.Len(t, w.Header().Get("X-Trace-Id"), 32)
	require.Equal(t, "editor-1", sessionID)
}

func TestCORS(t *testing.T) {
	t.Run("nil config is a no-op", func(t *testing.T) {
		handler := middleware.CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("allowed origin", func(t *testing.T) {
		handler := middleware.CORS(&config.CORSConfig{
			AllowedOrigins: []string{"https://editor.example.com"},
			AllowedMethods: []string{http.MethodGet},
		})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/v1/estimate", nil)
		req.Header.Set("Origin", "https://editor.example.com")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, "https://editor.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(handler http.Handler, remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/draft", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("rejects a client over its burst", func(t *testing.T) {
		handler := middleware.RateLimit(&config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})(ok)

		require.Equal(t, http.StatusOK, send(handler, "10.0.0.1:5000"))
		require.Equal(t, http.StatusOK, send(handler, "10.0.0.1:5001"))
		require.Equal(t, http.StatusTooManyRequests, send(handler, "10.0.0.1:5002"))
		require.Equal(t, http.StatusOK, send(handler, "10.0.0.2:5000"))
	})

	t.Run("keys on forwarded client", func(t *testing.T) {
		handler := middleware.RateLimit(&config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})(ok)

		first := httptest.NewRequest(http.MethodGet, "/", nil)
		first.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, first)
		require.Equal(t, http.StatusOK, w.Code)

		second := httptest.NewRequest(http.MethodGet, "/", nil)
		second.Header.Set("X-Forwarded-For", "203.0.113.9")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, second)
		require.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("zero rate disables limiting", func(t *testing.T) {
		handler := middleware.RateLimit(&config.RateLimitConfig{})(ok)
		for range 10 {
			require.Equal(t, http.StatusOK, send(handler, "10.0.0.1:5000"))
		}
	})
}
