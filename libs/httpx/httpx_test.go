package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(), mark("a"), nil, mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

type observed struct {
	method, route string
	status        int
}

type recordingObserver struct{ got []observed }

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.got = append(o.got, observed{method, route, status})
}

func TestWithAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	obs := &recordingObserver{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Chain(mux, WithRequestID, WithAccessLog(logger, nil, obs))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/7", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, obs.got, 2)
	assert.Equal(t, observed{"GET", "GET /things/{id}", http.StatusTeapot}, obs.got[0])
	assert.Equal(t, observed{"GET", "unmatched", http.StatusNotFound}, obs.got[1])

	var line map[string]any
	require.NoError(t, json.NewDecoder(&buf).Decode(&line))
	assert.Equal(t, "/things/7", line["path"])
	assert.NotEmpty(t, line["request_id"])
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	limited := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2").Code, "limits are per client")

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	assert.Len(t, rl.visitors, 1, "expired visitors are swept")
}

func TestClientKeyPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientKey(req))
}

func TestRedisRateLimiter(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rl := NewRedisRateLimiter(rdb, 1, time.Minute, "avail")
	h := rl.Middleware(nil, false)(okHandler())
	sha := redisFixedWindowScript.Hash()

	mock.ExpectEvalSha(sha, []string{"avail:192.0.2.1"}, int64(60000)).SetVal([]interface{}{int64(1), int64(60000)})
	mock.ExpectEvalSha(sha, []string{"avail:192.0.2.1"}, int64(60000)).SetVal([]interface{}{int64(2), int64(30000)})
	mock.ExpectEvalSha(sha, []string{"avail:192.0.2.1"}, int64(60000)).SetErr(errors.New("down"))

	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, serve().Code)
	limited := serve()
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "30", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusServiceUnavailable, serve().Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRateLimiterFailOpen(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rl := NewRedisRateLimiter(rdb, 1, time.Minute, "")
	mock.ExpectEvalSha(redisFixedWindowScript.Hash(), []string{"rl:192.0.2.1"}, int64(60000)).SetErr(errors.New("down"))

	rec := httptest.NewRecorder()
	rl.Middleware(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), true)(okHandler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithCORS(t *testing.T) {
	h := WithCORS(PublicReadCORS([]string{" https://book.example.com "}))(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://book.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://book.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, RequestIDHeader, rec.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithCORSDisabled(t *testing.T) {
	h := WithCORS(PublicReadCORS(nil))(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://book.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithAccessLogRouterSeesRejectedRequests(t *testing.T) {
	obs := &recordingObserver{}
	mux := http.NewServeMux()
	mux.Handle("GET /limited", okHandler())

	rl := NewRateLimiter(1, time.Minute)
	h := Chain(mux, WithAccessLog(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)), mux, obs), rl.Middleware())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/limited", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/limited", nil))

	assert.Equal(t, []observed{
		{"GET", "GET /limited", http.StatusOK},
		{"GET", "GET /limited", http.StatusTooManyRequests},
	}, obs.got)
}
