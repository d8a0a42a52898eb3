package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/metrics"
	"github.com/iliyamo/cinema-seat-booking/internal/utils"
)

func okHandler(c echo.Context) error {
	return c.Blob(http.StatusOK, "application/json", []byte(`{"ok":true}`))
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	tok, err := utils.NewAccessToken(secret, 7, 5)
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := UserID(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id})
	}, JWTAuth(secret))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + tok.Token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"id":7}`, rec.Body.String())
			}
		})
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/shows/3/book", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/shows/:id/book")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}
	assert.Equal(t, "rl:user:anon:route:POST /v1/shows/:id/book", buildRateKey(cfg, c))

	c.Set(UserIDKey, uint64(12))
	cfg.KeyStrategy = "ip_user"
	assert.Equal(t, "rl:ip:10.0.0.1:user:12", buildRateKey(cfg, c))
}

func rateLimitedEcho(t *testing.T, cfg config.RateLimitConfig, now time.Time) (*echo.Echo, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	e := echo.New()
	e.POST("/v1/shows/:id/book", okHandler, newTokenBucket(cfg, client, func() time.Time { return now }))
	return e, mock
}

func TestTokenBucket(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "user_route",
		Prefix:         "rl",
	}
	now := time.UnixMilli(1_700_000_000_000)
	key := "rl:user:anon:route:POST /v1/shows/:id/book"
	expect := func(mock redismock.ClientMock) *redismock.ExpectedCmd {
		return mock.ExpectEvalSha(limiterScript.Hash(), []string{key},
			now.UnixMilli(), 2, 1, int64(1000), int64(600))
	}

	t.Run("allowed", func(t *testing.T) {
		e, mock := rateLimitedEcho(t, cfg, now)
		expect(mock).SetVal([]interface{}{int64(1), int64(1), int64(0)})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/shows/1/book", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocked", func(t *testing.T) {
		e, mock := rateLimitedEcho(t, cfg, now)
		expect(mock).SetVal([]interface{}{int64(0), int64(0), int64(1500)})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/shows/1/book", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "too_many_requests")
	})

	t.Run("redis error fails open", func(t *testing.T) {
		e, mock := rateLimitedEcho(t, cfg, now)
		expect(mock).SetErr(errors.New("connection refused"))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/shows/1/book", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("disabled passes through", func(t *testing.T) {
		off := cfg
		off.Enabled = false
		e := echo.New()
		e.POST("/x", okHandler, NewTokenBucket(off, nil))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRedisCache(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          30 * time.Second,
		Prefix:       "cache",
		KeyStrategy:  "route_query",
		MaxBodyBytes: 1 << 20,
	}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
	kc := e.NewContext(req, httptest.NewRecorder())
	kc.SetPath("/v1/movies")
	key := cacheKeyFrom(cfg, kc)

	payload, err := encodePayload(http.StatusOK,
		http.Header{echo.HeaderContentType: {"application/json"}}, []byte(`{"ok":true}`))
	require.NoError(t, err)

	t.Run("miss stores response", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		e := echo.New()
		e.GET("/v1/movies", okHandler, NewRedisCache(cfg, client))
		mock.ExpectGet(key).RedisNil()
		mock.ExpectSetEx(key, payload, 30*time.Second).SetVal("OK")

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hit replays response", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		e := echo.New()
		called := false
		e.GET("/v1/movies", func(c echo.Context) error {
			called = true
			return okHandler(c)
		}, NewRedisCache(cfg, client))
		mock.ExpectGet(key).SetVal(string(payload))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
		assert.False(t, called)
		assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
		assert.Equal(t, "application/json", rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, `{"ok":true}`, rec.Body.String())
	})
}

func TestPayloadDecodeRejectsShortInput(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestPrometheus(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	e := echo.New()
	e.Use(Prometheus(m))
	e.GET("/v1/shows/:id/availability", okHandler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/shows/9/availability", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/shows/:id/availability", "200")))
}

func TestPrometheusRecordsErrorStatus(t *testing.T) {
	errConflict := errors.New("seat taken")
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	e := echo.New()
	calls := 0
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		calls++
		if errors.Is(err, errConflict) {
			_ = c.JSON(http.StatusConflict, map[string]string{"error": "seat_taken"})
			return
		}
		_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
	e.Use(Prometheus(m))
	e.GET("/boom", func(echo.Context) error { return errors.New("boom") })
	e.POST("/book", func(echo.Context) error { return errConflict })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/book", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"seat_taken"}`, rec.Body.String())

	assert.Equal(t, 2, calls, "error handler writes once per request")
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/boom", "500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/book", "409")))
	assert.Equal(t, 0.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/boom", "200")))
}
