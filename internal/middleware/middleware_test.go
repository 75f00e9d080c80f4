package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/movie-storefront/internal/config"
	"github.com/iliyamo/movie-storefront/internal/metrics"
	"github.com/iliyamo/movie-storefront/internal/utils"
)

const secret = "mw-secret"

// whoami echoes the identity JWTAuth stored on the context.
func whoami(c echo.Context) error {
	id, ok := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok, "role": Role(c)})
}

func run(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/who", whoami, JWTAuth(secret))

	tok, err := utils.NewAccessToken(secret, 42, "moderator", 5)
	require.NoError(t, err)
	rec := run(e, http.MethodGet, "/who", tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"ok":true,"role":"MODERATOR"}`, rec.Body.String())

	exp := time.Now().Add(time.Minute).Unix()
	rec = run(e, http.MethodGet, "/who", sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "role": "user", "exp": exp}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"ok":true,"role":"USER"}`, rec.Body.String())

	cases := map[string]string{
		"missing":      "",
		"garbage":      "abc.def.ghi",
		"expired":      sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": 1, "exp": time.Now().Add(-time.Minute).Unix()}),
		"zero subject": sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": 0, "exp": exp}),
		"bad subject":  sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "me", "exp": exp}),
		"wrong alg":    sign(t, jwt.SigningMethodHS512, jwt.MapClaims{"sub": 1, "exp": exp}),
	}
	for name, token := range cases {
		rec := run(e, http.MethodGet, "/who", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/staff", whoami, JWTAuth(secret), RequireRole("moderator", "admin"))

	for role, want := range map[string]int{
		"ADMIN":     http.StatusOK,
		"moderator": http.StatusOK,
		"USER":      http.StatusForbidden,
		"":          http.StatusForbidden,
	} {
		tok, err := utils.NewAccessToken(secret, 1, role, 5)
		require.NoError(t, err)
		assert.Equal(t, want, run(e, http.MethodGet, "/staff", tok.Token).Code, role)
	}
}

func TestSubjectID(t *testing.T) {
	id, ok := subjectID(float64(12))
	assert.True(t, ok)
	assert.EqualValues(t, 12, id)

	for _, v := range []interface{}{float64(-1), float64(1.5), "", "0", "x", nil, true} {
		_, ok := subjectID(v)
		assert.False(t, ok, "%v", v)
	}
}

func TestRedisBackedMiddlewarePassThroughWithoutRedis(t *testing.T) {
	hits := 0
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, zap.NewNop()))
	e.GET("/movies", func(c echo.Context) error {
		hits++
		return c.String(http.StatusOK, "fresh")
	}, NewRedisCache(config.CacheConfig{Enabled: true, Methods: []string{"GET"}}, nil, zap.NewNop()))

	for i := 0; i < 3; i++ {
		rec := run(e, http.MethodGet, "/movies", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "fresh", rec.Body.String())
	}
	assert.Equal(t, 3, hits)
}

func TestCacheKey(t *testing.T) {
	e := echo.New()
	newCtx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/movies/:id")
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	a := cacheKeyFrom(cfg, newCtx("/v1/movies/1"))
	b := cacheKeyFrom(cfg, newCtx("/v1/movies/2"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cacheKeyFrom(cfg, newCtx("/v1/movies/1")))
	assert.NotEqual(t, a, cacheKeyFrom(cfg, newCtx("/v1/movies/1?x=1")))
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	e := echo.New()
	e.Use(Metrics(m))
	e.GET("/v1/movies/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

	run(e, http.MethodGet, "/v1/movies/1", "")
	run(e, http.MethodGet, "/v1/movies/2", "")
	rec := run(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)

	n, err := testutil.GatherAndCount(reg, "storefront_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/who", whoami, JWTAuth(secret))

	tok, err := utils.NewAccessToken(secret, 5, "user", 5)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))

	rec = run(e, http.MethodGet, "/who", "")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "5", entries[0].ContextMap()["user_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.NotContains(t, entries[1].ContextMap(), "user_id")
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	newCtx := func(auth string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if auth != "" {
			req.Header.Set(echo.HeaderAuthorization, auth)
		}
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/cart")
		return c
	}

	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:GET /v1/cart", buildRateKey(cfg, newCtx("")))

	a := buildRateKey(cfg, newCtx("Bearer aaa"))
	b := buildRateKey(cfg, newCtx("Bearer bbb"))
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "aaa")

	c := newCtx("Bearer aaa")
	c.Set("user_id", uint64(3))
	assert.Equal(t, "rl:ip:10.0.0.1:user:3:route:GET /v1/cart", buildRateKey(cfg, c))

	assert.Equal(t, "rl:route:GET /v1/cart", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "route"}, newCtx("")))
}
