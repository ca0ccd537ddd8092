package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-tracker/internal/config"
)

func serve(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIdentityParsesHeader(t *testing.T) {
	e := echo.New()
	e.Use(Identity())
	e.GET("/who", func(c echo.Context) error {
		id, ok := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok})
	})

	rec := serve(e, http.MethodGet, "/who", map[string]string{UserIDHeader: "42"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"ok":true}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/who", nil)
	assert.JSONEq(t, `{"id":0,"ok":false}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/who", map[string]string{UserIDHeader: "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestRequireUser(t *testing.T) {
	e := echo.New()
	e.Use(Identity())
	e.POST("/w", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireUser())

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodPost, "/w", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/w", map[string]string{UserIDHeader: "1"}).Code)
}

func TestPayloadRoundTrip(t *testing.T) {
	bs, err := encodePayload(cachedResponse{Status: http.StatusOK, ContentType: "application/json", Body: []byte(`{"a":1}`)})
	require.NoError(t, err)

	got, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, `{"a":1}`, string(got.Body))

	_, ok = decodePayload([]byte("not json"))
	assert.False(t, ok)
	_, ok = decodePayload([]byte(`{}`))
	assert.False(t, ok)
}

func TestCacheKeyQueryOrderDoesNotMatter(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "catalog", KeyStrategy: "route_query"}
	e := echo.New()
	var keys []string
	e.GET("/v1/search", func(c echo.Context) error {
		keys = append(keys, cacheKeyFrom(cfg, c))
		return nil
	})
	serve(e, http.MethodGet, "/v1/search?q=the&page=2", nil)
	serve(e, http.MethodGet, "/v1/search?page=2&q=the", nil)
	serve(e, http.MethodGet, "/v1/search?page=3&q=the", nil)

	require.Len(t, keys, 3)
	assert.Equal(t, keys[0], keys[1])
	assert.NotEqual(t, keys[0], keys[2])
}

func TestCacheKeyIncludesPathParams(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "catalog", KeyStrategy: "route_query"}
	e := echo.New()
	keys := map[string]string{}
	e.GET("/v1/movies/:id", func(c echo.Context) error {
		keys[c.Param("id")] = cacheKeyFrom(cfg, c)
		return nil
	})
	serve(e, http.MethodGet, "/v1/movies/1", nil)
	serve(e, http.MethodGet, "/v1/movies/2", nil)

	require.Len(t, keys, 2)
	assert.NotEqual(t, keys["1"], keys["2"])
	assert.Regexp(t, `^catalog:[0-9a-f]{64}$`, keys["1"])
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true}, nil))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := serve(e, http.MethodGet, "/x", nil)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	var got []string
	e.Use(Identity())
	e.GET("/v1/search", func(c echo.Context) error {
		for _, s := range []string{"ip", "user", "user_route", ""} {
			got = append(got, buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: s}, c))
		}
		return nil
	})
	serve(e, http.MethodGet, "/v1/search?q=x", map[string]string{UserIDHeader: "7", "X-Real-IP": "10.0.0.1"})

	require.Len(t, got, 4)
	assert.Equal(t, "rl:ip:10.0.0.1", got[0])
	assert.Equal(t, "rl:user:7", got[1])
	assert.Equal(t, "rl:user:7:route:GET /v1/search", got[2])
	assert.Equal(t, "rl:ip:10.0.0.1:user:7:route:GET /v1/search", got[3])
}

func TestMetricsMiddlewarePassesErrorsThrough(t *testing.T) {
	e := echo.New()
	e.Use(Metrics())
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "no") })

	rec := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestInvalidateOnSuccessPurgesOnlyAfterWrites(t *testing.T) {
	purges := 0
	purge := func(ctx context.Context) (int64, error) {
		purges++
		return 3, ctx.Err()
	}
	e := echo.New()
	inv := InvalidateOnSuccess(purge)
	e.POST("/reviews", func(c echo.Context) error { return c.JSON(http.StatusCreated, echo.Map{"id": 1}) }, inv)
	e.DELETE("/titles/:id", func(c echo.Context) error {
		return c.JSON(http.StatusConflict, echo.Map{"error": "constraint_violation"})
	}, inv)
	e.POST("/broken", func(echo.Context) error { return errors.New("boom") }, inv)

	rec := serve(e, http.MethodPost, "/reviews", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, purges)

	rec = serve(e, http.MethodDelete, "/titles/4", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	serve(e, http.MethodPost, "/broken", nil)
	assert.Equal(t, 1, purges)
}

func TestInvalidateOnSuccessIgnoresPurgeFailure(t *testing.T) {
	e := echo.New()
	e.DELETE("/titles/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		InvalidateOnSuccess(func(context.Context) (int64, error) { return 0, errors.New("redis down") }))

	rec := serve(e, http.MethodDelete, "/titles/4", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
