package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-tracker/internal/config"
	"github.com/iliyamo/movie-tracker/internal/logging"
)

// bodyRecorder copies the response body while it is written to the client.
// Once more than limit bytes have been written the copy is dropped and
// overflow is set.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	limit    int64
	body     bytes.Buffer
	overflow bool
}

func (w *bodyRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && int64(w.body.Len()+len(b)) > w.limit {
			w.overflow = true
			w.body.Reset()
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the request parts named by the key strategy ("route",
// "method", "query", joined by "_") into "<prefix>:<sha256>". Path parameter
// values are always included so /movies/1 and /movies/2 differ.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	h := sha256.New()
	for _, part := range strings.Split(strings.ToLower(cfg.KeyStrategy), "_") {
		switch part {
		case "method":
			fmt.Fprintf(h, "m=%s;", r.Method)
		case "query":
			fmt.Fprintf(h, "q=%s;", r.URL.Query().Encode())
		}
	}
	fmt.Fprintf(h, "r=%s;p=%s", c.Path(), strings.Join(c.ParamValues(), "/"))
	return cfg.Prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// cachedResponse is what a cache entry holds. Catalog reads are JSON only, so
// the content type is the one header worth replaying.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func encodePayload(r cachedResponse) ([]byte, error) { return json.Marshal(r) }

func decodePayload(bs []byte) (cachedResponse, bool) {
	var r cachedResponse
	if err := json.Unmarshal(bs, &r); err != nil || r.Status == 0 {
		return cachedResponse{}, false
	}
	return r, true
}

// NewRedisCache serves repeated catalog reads from Redis. Only 200 responses
// are stored, with their content type, for cfg.TTL. Responses larger than
// MaxBodyBytes are not cached.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)
	log := logging.Component("cache")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if hit, ok := decodePayload(bs); ok {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(hit.Status, hit.ContentType, hit.Body)
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}
			payload, err := encodePayload(cachedResponse{
				Status:      rec.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				return nil
			}
			// the request context may already be done once the client has its answer
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				log.Debug().Err(err).Str("key", key).Msg("cache store failed")
			}
			return nil
		}
	}
}

// PurgeCache deletes every cached response under prefix, walking the
// keyspace with SCAN, and returns the number of keys removed.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+":*", 200).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("delete cache keys: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
