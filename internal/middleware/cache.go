package middleware

// cache.go implements a small Redis-backed response cache for the
// read-heavy schedule and summary endpoints.  Keys are namespaced per
// runsheet so a committed show-call change can invalidate exactly the
// runsheet it touched; the TTL is only a backstop.  With no Redis
// client the middleware is a pass-through.

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/stagehand/showcall/internal/config"
)

// bodyCapture buffers a response body while forwarding it to the client.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// runsheetCacheKey builds the cache key for one request.  The runsheet
// id is a dedicated key segment so invalidation can target a single
// runsheet's entries with one pattern scan.
func runsheetCacheKey(prefix string, c echo.Context) string {
	return fmt.Sprintf("%s:rs:%s:%s?%s", prefix, c.Param("id"), c.Path(), c.Request().URL.RawQuery)
}

// NewRunsheetCache returns a middleware caching successful JSON GET
// responses of runsheet-scoped routes.  Only 200 responses are stored.
func NewRunsheetCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := runsheetCacheKey(cfg.Prefix, c)

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil && len(body) > 0 {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.buf.Len() > 0 {
				_ = rdb.SetEx(context.Background(), key, cw.buf.Bytes(), cfg.TTL).Err()
			}
			return nil
		}
	}
}

// InvalidateRunsheet removes every cached response for the given
// runsheet.  The coordinator calls it after each commit so observers
// that refetch on a broadcast never read a pre-transition snapshot.
func InvalidateRunsheet(rdb *redis.Client, prefix string, runsheetID uint64) {
	if rdb == nil {
		return
	}
	ctx := context.Background()
	pattern := fmt.Sprintf("%s:rs:%d:*", prefix, runsheetID)
	iter := rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("cache: delete %s failed: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: scan %s failed: %v", pattern, err)
	}
}
