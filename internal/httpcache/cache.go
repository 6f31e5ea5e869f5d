// Package httpcache memoizes GET responses per tenant, route and query under
// a TTL. Keys are stable: query parameter order and empty values do not
// change them.
package httpcache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/tenancy"
)

// ErrMiss is returned by a Store when the key has no live entry.
var ErrMiss = errors.New("cache miss")

// ErrUnavailable wraps store lookup failures. Lookups are fatal for the
// request; writes are best-effort. The asymmetry is deliberate.
var ErrUnavailable = errors.New("cache unavailable")

// Store is the shared cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// StableQuery canonicalizes query parameters: empty values dropped, keys
// sorted, URL-encoded k=v pairs joined by '&'.
func StableQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if strings.TrimSpace(values.Get(key)) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(values.Get(key)))
	}
	return strings.Join(parts, "&")
}

// Key builds the lookup key for one tenant, route and query. SHA-1 keeps the
// key fixed-width; it is a lookup key, not a security boundary.
func Key(organizationID, route string, query url.Values) string {
	raw := "org:" + organizationID + ":" + route + ":" + StableQuery(query)
	sum := sha1.Sum([]byte(raw))
	return "cache:" + hex.EncodeToString(sum[:])
}

// Config carries the cache settings relevant to the middleware.
type Config struct {
	Enabled bool
	TTL     time.Duration
}

// Middleware caches successful JSON responses for the named route. It applies
// only to GET requests with a resolved tenant. A lookup failure fails the
// request; a write failure is logged and swallowed.
func Middleware(store Store, cfg Config, route string, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled || store == nil || c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			organizationID, ok := tenancy.OrganizationFromContext(ctx)
			if !ok {
				return next(c)
			}

			key := Key(organizationID, route, c.QueryParams())
			cached, err := store.Get(ctx, key)
			if err == nil {
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, cached)
			}
			if !errors.Is(err, ErrMiss) {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			recorder := newResponseRecorder(c)
			err = next(c)
			recorder.restore(c)
			if err != nil {
				return err
			}
			if recorder.status == http.StatusOK && recorder.body.Len() > 0 {
				body := append([]byte(nil), recorder.body.Bytes()...)
				go func() {
					storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := store.Set(storeCtx, key, body, cfg.TTL); err != nil {
						log.Warn("cache write failed", "route", route, "error", err)
					}
				}()
			}
			return nil
		}
	}
}
