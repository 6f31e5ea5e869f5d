// Package idempotency deduplicates mutating requests keyed by
// (organization, route, client-supplied key) and replays stored responses.
package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/tenancy"
)

// KeyHeader carries the client-generated idempotency key.
const KeyHeader = "Idempotency-Key"

// StatusHeader reports whether the response was replayed (HIT) or freshly
// computed and stored (MISS).
const StatusHeader = "Idempotency-Status"

const (
	statusHit  = "HIT"
	statusMiss = "MISS"
)

// ErrHeadersMissing is returned when a mutating request lacks the tenant or
// idempotency key header.
var ErrHeadersMissing = errors.New("idempotency headers missing")

// ErrConflict is returned when a key is replayed with a different body.
var ErrConflict = errors.New("idempotency key reused with different request body")

// ErrNotFound is returned by a RecordStore when no record exists.
var ErrNotFound = errors.New("idempotency record not found")

// ErrDuplicate is returned by a RecordStore when a concurrent creator won the
// unique-constraint race for (organization, route, key).
var ErrDuplicate = errors.New("idempotency record already exists")

// Record tracks one sighting of an idempotency key.
type Record struct {
	OrganizationID string
	Route          string
	Key            string
	BodyHash       string
	ResponseStatus int
	ResponseBody   []byte
	Completed      bool
	CreatedAt      time.Time
}

// RecordStore persists idempotency records. The backing table must enforce
// uniqueness on (organization, route, key); the coordinator relies on it to
// resolve concurrent first sightings.
type RecordStore interface {
	GetRecord(ctx context.Context, organizationID, route, key string) (Record, error)
	CreateRecord(ctx context.Context, r Record) error
	SaveResponse(ctx context.Context, organizationID, route, key string, status int, body []byte) error
}

// BodyHash digests the canonical request body. The body is already its
// serialized form, so raw bytes are hashed as-is; an absent body
// canonicalizes to an empty JSON object.
func BodyHash(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Middleware coordinates idempotent execution of mutating requests.
//
// Creation races are resolved by the storage uniqueness constraint: the
// losing creator retries as a lookup rather than duplicating side effects.
// A record that exists without a response (in-flight or previously failed)
// re-executes as a miss.
func Middleware(store RecordStore, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !mutating(c.Request().Method) {
				return next(c)
			}
			ctx := c.Request().Context()
			organizationID, ok := tenancy.OrganizationFromContext(ctx)
			key := strings.TrimSpace(c.Request().Header.Get(KeyHeader))
			if !ok || key == "" {
				return ErrHeadersMissing
			}

			route := c.Request().Method + " " + normalizedPath(c)

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return fmt.Errorf("read request body: %w", err)
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))
			hash := BodyHash(body)

			record, err := store.GetRecord(ctx, organizationID, route, key)
			switch {
			case err == nil:
				return resolveExisting(c, store, log, record, hash, next)
			case errors.Is(err, ErrNotFound):
				// fall through to create
			default:
				return fmt.Errorf("lookup idempotency record: %w", err)
			}

			createErr := store.CreateRecord(ctx, Record{
				OrganizationID: organizationID,
				Route:          route,
				Key:            key,
				BodyHash:       hash,
				CreatedAt:      time.Now().UTC(),
			})
			if createErr != nil {
				if !errors.Is(createErr, ErrDuplicate) {
					return fmt.Errorf("create idempotency record: %w", createErr)
				}
				// Lost the first-sighting race; the winner's record decides.
				record, err = store.GetRecord(ctx, organizationID, route, key)
				if err != nil {
					return fmt.Errorf("reread idempotency record: %w", err)
				}
				return resolveExisting(c, store, log, record, hash, next)
			}

			return execute(c, store, log, organizationID, route, key, next)
		}
	}
}

// resolveExisting handles a request whose (org, route, key) already has a record.
func resolveExisting(c echo.Context, store RecordStore, log *slog.Logger, record Record, hash string, next echo.HandlerFunc) error {
	if record.BodyHash != hash {
		return ErrConflict
	}
	if record.Completed {
		c.Response().Header().Set(StatusHeader, statusHit)
		return c.Blob(record.ResponseStatus, echo.MIMEApplicationJSON, record.ResponseBody)
	}
	// Pending record: re-execute as a miss.
	return execute(c, store, log, record.OrganizationID, record.Route, record.Key, next)
}

// execute runs the handler and finalizes the record on success. A finalize
// failure is swallowed: this call still returns the correct response, only
// future replay fidelity degrades.
func execute(c echo.Context, store RecordStore, log *slog.Logger, organizationID, route, key string, next echo.HandlerFunc) error {
	c.Response().Header().Set(StatusHeader, statusMiss)
	recorder := newResponseRecorder(c)
	err := next(c)
	recorder.restore(c)
	if err != nil {
		return err
	}
	if recorder.status >= http.StatusOK && recorder.status < http.StatusMultipleChoices {
		saved := append([]byte(nil), recorder.body.Bytes()...)
		if err := store.SaveResponse(c.Request().Context(), organizationID, route, key, recorder.status, saved); err != nil {
			log.Warn("idempotency finalize failed", "route", route, "error", err)
		}
	}
	return nil
}

func normalizedPath(c echo.Context) string {
	path := strings.TrimSpace(c.Path())
	if path == "" {
		path = c.Request().URL.Path
	}
	return path
}
