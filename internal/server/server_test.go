package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/app/ports"
	"github.com/fieldline-io/fieldline/internal/authz"
	"github.com/fieldline-io/fieldline/internal/ratelimit"
	"github.com/fieldline-io/fieldline/internal/tenancy"
)

func invokeErrorHandler(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler(log)(err, c)
	return rec
}

// The request logging middleware wraps handler errors in a 500 HTTPError
// before the error handler sees them. Sentinels must still map to their own
// statuses through that wrapper.
func TestErrorHandlerSeesSentinelsThroughWrapper(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"tenant missing", tenancy.ErrTenantMissing, http.StatusForbidden},
		{"missing identity", authz.ErrMissingIdentity, http.StatusUnauthorized},
		{"insufficient role", authz.ErrInsufficientRole, http.StatusForbidden},
		{"rate limited", ratelimit.ErrRateLimited, http.StatusTooManyRequests},
		{"not found", ports.ErrNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := echo.NewHTTPError(http.StatusInternalServerError).WithInternal(tc.err)
			rec := invokeErrorHandler(t, wrapped)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestErrorHandlerMapsBareSentinel(t *testing.T) {
	rec := invokeErrorHandler(t, tenancy.ErrTenantMissing)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestErrorHandlerKeepsEchoHTTPError(t *testing.T) {
	rec := invokeErrorHandler(t, echo.NewHTTPError(http.StatusBadRequest, "malformed body"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "malformed body" {
		t.Fatalf("expected HTTPError message to pass through, got %q", body["error"])
	}
}

func TestErrorHandlerDefaultsToInternal(t *testing.T) {
	rec := invokeErrorHandler(t, io.ErrUnexpectedEOF)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
