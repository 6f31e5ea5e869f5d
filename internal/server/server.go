// Package server owns the Echo instance and error translation.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/fieldline-io/fieldline/internal/app/ports"
	"github.com/fieldline-io/fieldline/internal/app/services"
	"github.com/fieldline-io/fieldline/internal/authz"
	"github.com/fieldline-io/fieldline/internal/httpcache"
	"github.com/fieldline-io/fieldline/internal/idempotency"
	"github.com/fieldline-io/fieldline/internal/observability"
	"github.com/fieldline-io/fieldline/internal/ratelimit"
	"github.com/fieldline-io/fieldline/internal/tenancy"
)

// RouteRegister registers Echo routes.
type RouteRegister interface {
	RegisterRoutes(s *echo.Echo)
}

// Server holds the Echo instance.
type Server struct {
	e *echo.Echo
}

// New creates a new server instance.
func New(log *slog.Logger) *Server {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(observability.EchoRequestMetadataMiddleware())
	e.Use(slogecho.New(log))
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{
		e: e,
	}
}

// RegisterRouter attaches a route registrar.
func (s *Server) RegisterRouter(r RouteRegister) {
	r.RegisterRoutes(s.e)
}

// Start runs the HTTP server.
func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// Echo exposes the underlying instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

// errorHandler translates domain sentinels into HTTP statuses. Anything
// unrecognized is a 500 and gets logged with request context.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "internal error"

		// Sentinels are matched before *echo.HTTPError: the logging middleware
		// wraps handler errors in a 500 HTTPError, and errors.Is sees through
		// that wrapper while errors.As would stop at it.
		var httpErr *echo.HTTPError
		switch {
		case errors.Is(err, authz.ErrMissingIdentity):
			status, message = http.StatusUnauthorized, "authentication required"
		case errors.Is(err, tenancy.ErrTenantMissing):
			status, message = http.StatusForbidden, "organization header required"
		case errors.Is(err, authz.ErrNoMembership), errors.Is(err, authz.ErrInsufficientRole):
			status, message = http.StatusForbidden, "forbidden"
		case errors.Is(err, idempotency.ErrHeadersMissing):
			status, message = http.StatusBadRequest, "Idempotency-Key header required"
		case errors.Is(err, idempotency.ErrConflict):
			status, message = http.StatusBadRequest, "idempotency key reused with a different request body"
		case errors.Is(err, services.ErrValidation):
			status, message = http.StatusBadRequest, err.Error()
		case errors.Is(err, services.ErrLastAdmin):
			status, message = http.StatusConflict, err.Error()
		case errors.Is(err, ratelimit.ErrRateLimited):
			status, message = http.StatusTooManyRequests, "rate limit exceeded"
		case errors.Is(err, httpcache.ErrUnavailable):
			status, message = http.StatusServiceUnavailable, "temporarily unavailable"
		case errors.Is(err, ports.ErrNotFound):
			status, message = http.StatusNotFound, "not found"
		case errors.As(err, &httpErr):
			status = httpErr.Code
			if m, ok := httpErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		}

		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "request failed", "error", err)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, map[string]string{"error": message})
	}
}
