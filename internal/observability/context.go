// Package observability carries request metadata through context and into
// structured logs.
package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	userIDContextKey contextKey = "observability.user_id"
	orgIDContextKey  contextKey = "observability.org_id"
	requestIDKey     contextKey = "observability.request_id"
	routeKey         contextKey = "observability.route"
)

// WithRequestIdentity records the resolved user and organization on the context.
func WithRequestIdentity(ctx context.Context, userID, organizationID string) context.Context {
	if userID = strings.TrimSpace(userID); userID != "" {
		ctx = context.WithValue(ctx, userIDContextKey, userID)
	}
	if organizationID = strings.TrimSpace(organizationID); organizationID != "" {
		ctx = context.WithValue(ctx, orgIDContextKey, organizationID)
	}
	return ctx
}

// WithRequestMetadata records the request id and normalized route on the context.
func WithRequestMetadata(ctx context.Context, requestID, route string) context.Context {
	if requestID = strings.TrimSpace(requestID); requestID != "" {
		ctx = context.WithValue(ctx, requestIDKey, requestID)
	}
	if route = strings.TrimSpace(route); route != "" {
		ctx = context.WithValue(ctx, routeKey, route)
	}
	return ctx
}

// UserIDFromContext extracts the request user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(userIDContextKey).(string)
	return value, ok && value != ""
}

// OrgIDFromContext extracts the active organization id.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(orgIDContextKey).(string)
	return value, ok && value != ""
}

// RequestIDFromContext extracts the request id.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(requestIDKey).(string)
	return value, ok && value != ""
}

// RouteFromContext extracts the normalized route path.
func RouteFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(routeKey).(string)
	return value, ok && value != ""
}

// SpanIDs returns trace and span ids when an active span is recording.
func SpanIDs(ctx context.Context) (traceID, spanID string, ok bool) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
