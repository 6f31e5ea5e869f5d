package observability

import (
	"context"
	"io"
	"log/slog"
)

type requestAwareHandler struct {
	next slog.Handler
}

// WrapSlogHandler adds request and trace correlation fields to structured logs.
func WrapSlogHandler(next slog.Handler) slog.Handler {
	if next == nil {
		next = slog.NewTextHandler(io.Discard, nil)
	}
	return &requestAwareHandler{next: next}
}

func (h *requestAwareHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *requestAwareHandler) Handle(ctx context.Context, record slog.Record) error {
	if requestID, ok := RequestIDFromContext(ctx); ok {
		record.AddAttrs(slog.String("request_id", requestID))
	}
	if route, ok := RouteFromContext(ctx); ok {
		record.AddAttrs(slog.String("route", route))
	}
	if userID, ok := UserIDFromContext(ctx); ok {
		record.AddAttrs(slog.String("user_id", userID))
	}
	if organizationID, ok := OrgIDFromContext(ctx); ok {
		record.AddAttrs(slog.String("org_id", organizationID))
	}
	if traceID, spanID, ok := SpanIDs(ctx); ok {
		record.AddAttrs(
			slog.String("trace_id", traceID),
			slog.String("span_id", spanID),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h *requestAwareHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &requestAwareHandler{next: h.next.WithAttrs(attrs)}
}

func (h *requestAwareHandler) WithGroup(name string) slog.Handler {
	return &requestAwareHandler{next: h.next.WithGroup(name)}
}
