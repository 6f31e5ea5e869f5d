package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerAddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(WrapSlogHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRequestMetadata(context.Background(), "req-42", "/api/v1/posts")
	ctx = WithRequestIdentity(ctx, "user-1", "org-1")

	log.InfoContext(ctx, "handled")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-42"`, `"route":"/api/v1/posts"`, `"user_id":"user-1"`, `"org_id":"org-1"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line missing %s: %s", want, out)
		}
	}
}

func TestHandlerSkipsAbsentFields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(WrapSlogHandler(slog.NewJSONHandler(&buf, nil)))

	log.InfoContext(context.Background(), "handled")

	out := buf.String()
	for _, unwanted := range []string{"request_id", "org_id", "trace_id"} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("log line should not carry %s: %s", unwanted, out)
		}
	}
}
