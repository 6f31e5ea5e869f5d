package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/fieldline-io/fieldline/internal/authz"
	"github.com/fieldline-io/fieldline/internal/tenancy"
)

func TestInMemoryLimitBoundary(t *testing.T) {
	lim := NewInMemory(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if d := lim.Allow(ctx, "user:u1", 3); !d.Allowed {
			t.Fatalf("call %d should be allowed: %+v", i+1, d)
		}
	}
	d := lim.Allow(ctx, "user:u1", 3)
	if d.Allowed {
		t.Fatalf("call over limit should be rejected: %+v", d)
	}
	if d.Remaining != 0 {
		t.Fatalf("expected zero remaining, got %d", d.Remaining)
	}
}

func TestRedisLimiterWindowElapses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lim := NewRedis(client, time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if d := lim.Allow(ctx, "org:org-1", 2); !d.Allowed {
			t.Fatalf("call %d should be allowed: %+v", i+1, d)
		}
	}
	if d := lim.Allow(ctx, "org:org-1", 2); d.Allowed {
		t.Fatalf("third call within window should be rejected: %+v", d)
	}

	mr.FastForward(2 * time.Second)

	if d := lim.Allow(ctx, "org:org-1", 2); !d.Allowed {
		t.Fatalf("call after window elapsed should be allowed: %+v", d)
	}
}

func TestRedisLimiterFallsBackWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 5 * time.Millisecond,
		ReadTimeout: 5 * time.Millisecond,
		MaxRetries:  0,
	})
	defer client.Close()

	lim := NewRedis(client, time.Minute)
	ctx := context.Background()

	if d := lim.Allow(ctx, "user:u1", 1); !d.Allowed {
		t.Fatalf("first fallback call should be allowed: %+v", d)
	}
	if d := lim.Allow(ctx, "user:u1", 1); d.Allowed {
		t.Fatalf("fallback should still enforce the limit: %+v", d)
	}
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	lim := NewInMemory(time.Minute)
	mw := Middleware(lim, 1)

	call := func() (*httptest.ResponseRecorder, error) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/posts", nil)
		ctx := tenancy.WithOrganization(req.Context(), "org-1")
		ctx = authz.WithIdentity(ctx, authz.Identity{UserID: "u1"})
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		return rec, mw(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c)
	}

	if _, err := call(); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	rec, err := call()
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}
