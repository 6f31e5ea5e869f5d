package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/tenancy"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRecordStore struct {
	mu       sync.Mutex
	records  map[string]Record
	saveErr  error
	loseRace bool // simulate losing the unique-constraint race once
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: map[string]Record{}}
}

func recordKey(orgID, route, key string) string {
	return orgID + "|" + route + "|" + key
}

func (f *fakeRecordStore) GetRecord(_ context.Context, orgID, route, key string) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[recordKey(orgID, route, key)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeRecordStore) CreateRecord(_ context.Context, r Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := recordKey(r.OrganizationID, r.Route, r.Key)
	if f.loseRace {
		// Another request created the record between lookup and create.
		f.loseRace = false
		f.records[k] = Record{
			OrganizationID: r.OrganizationID,
			Route:          r.Route,
			Key:            r.Key,
			BodyHash:       r.BodyHash,
			ResponseStatus: http.StatusCreated,
			ResponseBody:   []byte(`{"id":"winner"}`),
			Completed:      true,
		}
		return ErrDuplicate
	}
	if _, exists := f.records[k]; exists {
		return ErrDuplicate
	}
	f.records[k] = r
	return nil
}

func (f *fakeRecordStore) SaveResponse(_ context.Context, orgID, route, key string, status int, body []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := recordKey(orgID, route, key)
	r := f.records[k]
	r.ResponseStatus = status
	r.ResponseBody = body
	r.Completed = true
	f.records[k] = r
	return nil
}

func doRequest(t *testing.T, store RecordStore, key, body string, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", reader)
	if key != "" {
		req.Header.Set(KeyHeader, key)
	}
	req = req.WithContext(tenancy.WithOrganization(req.Context(), "org-1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/posts")

	return rec, Middleware(store, testLog)(handler)(c)
}

func TestReplayReturnsStoredResponse(t *testing.T) {
	store := newFakeRecordStore()
	calls := 0
	handler := func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, map[string]string{"id": "p-1"})
	}

	first, err := doRequest(t, store, "key-1", `{"title":"hello"}`, handler)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if first.Header().Get(StatusHeader) != "MISS" {
		t.Fatalf("expected MISS on first call, got %q", first.Header().Get(StatusHeader))
	}

	second, err := doRequest(t, store, "key-1", `{"title":"hello"}`, handler)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Header().Get(StatusHeader) != "HIT" {
		t.Fatalf("expected HIT on replay, got %q", second.Header().Get(StatusHeader))
	}
	if second.Code != first.Code || second.Body.String() != first.Body.String() {
		t.Fatalf("expected byte-identical replay, got %d %q vs %d %q",
			first.Code, first.Body.String(), second.Code, second.Body.String())
	}
}

func TestConflictOnDifferentBody(t *testing.T) {
	store := newFakeRecordStore()
	calls := 0
	handler := func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, map[string]string{"id": "p-1"})
	}

	if _, err := doRequest(t, store, "key-1", `{"title":"hello"}`, handler); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	_, err := doRequest(t, store, "key-1", `{"title":"different"}`, handler)
	if calls != 1 {
		t.Fatalf("expected handler not to re-run on conflict, ran %d times", calls)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMissingKeyHeader(t *testing.T) {
	store := newFakeRecordStore()
	_, err := doRequest(t, store, "", `{}`, func(c echo.Context) error {
		t.Fatal("handler should not run")
		return nil
	})
	if !errors.Is(err, ErrHeadersMissing) {
		t.Fatalf("expected ErrHeadersMissing, got %v", err)
	}
}

func TestCreationRaceRetriesAsLookup(t *testing.T) {
	store := newFakeRecordStore()
	store.loseRace = true

	calls := 0
	rec, err := doRequest(t, store, "key-1", `{"title":"hello"}`, func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, map[string]string{"id": "loser"})
	})
	if err != nil {
		t.Fatalf("race loser failed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected losing request to replay winner's response, handler ran %d times", calls)
	}
	if rec.Header().Get(StatusHeader) != "HIT" {
		t.Fatalf("expected HIT after losing creation race, got %q", rec.Header().Get(StatusHeader))
	}
	if !strings.Contains(rec.Body.String(), "winner") {
		t.Fatalf("expected winner's stored response, got %q", rec.Body.String())
	}
}

func TestPendingRecordReExecutes(t *testing.T) {
	store := newFakeRecordStore()
	store.records[recordKey("org-1", "POST /api/v1/posts", "key-1")] = Record{
		OrganizationID: "org-1",
		Route:          "POST /api/v1/posts",
		Key:            "key-1",
		BodyHash:       BodyHash([]byte(`{"title":"hello"}`)),
	}

	calls := 0
	rec, err := doRequest(t, store, "key-1", `{"title":"hello"}`, func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, map[string]string{"id": "p-1"})
	})
	if err != nil {
		t.Fatalf("pending re-execution failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected pending record to re-execute, handler ran %d times", calls)
	}
	if rec.Header().Get(StatusHeader) != "MISS" {
		t.Fatalf("expected MISS for re-executed pending record, got %q", rec.Header().Get(StatusHeader))
	}
	saved := store.records[recordKey("org-1", "POST /api/v1/posts", "key-1")]
	if !saved.Completed {
		t.Fatal("expected record finalized after re-execution")
	}
}

func TestFinalizeFailureSwallowed(t *testing.T) {
	store := newFakeRecordStore()
	store.saveErr = errors.New("write timeout")

	rec, err := doRequest(t, store, "key-1", `{"title":"hello"}`, func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]string{"id": "p-1"})
	})
	if err != nil {
		t.Fatalf("expected finalize failure to be swallowed, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected handler response despite finalize failure, got %d", rec.Code)
	}
}

func TestBodyHashCanonicalizesEmptyBody(t *testing.T) {
	if BodyHash(nil) != BodyHash([]byte("  ")) {
		t.Fatal("expected absent and blank bodies to hash identically")
	}
	if BodyHash(nil) != BodyHash([]byte("{}")) {
		t.Fatal("expected absent body to canonicalize to empty object")
	}
}

func TestNonMutatingMethodBypassed(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := Middleware(newFakeRecordStore(), testLog)(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if err != nil || !called {
		t.Fatalf("expected GET to bypass coordinator, err=%v called=%v", err, called)
	}
}
