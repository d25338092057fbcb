package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fakeStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

// writeHookStore runs beforeWrite ahead of every Set and Del so a test can
// slip a retry in between the handler finishing and its record landing.
type writeHookStore struct {
	*fakeStore
	beforeWrite func()
}

func (h *writeHookStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if h.beforeWrite != nil {
		h.beforeWrite()
	}
	return h.fakeStore.Set(ctx, key, value, ttl)
}

func (h *writeHookStore) Del(ctx context.Context, keys ...string) error {
	if h.beforeWrite != nil {
		h.beforeWrite()
	}
	return h.fakeStore.Del(ctx, keys...)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}

const stockPattern = "/api/admin/v1/products/{productId}/stock"

func stockRequest(key, body string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/admin/v1/products/p1/stock", stockPattern, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	mw := Idempotency(newFakeStore(), 0, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, stockRequest("", `{"quantity":1,"action":"increase"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"quantity":2,"action":"decrease"}` {
			t.Errorf("handler saw body %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"stock":3}}`))
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, stockRequest("abc", `{"quantity":2,"action":"decrease"}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected first response 200 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, stockRequest("abc", `{"quantity":2,"action":"decrease"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected replay status 200 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if rec.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{"stock":3}}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), 0, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), stockRequest("xyz", `{"quantity":1,"action":"increase"}`))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, stockRequest("xyz", `{"quantity":9,"action":"increase"}`))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if code := errorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, code)
	}
}

func TestIdempotencyMiddlewareRefusesInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		mw(handler).ServeHTTP(httptest.NewRecorder(), stockRequest("dup", `{"quantity":1,"action":"decrease"}`))
	}()
	<-entered

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, stockRequest("dup", `{"quantity":1,"action":"decrease"}`))
	close(release)
	<-done

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for in-flight duplicate got %d", resp.Code)
	}
	if calls != 1 {
		t.Fatalf("expected a single execution, got %d", calls)
	}
}

func TestIdempotencyMiddlewareReleasesKeyAfterServerError(t *testing.T) {
	mw := Idempotency(newFakeStore(), 0, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, stockRequest("retry", `{}`))
	second := httptest.NewRecorder()
	mw(handler).ServeHTTP(second, stockRequest("retry", `{}`))

	if first.Code != http.StatusServiceUnavailable || second.Code != http.StatusOK {
		t.Fatalf("unexpected statuses %d then %d", first.Code, second.Code)
	}
	if calls != 2 {
		t.Fatalf("expected the retry to run the handler, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareScopesByRoute(t *testing.T) {
	mw := Idempotency(newFakeStore(), 0, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), stockRequest("same", `{}`))
	other := requestWithPattern(http.MethodPost, "/api/admin/v1/products/p2/stock", stockPattern, strings.NewReader(`{}`))
	other.Header.Set(IdempotencyHeader, "same")
	mw(handler).ServeHTTP(httptest.NewRecorder(), other)

	if calls != 2 {
		t.Fatalf("same key on another resource must not replay, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareStoreFailure(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	mw(handler).ServeHTTP(httptest.NewRecorder(), stockRequest("k", `{}`))
	store.getErr = errors.New("redis down")

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, stockRequest("k", `{}`))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestIdempotencyMiddlewareRetryWhileRecordIsWritten(t *testing.T) {
	store := &writeHookStore{fakeStore: newFakeStore()}
	mw := Idempotency(store, time.Hour, nil)

	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"stock":1}}`))
	})
	const body = `{"quantity":2,"action":"decrease"}`

	var retry *httptest.ResponseRecorder
	store.beforeWrite = func() {
		if retry != nil {
			return
		}
		retry = httptest.NewRecorder()
		mw(handler).ServeHTTP(retry, stockRequest("window", body))
	}

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, stockRequest("window", body))

	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	if first.Code != http.StatusOK {
		t.Fatalf("expected first response 200 got %d", first.Code)
	}
	if retry == nil || retry.Code != http.StatusConflict {
		t.Fatalf("expected retry during write to be refused, got %+v", retry)
	}

	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, stockRequest("window", body))
	if replay.Code != http.StatusOK || replay.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("expected stored response replayed, got %d", replay.Code)
	}
	if calls != 1 {
		t.Fatalf("replay must not run the handler, got %d calls", calls)
	}
}
