package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func paymentRequest(body, key string, actor auth.Actor) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/9f1c/payments", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithActor(req.Context(), actor))
}

func staffActor() auth.Actor {
	return auth.Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: enums.RoleStaff}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	called := false
	handler := Idempotency(newFakeStore(), time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, paymentRequest(`{"amount_cents":100}`, "", staffActor()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatal("handler should not run without idempotency key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, 2*time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"amount_cents":100}}`))
	}))
	actor := staffActor()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, paymentRequest(`{"amount_cents":100}`, "pay-1", actor))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, paymentRequest(`{"amount_cents":100}`, "pay-1", actor))
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replay 201 got %d", replay.Code)
	}
	if replay.Header().Get("Idempotent-Replay") != "true" {
		t.Fatal("expected replay marker header")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"data":{"amount_cents":100}}` {
		t.Fatalf("unexpected replay body %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, expected 1", calls)
	}
	for _, ttl := range store.ttls {
		if ttl != 2*time.Hour {
			t.Fatalf("expected ttl 2h got %v", ttl)
		}
	}

	// same key from another tenant is a fresh request
	other := httptest.NewRecorder()
	handler.ServeHTTP(other, paymentRequest(`{"amount_cents":100}`, "pay-1", staffActor()))
	if calls != 2 {
		t.Fatalf("expected tenant-scoped keys, handler ran %d times", calls)
	}
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	actor := staffActor()
	handler.ServeHTTP(httptest.NewRecorder(), paymentRequest(`{"amount_cents":100}`, "pay-2", actor))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, paymentRequest(`{"amount_cents":200}`, "pay-2", actor))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencySkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	actor := staffActor()
	handler.ServeHTTP(httptest.NewRecorder(), paymentRequest(`{}`, "pay-3", actor))
	handler.ServeHTTP(httptest.NewRecorder(), paymentRequest(`{}`, "pay-3", actor))
	if calls != 2 {
		t.Fatalf("expected retry after server error, handler ran %d times", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored, got %d records", len(store.data))
	}
}

func TestIdempotencyRejectsDuplicateWhileInFlight(t *testing.T) {
	store := newFakeStore()
	actor := staffActor()
	calls := 0
	var duplicate, changed *httptest.ResponseRecorder
	var handler http.Handler
	handler = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// a retry lands while the first request is still running
			duplicate = httptest.NewRecorder()
			handler.ServeHTTP(duplicate, paymentRequest(`{"amount_cents":100}`, "pay-4", actor))
			changed = httptest.NewRecorder()
			handler.ServeHTTP(changed, paymentRequest(`{"amount_cents":999}`, "pay-4", actor))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, paymentRequest(`{"amount_cents":100}`, "pay-4", actor))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, expected 1", calls)
	}
	if duplicate.Code != http.StatusConflict || !strings.Contains(duplicate.Body.String(), string(pkgerrors.CodeConflict)) {
		t.Fatalf("expected in-progress conflict, got %d %s", duplicate.Code, duplicate.Body.String())
	}
	if !strings.Contains(changed.Body.String(), string(pkgerrors.CodeIdempotency)) {
		t.Fatalf("expected key reuse error, got %d %s", changed.Code, changed.Body.String())
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, paymentRequest(`{"amount_cents":100}`, "pay-4", actor))
	if replay.Code != http.StatusCreated || replay.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("expected stored replay after completion, got %d", replay.Code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times after replay, expected 1", calls)
	}
}
