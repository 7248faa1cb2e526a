package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stockdesk-backend/internal/deals"
	"github.com/angelmondragon/stockdesk-backend/internal/orders"
	productsvc "github.com/angelmondragon/stockdesk-backend/internal/products"
	pkgAuth "github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/config"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

// Embedded interfaces panic on any method a test does not override.
type stubOrders struct {
	orders.Service
	lastActor pkgAuth.Actor
}

func (s *stubOrders) ListOrders(_ context.Context, actor pkgAuth.Actor, _ orders.ListOrdersInput) (*pagination.Page[orders.OrderDTO], error) {
	s.lastActor = actor
	return &pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{{ID: uuid.New(), Status: enums.OrderStatusReserved}}}, nil
}

func (s *stubOrders) UpdateOrderStatus(_ context.Context, _ pkgAuth.Actor, _ uuid.UUID, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	if input.Status == enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "draft cannot move to delivered")
	}
	return &orders.OrderDTO{ID: uuid.New(), Status: input.Status}, nil
}

type stubProducts struct {
	productsvc.Service
	created int
}

func (s *stubProducts) CreateProduct(_ context.Context, _ pkgAuth.Actor, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	s.created++
	return &productsvc.ProductDTO{ID: uuid.New(), SKU: input.SKU, Name: input.Name, IsActive: input.IsActive}, nil
}

type stubDeals struct {
	deals.Service
	quoted int
}

func (s *stubDeals) QuoteActive(_ context.Context, _ uuid.UUID, dealID uuid.UUID, quantity int) (*deals.Quote, error) {
	s.quoted = quantity
	return &deals.Quote{DealID: dealID, Quantity: quantity, UnitPriceCents: 900, TotalCents: 900 * quantity}, nil
}

type memoryIdempotency struct {
	data map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotency) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string { return scope + ":" + id }

type fixture struct {
	handler  http.Handler
	cfg      *config.Config
	orders   *stubOrders
	products *stubProducts
	deals    *stubDeals
}

func newFixture(t *testing.T, portalOpen bool) *fixture {
	t.Helper()
	cfg := &config.Config{
		App:          config.AppConfig{Env: "test"},
		JWT:          config.JWTConfig{Secret: "secret", Issuer: "stockdesk", ExpirationMinutes: 60},
		FeatureFlags: config.FeatureFlagsConfig{PortalOpen: portalOpen},
		CORS:         config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Idempotency:  config.IdempotencyConfig{TTL: time.Hour},
	}
	f := &fixture{
		cfg:      cfg,
		orders:   &stubOrders{},
		products: &stubProducts{},
		deals:    &stubDeals{},
	}
	f.handler = NewRouter(Dependencies{
		Config:      cfg,
		Logger:      logger.Nop(),
		DB:          stubPinger{},
		Redis:       stubPinger{err: errors.New("connection refused")},
		Idempotency: &memoryIdempotency{data: map[string]string{}},
		Gatherer:    prometheus.NewRegistry(),
		Orders:      f.orders,
		Products:    f.products,
		Deals:       f.deals,
	})
	return f
}

func (f *fixture) token(t *testing.T, role enums.Role, clientID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		ClientID: clientID,
		Role:     role,
	})
	require.NoError(t, err)
	return token
}

func (f *fixture) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, true)

	live := f.do(http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, live.Code)

	ready := f.do(http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
	assert.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, ready))

	metrics := f.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
}

func TestBackOfficeRequiresStaffToken(t *testing.T) {
	f := newFixture(t, true)

	anonymous := f.do(http.MethodGet, "/api/v1/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	clientID := uuid.New()
	client := f.do(http.MethodGet, "/api/v1/orders", f.token(t, enums.RoleClient, &clientID), "")
	assert.Equal(t, http.StatusForbidden, client.Code)

	staff := f.do(http.MethodGet, "/api/v1/orders?status=reserved", f.token(t, enums.RoleStaff, nil), "")
	assert.Equal(t, http.StatusOK, staff.Code)
	assert.Equal(t, enums.RoleStaff, f.orders.lastActor.Role)

	badFilter := f.do(http.MethodGet, "/api/v1/orders?status=shipped", f.token(t, enums.RoleAdmin, nil), "")
	assert.Equal(t, http.StatusBadRequest, badFilter.Code)
}

func TestPortalRoutesRequireClientRole(t *testing.T) {
	f := newFixture(t, true)
	clientID := uuid.New()
	dealID := uuid.New()

	staff := f.do(http.MethodGet, "/api/v1/portal/orders", f.token(t, enums.RoleStaff, nil), "")
	assert.Equal(t, http.StatusForbidden, staff.Code)

	own := f.do(http.MethodGet, "/api/v1/portal/orders", f.token(t, enums.RoleClient, &clientID), "")
	assert.Equal(t, http.StatusOK, own.Code)
	require.NotNil(t, f.orders.lastActor.ClientID)
	assert.Equal(t, clientID, *f.orders.lastActor.ClientID)

	quote := f.do(http.MethodGet, "/api/v1/portal/deals/"+dealID.String()+"/quote?quantity=12", f.token(t, enums.RoleClient, &clientID), "")
	assert.Equal(t, http.StatusOK, quote.Code)
	assert.Equal(t, 12, f.deals.quoted)
}

func TestPortalClosedByFlag(t *testing.T) {
	f := newFixture(t, false)
	clientID := uuid.New()
	resp := f.do(http.MethodGet, "/api/v1/portal/deals", f.token(t, enums.RoleClient, &clientID), "")
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestStatusTransitionErrorsMapToStatusCodes(t *testing.T) {
	f := newFixture(t, true)
	token := f.token(t, enums.RoleStaff, nil)
	path := "/api/v1/orders/" + uuid.NewString() + "/status"

	ok := f.do(http.MethodPost, path, token, `{"status":"reserved"}`)
	assert.Equal(t, http.StatusOK, ok.Code)

	conflict := f.do(http.MethodPost, path, token, `{"status":"delivered"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, conflict.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), errorCode(t, conflict))

	invalid := f.do(http.MethodPost, path, token, `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, invalid.Code)

	badID := f.do(http.MethodPost, "/api/v1/orders/not-an-id/status", token, `{"status":"reserved"}`)
	assert.Equal(t, http.StatusBadRequest, badID.Code)
}

func TestCreateRoutesAreIdempotent(t *testing.T) {
	f := newFixture(t, true)
	token := f.token(t, enums.RoleAdmin, nil)
	body := `{"sku":"CRT-01","name":"Cartridge","condition":"new","price_cents":1500,"initial_stock":4,"low_stock_threshold":1}`

	missingKey := f.do(http.MethodPost, "/api/v1/products", token, body)
	assert.Equal(t, http.StatusBadRequest, missingKey.Code)
	assert.Zero(t, f.products.created)

	first := f.do(http.MethodPost, "/api/v1/products", token, body, "Idempotency-Key", "prod-1")
	require.Equal(t, http.StatusCreated, first.Code)

	replay := f.do(http.MethodPost, "/api/v1/products", token, body, "Idempotency-Key", "prod-1")
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, 1, f.products.created)
}
