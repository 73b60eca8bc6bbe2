package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimart-ng/marketplace-backend/api/middleware"
	checkoutsvc "github.com/unimart-ng/marketplace-backend/internal/checkout"
	subsvc "github.com/unimart-ng/marketplace-backend/internal/subscriptions"
	"github.com/unimart-ng/marketplace-backend/internal/vendors"
	"github.com/unimart-ng/marketplace-backend/pkg/config"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubVendors struct {
	vendor *models.Vendor
}

func (s stubVendors) FindByID(_ context.Context, id uuid.UUID) (*models.Vendor, error) {
	if s.vendor == nil || s.vendor.ID != id {
		return nil, vendors.ErrNotFound
	}
	return s.vendor, nil
}

type stubSubscriptions struct{}

func (stubSubscriptions) GetStatus(_ context.Context, vendorID uuid.UUID) (*subsvc.SubscriptionStatus, error) {
	return &subsvc.SubscriptionStatus{VendorID: vendorID}, nil
}

func (stubSubscriptions) StartPlanPurchase(_ context.Context, input subsvc.PurchaseInput) (*subsvc.PurchaseResult, error) {
	return &subsvc.PurchaseResult{Plan: input.Plan, Activated: true}, nil
}

type countingCheckout struct {
	mu     sync.Mutex
	starts int
}

func (c *countingCheckout) Quote(context.Context, checkoutsvc.QuoteInput) (*checkoutsvc.QuoteResult, error) {
	return &checkoutsvc.QuoteResult{}, nil
}

func (c *countingCheckout) Start(context.Context, checkoutsvc.QuoteInput) (*checkoutsvc.StartResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	return &checkoutsvc.StartResult{CheckoutID: uuid.New()}, nil
}

type memoryRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func (m *memoryRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

type harness struct {
	handler  http.Handler
	vendor   *models.Vendor
	checkout *countingCheckout
}

func newHarness(t *testing.T, checkoutLimit int64) *harness {
	t.Helper()
	cfg := &config.Config{
		App:  config.AppConfig{Env: "test"},
		HTTP: config.HTTPConfig{CORSAllowedOrigins: []string{"*"}, CheckoutRateLimit: checkoutLimit},
	}
	vendor := &models.Vendor{ID: uuid.New(), OwnerUserID: uuid.New()}
	store := newMemoryRedis()
	checkout := &countingCheckout{}
	handler := NewRouter(Params{
		Config:        cfg,
		DB:            stubPinger{},
		Redis:         stubPinger{},
		RateLimiter:   store,
		Idempotency:   store,
		Vendors:       stubVendors{vendor: vendor},
		Subscriptions: stubSubscriptions{},
		Checkout:      checkout,
		Gatherer:      prometheus.NewRegistry(),
	})
	return &harness{handler: handler, vendor: vendor, checkout: checkout}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func checkoutBody() string {
	return `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}],"distance_tiers":{"` + uuid.NewString() + `":"local"}}`
}

func TestPublicRoutes(t *testing.T) {
	h := newHarness(t, 10)

	for _, path := range []string{"/health/live", "/health/ready", "/api/v1/plans", "/metrics"} {
		rec := h.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestVendorRoutesRequireUser(t *testing.T) {
	h := newHarness(t, 10)
	path := "/api/v1/vendors/" + h.vendor.ID.String() + "/subscription"

	rec := h.do(httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(middleware.UserIDHeader, h.vendor.OwnerUserID.String())
	rec = h.do(req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(middleware.UserIDHeader, uuid.NewString())
	rec = h.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubscriptionPurchaseRequiresIdempotencyKey(t *testing.T) {
	h := newHarness(t, 10)
	path := "/api/v1/vendors/" + h.vendor.ID.String() + "/subscription"

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"plan_id":"free"}`))
	req.Header.Set(middleware.UserIDHeader, h.vendor.OwnerUserID.String())
	rec := h.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"plan_id":"free"}`))
	req.Header.Set(middleware.UserIDHeader, h.vendor.OwnerUserID.String())
	req.Header.Set("Idempotency-Key", "plan-1")
	rec = h.do(req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCheckoutReplaysWithSameIdempotencyKey(t *testing.T) {
	h := newHarness(t, 10)
	userID := uuid.NewString()
	body := checkoutBody()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
		req.Header.Set(middleware.UserIDHeader, userID)
		req.Header.Set("Idempotency-Key", "checkout-1")
		rec := h.do(req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	assert.Equal(t, 1, h.checkout.starts)
}

func TestCheckoutRateLimited(t *testing.T) {
	h := newHarness(t, 1)
	userID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(checkoutBody()))
	req.Header.Set(middleware.UserIDHeader, userID)
	require.Equal(t, http.StatusOK, h.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(checkoutBody()))
	req.Header.Set(middleware.UserIDHeader, userID)
	assert.Equal(t, http.StatusTooManyRequests, h.do(req).Code)
}

func TestWebhookRouteWithoutDependencies(t *testing.T) {
	h := newHarness(t, 10)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
