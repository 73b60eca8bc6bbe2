package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimart-ng/marketplace-backend/api/middleware"
	checkoutsvc "github.com/unimart-ng/marketplace-backend/internal/checkout"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
)

type stubCheckout struct {
	quoted  *checkoutsvc.QuoteInput
	started *checkoutsvc.QuoteInput
}

func (s *stubCheckout) Quote(_ context.Context, input checkoutsvc.QuoteInput) (*checkoutsvc.QuoteResult, error) {
	s.quoted = &input
	return &checkoutsvc.QuoteResult{Total: 10600, Currency: enums.CurrencyNGN}, nil
}

func (s *stubCheckout) Start(_ context.Context, input checkoutsvc.QuoteInput) (*checkoutsvc.StartResult, error) {
	s.started = &input
	return &checkoutsvc.StartResult{CheckoutID: uuid.New()}, nil
}

func checkoutRequestBody(productID, vendorID uuid.UUID, tier string) string {
	return `{"items":[{"product_id":"` + productID.String() + `","quantity":2}],"distance_tiers":{"` + vendorID.String() + `":"` + tier + `"}}`
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestQuoteMapsRequest(t *testing.T) {
	svc := &stubCheckout{}
	productID, vendorID, userID := uuid.New(), uuid.New(), uuid.New()
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(checkoutRequestBody(productID, vendorID, "mid"))), userID)
	rec := httptest.NewRecorder()

	Quote(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.quoted)
	assert.Equal(t, userID, svc.quoted.UserID)
	require.Len(t, svc.quoted.Lines, 1)
	assert.Equal(t, productID, svc.quoted.Lines[0].ProductID)
	assert.Equal(t, 2, svc.quoted.Lines[0].Quantity)
	assert.Equal(t, enums.DistanceMid, svc.quoted.DistanceTiers[vendorID])
}

func TestStartReturnsCreated(t *testing.T) {
	svc := &stubCheckout{}
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutRequestBody(uuid.New(), uuid.New(), "local"))), uuid.New())
	rec := httptest.NewRecorder()

	Start(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotNil(t, svc.started)
}

func TestCheckoutRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty items", `{"items":[],"distance_tiers":{}}`},
		{"bad tier", checkoutRequestBody(uuid.New(), uuid.New(), "orbit")},
		{"bad vendor key", `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}],"distance_tiers":{"nope":"local"}}`},
		{"zero quantity", `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":0}],"distance_tiers":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubCheckout{}
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(tt.body)), uuid.New())
			rec := httptest.NewRecorder()
			Start(svc, nil).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.started)
		})
	}
}

func TestCheckoutRequiresUser(t *testing.T) {
	svc := &stubCheckout{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutRequestBody(uuid.New(), uuid.New(), "local")))
	rec := httptest.NewRecorder()
	Start(svc, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
