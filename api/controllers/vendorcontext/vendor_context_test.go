package vendorcontext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimart-ng/marketplace-backend/api/middleware"
	"github.com/unimart-ng/marketplace-backend/internal/vendors"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

type stubVendors struct {
	vendor *models.Vendor
}

func (s stubVendors) FindByID(_ context.Context, id uuid.UUID) (*models.Vendor, error) {
	if s.vendor == nil || s.vendor.ID != id {
		return nil, vendors.ErrNotFound
	}
	return s.vendor, nil
}

func vendorRequest(vendorID, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/"+vendorID+"/subscription", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add(VendorIDParam, vendorID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

func TestResolveOwnedVendor(t *testing.T) {
	owner := uuid.New()
	vendor := &models.Vendor{ID: uuid.New(), OwnerUserID: owner}
	lookup := stubVendors{vendor: vendor}

	got, err := ResolveOwnedVendor(vendorRequest(vendor.ID.String(), owner.String()), lookup)
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, got.ID)

	_, err = ResolveOwnedVendor(vendorRequest(vendor.ID.String(), uuid.NewString()), lookup)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = ResolveOwnedVendor(vendorRequest(vendor.ID.String(), ""), lookup)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	_, err = ResolveOwnedVendor(vendorRequest(uuid.NewString(), owner.String()), lookup)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = ResolveOwnedVendor(vendorRequest("bogus", owner.String()), lookup)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
