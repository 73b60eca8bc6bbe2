package vendorcontext

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/api/middleware"
	"github.com/unimart-ng/marketplace-backend/api/validators"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

// VendorIDParam is the chi path parameter naming the vendor.
const VendorIDParam = "vendorId"

// VendorLookup loads a vendor by id.
type VendorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

// ResolveUserID returns the authenticated caller.
func ResolveUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// ResolveOwnedVendor loads the vendor in the path and enforces that the caller owns it.
func ResolveOwnedVendor(r *http.Request, vendors VendorLookup) (*models.Vendor, error) {
	userID, err := ResolveUserID(r)
	if err != nil {
		return nil, err
	}
	vendorID, err := validators.ParseUUIDParam(r, VendorIDParam)
	if err != nil {
		return nil, err
	}
	if vendors == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vendor repository unavailable")
	}

	vendor, err := vendors.FindByID(r.Context(), vendorID)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	if vendor.OwnerUserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required")
	}
	return vendor, nil
}
