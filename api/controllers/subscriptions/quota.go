package subscriptions

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/api/controllers/vendorcontext"
	"github.com/unimart-ng/marketplace-backend/api/responses"
	product "github.com/unimart-ng/marketplace-backend/internal/products"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
)

// QuotaChecker reports the listing allowance of the vendor's plan.
type QuotaChecker interface {
	CheckListingQuota(ctx context.Context, vendorID uuid.UUID) (*product.Quota, error)
}

// VendorListingQuota answers whether the vendor may publish another product.
// Suspended vendors get a 403; vendors at the plan cap get a 422.
func VendorListingQuota(svc QuotaChecker, vendors vendorcontext.VendorLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		vendor, err := vendorcontext.ResolveOwnedVendor(r, vendors)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quota, err := svc.CheckListingQuota(r.Context(), vendor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quota)
	}
}
