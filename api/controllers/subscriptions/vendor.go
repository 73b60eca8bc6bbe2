package subscriptions

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/api/controllers/vendorcontext"
	"github.com/unimart-ng/marketplace-backend/api/responses"
	"github.com/unimart-ng/marketplace-backend/api/validators"
	"github.com/unimart-ng/marketplace-backend/internal/plans"
	subsvc "github.com/unimart-ng/marketplace-backend/internal/subscriptions"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
)

// SubscriptionService is the slice of the subscription lifecycle the HTTP layer drives.
type SubscriptionService interface {
	GetStatus(ctx context.Context, vendorID uuid.UUID) (*subsvc.SubscriptionStatus, error)
	StartPlanPurchase(ctx context.Context, input subsvc.PurchaseInput) (*subsvc.PurchaseResult, error)
}

type planPurchaseRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// PlanList returns the plan catalog.
func PlanList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, plans.All())
	}
}

// VendorSubscriptionFetch returns the vendor's current plan and entitlements.
func VendorSubscriptionFetch(svc SubscriptionService, vendors vendorcontext.VendorLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		vendor, err := vendorcontext.ResolveOwnedVendor(r, vendors)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.GetStatus(r.Context(), vendor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// VendorSubscriptionPurchase starts a plan change. Free plans activate
// immediately; paid plans return a pending charge for the client to complete.
func VendorSubscriptionPurchase(svc SubscriptionService, vendors vendorcontext.VendorLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		vendor, err := vendorcontext.ResolveOwnedVendor(r, vendors)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload planPurchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		def, err := plans.Parse(payload.PlanID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.StartPlanPurchase(ctx, subsvc.PurchaseInput{
			VendorID:    vendor.ID,
			Plan:        def.ID,
			ActorUserID: vendor.OwnerUserID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if result.Activated {
			responses.WriteSuccess(w, result)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}
