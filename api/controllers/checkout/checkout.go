package checkout

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/api/controllers/vendorcontext"
	"github.com/unimart-ng/marketplace-backend/api/responses"
	"github.com/unimart-ng/marketplace-backend/api/validators"
	checkoutsvc "github.com/unimart-ng/marketplace-backend/internal/checkout"
	"github.com/unimart-ng/marketplace-backend/internal/checkout/helpers"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
)

// Service is the checkout surface used by the HTTP handlers.
type Service interface {
	Quote(ctx context.Context, input checkoutsvc.QuoteInput) (*checkoutsvc.QuoteResult, error)
	Start(ctx context.Context, input checkoutsvc.QuoteInput) (*checkoutsvc.StartResult, error)
}

type cartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type checkoutRequest struct {
	Items         []cartItemRequest `json:"items" validate:"required,min=1,dive"`
	DistanceTiers map[string]string `json:"distance_tiers" validate:"required"`
}

func (r checkoutRequest) toInput(userID uuid.UUID) (checkoutsvc.QuoteInput, error) {
	input := checkoutsvc.QuoteInput{
		UserID:        userID,
		Lines:         make([]helpers.CartLine, 0, len(r.Items)),
		DistanceTiers: make(map[uuid.UUID]enums.DistanceTier, len(r.DistanceTiers)),
	}
	for _, item := range r.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		input.Lines = append(input.Lines, helpers.CartLine{ProductID: productID, Quantity: item.Quantity})
	}
	for rawVendor, rawTier := range r.DistanceTiers {
		vendorID, err := uuid.Parse(rawVendor)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id in distance_tiers")
		}
		tier, err := enums.ParseDistanceTier(rawTier)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid distance tier").
				WithDetails(map[string]any{"vendor_id": rawVendor, "distance_tier": rawTier})
		}
		input.DistanceTiers[vendorID] = tier
	}
	return input, nil
}

func decodeInput(r *http.Request) (checkoutsvc.QuoteInput, error) {
	userID, err := vendorcontext.ResolveUserID(r)
	if err != nil {
		return checkoutsvc.QuoteInput{}, err
	}
	var payload checkoutRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return checkoutsvc.QuoteInput{}, err
	}
	return payload.toInput(userID)
}

// Quote prices a cart grouped by vendor without creating orders.
func Quote(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		input, err := decodeInput(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		quote, err := svc.Quote(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// Start creates one pending order per vendor and returns their charges.
func Start(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		input, err := decodeInput(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Start(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "checkout_id", result.CheckoutID.String()), "checkout.started")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
