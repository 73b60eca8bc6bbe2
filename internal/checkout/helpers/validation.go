package helpers

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/internal/subscriptions"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

// MaxQuantityPerLine caps a single cart line.
const MaxQuantityPerLine = 1000

// CartLine is a requested product and quantity.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// ValidateCart rejects empty carts, bad quantities and repeated products.
func ValidateCart(lines []CartLine) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if line.Quantity <= 0 || line.Quantity > MaxQuantityPerLine {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range").WithDetails(map[string]any{
				"product_id": line.ProductID.String(),
				"quantity":   line.Quantity,
			})
		}
		if _, dup := seen[line.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "product listed twice").WithDetails(map[string]any{
				"product_id": line.ProductID.String(),
			})
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

// ValidateVendor confirms the vendor may sell right now. Suspension is
// judged from the server clock, never from the client.
func ValidateVendor(vendor *models.Vendor, now time.Time) error {
	if vendor == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	if subscriptions.IsSuspended(subscriptions.StateOf(vendor), now) {
		return subscriptions.ErrVendorSuspended.WithDetails(map[string]any{
			"vendor_id": vendor.ID.String(),
		})
	}
	return nil
}

// ValidateTiers ensures every tier supplied by the caller is known.
func ValidateTiers(tiers map[uuid.UUID]enums.DistanceTier) error {
	for vendorID, tier := range tiers {
		if !tier.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid distance tier").WithDetails(map[string]any{
				"vendor_id": vendorID.String(),
				"tier":      string(tier),
			})
		}
	}
	return nil
}
