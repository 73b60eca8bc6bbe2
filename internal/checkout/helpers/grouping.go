package helpers

import (
	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/internal/shipping"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/types"
)

// BuildLineItems prices cart lines against the product rows. Every line must
// resolve to an active product.
func BuildLineItems(lines []CartLine, products map[uuid.UUID]models.Product) ([]shipping.LineItem, error) {
	items := make([]shipping.LineItem, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not available").WithDetails(map[string]any{
				"product_id": line.ProductID.String(),
			})
		}
		items = append(items, shipping.LineItem{
			ProductID:        product.ID,
			VendorID:         product.VendorID,
			Quantity:         line.Quantity,
			UnitPrice:        product.Price,
			ShippingFeeLocal: product.ShippingFeeLocal,
			ShippingFeeMid:   product.ShippingFeeMid,
			ShippingFeeFar:   product.ShippingFeeFar,
			ShippingType:     product.ShippingType,
		})
	}
	return items, nil
}

// Snapshot freezes a priced group into the order's items column.
func Snapshot(group shipping.VendorGroup, names map[uuid.UUID]string) types.OrderItems {
	out := make(types.OrderItems, 0, len(group.LineItems))
	for _, item := range group.LineItems {
		fee, _ := item.FeeFor(group.DistanceTier)
		out = append(out, types.OrderItemSnapshot{
			ProductID:    item.ProductID.String(),
			Name:         names[item.ProductID],
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			ShippingFee:  fee,
			ShippingType: string(item.ShippingType),
		})
	}
	return out
}
