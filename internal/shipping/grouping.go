package shipping

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

// GroupLineItems splits cart items per vendor, keeping first-seen vendor order,
// and attaches each vendor's distance tier.
func GroupLineItems(items []LineItem, tiers map[uuid.UUID]enums.DistanceTier) ([]VendorGroup, error) {
	if len(items) == 0 {
		return nil, ErrNoGroups
	}
	index := make(map[uuid.UUID]int, len(items))
	groups := make([]VendorGroup, 0)
	for _, item := range items {
		if item.VendorID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item vendor is required")
		}
		pos, ok := index[item.VendorID]
		if !ok {
			tier, found := tiers[item.VendorID]
			if !found {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidDistanceTier, fmt.Sprintf("no distance tier for vendor %s", item.VendorID))
			}
			groups = append(groups, VendorGroup{VendorID: item.VendorID, DistanceTier: tier})
			pos = len(groups) - 1
			index[item.VendorID] = pos
		}
		groups[pos].LineItems = append(groups[pos].LineItems, item)
	}
	return groups, nil
}
