package shipping

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

// LineItem is one ordered product with the shipping policy its vendor declared.
type LineItem struct {
	ProductID        uuid.UUID
	VendorID         uuid.UUID
	Quantity         int
	UnitPrice        int64
	ShippingFeeLocal int64
	ShippingFeeMid   int64
	ShippingFeeFar   int64
	ShippingType     enums.ShippingType
}

// FeeFor selects the fee column matching tier.
func (li LineItem) FeeFor(tier enums.DistanceTier) (int64, error) {
	switch tier {
	case enums.DistanceLocal:
		return li.ShippingFeeLocal, nil
	case enums.DistanceMid:
		return li.ShippingFeeMid, nil
	case enums.DistanceFar:
		return li.ShippingFeeFar, nil
	default:
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidDistanceTier, fmt.Sprintf("distance tier %q", tier))
	}
}

// Subtotal is the merchandise value of the line.
func (li LineItem) Subtotal() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

func (li LineItem) validate() error {
	if li.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if li.ShippingFeeLocal < 0 || li.ShippingFeeMid < 0 || li.ShippingFeeFar < 0 {
		return ErrNegativeFee
	}
	if li.UnitPrice < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}
	if !li.ShippingType.IsValid() {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidShippingType, fmt.Sprintf("shipping type %q", li.ShippingType))
	}
	return nil
}

// VendorGroup holds one vendor's share of the cart.
type VendorGroup struct {
	VendorID         uuid.UUID
	LineItems        []LineItem
	DistanceTier     enums.DistanceTier
	ComputedShipping int64
}

// Subtotal sums the merchandise value of the group.
func (g VendorGroup) Subtotal() int64 {
	var total int64
	for _, item := range g.LineItems {
		total += item.Subtotal()
	}
	return total
}

// Quote is the shipping outcome for a whole cart.
type Quote struct {
	Groups []VendorGroup
	Total  int64
}

// GroupCharge computes the shipping owed for a single vendor shipment. One-time
// items contribute the highest declared fee once; per-product items contribute
// fee x quantity each. Mixed groups sum both parts.
func GroupCharge(group VendorGroup) (int64, error) {
	if len(group.LineItems) == 0 {
		return 0, ErrEmptyGroup
	}
	if !group.DistanceTier.IsValid() {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidDistanceTier, fmt.Sprintf("distance tier %q", group.DistanceTier))
	}

	var (
		oneTimeMax  int64
		perProduct  int64
		haveOneTime bool
	)
	for _, item := range group.LineItems {
		if err := item.validate(); err != nil {
			return 0, err
		}
		if group.VendorID != uuid.Nil && item.VendorID != uuid.Nil && item.VendorID != group.VendorID {
			return 0, ErrVendorMismatch
		}
		fee, err := item.FeeFor(group.DistanceTier)
		if err != nil {
			return 0, err
		}
		switch item.ShippingType {
		case enums.ShippingTypeOneTime:
			if !haveOneTime || fee > oneTimeMax {
				oneTimeMax = fee
			}
			haveOneTime = true
		case enums.ShippingTypePerProduct:
			perProduct += fee * int64(item.Quantity)
		}
	}
	return oneTimeMax + perProduct, nil
}

// Calculate prices every group and returns the cart total. The input groups are
// not modified; the returned quote carries copies with ComputedShipping set.
func Calculate(groups []VendorGroup) (Quote, error) {
	if len(groups) == 0 {
		return Quote{}, ErrNoGroups
	}
	quote := Quote{Groups: make([]VendorGroup, 0, len(groups))}
	for _, group := range groups {
		charge, err := GroupCharge(group)
		if err != nil {
			return Quote{}, err
		}
		priced := group
		priced.ComputedShipping = charge
		quote.Groups = append(quote.Groups, priced)
		quote.Total += charge
	}
	return quote, nil
}
