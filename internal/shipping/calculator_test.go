package shipping

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
)

func item(vendor uuid.UUID, qty int, local, mid, far int64, st enums.ShippingType) LineItem {
	return LineItem{
		ProductID:        uuid.New(),
		VendorID:         vendor,
		Quantity:         qty,
		UnitPrice:        1000,
		ShippingFeeLocal: local,
		ShippingFeeMid:   mid,
		ShippingFeeFar:   far,
		ShippingType:     st,
	}
}

func TestCalculateOneTimeChargedOnce(t *testing.T) {
	vendor := uuid.New()
	quote, err := Calculate([]VendorGroup{{
		VendorID:     vendor,
		DistanceTier: enums.DistanceLocal,
		LineItems:    []LineItem{item(vendor, 3, 500, 700, 900, enums.ShippingTypeOneTime)},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Total != 500 {
		t.Fatalf("expected 500, got %d", quote.Total)
	}
}

func TestCalculatePerProductUsesTierFeeTimesQuantity(t *testing.T) {
	vendor := uuid.New()
	quote, err := Calculate([]VendorGroup{{
		VendorID:     vendor,
		DistanceTier: enums.DistanceMid,
		LineItems:    []LineItem{item(vendor, 3, 200, 300, 400, enums.ShippingTypePerProduct)},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Total != 900 {
		t.Fatalf("expected 900, got %d", quote.Total)
	}
	if quote.Groups[0].ComputedShipping != 900 {
		t.Fatalf("expected group shipping 900, got %d", quote.Groups[0].ComputedShipping)
	}
}

func TestCalculateTwoVendors(t *testing.T) {
	vendorA := uuid.New()
	vendorB := uuid.New()
	quote, err := Calculate([]VendorGroup{
		{
			VendorID:     vendorA,
			DistanceTier: enums.DistanceLocal,
			LineItems:    []LineItem{item(vendorA, 1, 0, 0, 0, enums.ShippingTypeOneTime)},
		},
		{
			VendorID:     vendorB,
			DistanceTier: enums.DistanceFar,
			LineItems:    []LineItem{item(vendorB, 2, 100, 500, 1000, enums.ShippingTypePerProduct)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Total != 2000 {
		t.Fatalf("expected 2000, got %d", quote.Total)
	}
	if quote.Groups[0].ComputedShipping != 0 || quote.Groups[1].ComputedShipping != 2000 {
		t.Fatalf("unexpected per-group charges %d/%d", quote.Groups[0].ComputedShipping, quote.Groups[1].ComputedShipping)
	}
}

func TestCalculateMixedGroupSumsBothSubsets(t *testing.T) {
	vendor := uuid.New()
	quote, err := Calculate([]VendorGroup{{
		VendorID:     vendor,
		DistanceTier: enums.DistanceLocal,
		LineItems: []LineItem{
			item(vendor, 5, 300, 0, 0, enums.ShippingTypeOneTime),
			item(vendor, 1, 800, 0, 0, enums.ShippingTypeOneTime),
			item(vendor, 2, 150, 0, 0, enums.ShippingTypePerProduct),
			item(vendor, 1, 50, 0, 0, enums.ShippingTypePerProduct),
		},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 800 once + 150*2 + 50*1
	if quote.Total != 1150 {
		t.Fatalf("expected 1150, got %d", quote.Total)
	}
}

func TestCalculateDoesNotMutateInput(t *testing.T) {
	vendor := uuid.New()
	groups := []VendorGroup{{
		VendorID:     vendor,
		DistanceTier: enums.DistanceLocal,
		LineItems:    []LineItem{item(vendor, 1, 400, 0, 0, enums.ShippingTypeOneTime)},
	}}
	if _, err := Calculate(groups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if groups[0].ComputedShipping != 0 {
		t.Fatalf("input group mutated: %d", groups[0].ComputedShipping)
	}
}

func TestCalculateErrors(t *testing.T) {
	vendor := uuid.New()
	cases := []struct {
		name   string
		groups []VendorGroup
		want   error
	}{
		{name: "no groups", groups: nil, want: ErrNoGroups},
		{name: "empty group", groups: []VendorGroup{{VendorID: vendor, DistanceTier: enums.DistanceLocal}}, want: ErrEmptyGroup},
		{
			name: "unknown shipping type",
			groups: []VendorGroup{{VendorID: vendor, DistanceTier: enums.DistanceLocal, LineItems: []LineItem{
				item(vendor, 1, 100, 100, 100, enums.ShippingType("express")),
			}}},
			want: ErrInvalidShippingType,
		},
		{
			name: "unknown tier",
			groups: []VendorGroup{{VendorID: vendor, DistanceTier: enums.DistanceTier("orbit"), LineItems: []LineItem{
				item(vendor, 1, 100, 100, 100, enums.ShippingTypeOneTime),
			}}},
			want: ErrInvalidDistanceTier,
		},
		{
			name: "negative fee",
			groups: []VendorGroup{{VendorID: vendor, DistanceTier: enums.DistanceLocal, LineItems: []LineItem{
				item(vendor, 1, -1, 100, 100, enums.ShippingTypeOneTime),
			}}},
			want: ErrNegativeFee,
		},
		{
			name: "zero quantity",
			groups: []VendorGroup{{VendorID: vendor, DistanceTier: enums.DistanceLocal, LineItems: []LineItem{
				item(vendor, 0, 100, 100, 100, enums.ShippingTypePerProduct),
			}}},
			want: ErrInvalidQuantity,
		},
		{
			name: "foreign item",
			groups: []VendorGroup{{VendorID: vendor, DistanceTier: enums.DistanceLocal, LineItems: []LineItem{
				item(uuid.New(), 1, 100, 100, 100, enums.ShippingTypePerProduct),
			}}},
			want: ErrVendorMismatch,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.groups)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGroupLineItemsKeepsVendorOrder(t *testing.T) {
	vendorA := uuid.New()
	vendorB := uuid.New()
	items := []LineItem{
		item(vendorB, 1, 100, 0, 0, enums.ShippingTypeOneTime),
		item(vendorA, 1, 100, 0, 0, enums.ShippingTypeOneTime),
		item(vendorB, 2, 100, 0, 0, enums.ShippingTypePerProduct),
	}
	groups, err := GroupLineItems(items, map[uuid.UUID]enums.DistanceTier{
		vendorA: enums.DistanceMid,
		vendorB: enums.DistanceLocal,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].VendorID != vendorB || len(groups[0].LineItems) != 2 {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
	if groups[1].VendorID != vendorA || groups[1].DistanceTier != enums.DistanceMid {
		t.Fatalf("unexpected second group %+v", groups[1])
	}
}

func TestGroupLineItemsRequiresTier(t *testing.T) {
	vendor := uuid.New()
	_, err := GroupLineItems([]LineItem{item(vendor, 1, 0, 0, 0, enums.ShippingTypeOneTime)}, nil)
	if !errors.Is(err, ErrInvalidDistanceTier) {
		t.Fatalf("expected ErrInvalidDistanceTier, got %v", err)
	}
}

func TestVendorGroupSubtotal(t *testing.T) {
	vendor := uuid.New()
	group := VendorGroup{LineItems: []LineItem{
		item(vendor, 2, 0, 0, 0, enums.ShippingTypeOneTime),
		item(vendor, 3, 0, 0, 0, enums.ShippingTypeOneTime),
	}}
	if got := group.Subtotal(); got != 5000 {
		t.Fatalf("expected 5000, got %d", got)
	}
}
