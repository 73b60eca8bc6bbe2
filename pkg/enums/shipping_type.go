package enums

import "fmt"

// ShippingType controls how a product's shipping fee is charged.
type ShippingType string

const (
	// ShippingTypeOneTime charges the fee once per vendor shipment.
	ShippingTypeOneTime ShippingType = "one_time"
	// ShippingTypePerProduct charges the fee for every unit ordered.
	ShippingTypePerProduct ShippingType = "per_product"
)

var validShippingTypes = []ShippingType{
	ShippingTypeOneTime,
	ShippingTypePerProduct,
}

// String implements fmt.Stringer.
func (s ShippingType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known shipping type.
func (s ShippingType) IsValid() bool {
	for _, candidate := range validShippingTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShippingType converts raw input into a ShippingType.
func ParseShippingType(value string) (ShippingType, error) {
	for _, candidate := range validShippingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping type %q", value)
}
