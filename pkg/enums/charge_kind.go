package enums

import "fmt"

// ChargeKind tells the payment callback which flow a gateway charge belongs to.
type ChargeKind string

const (
	ChargeKindSubscription ChargeKind = "subscription"
	ChargeKindOrder        ChargeKind = "order"
)

// IsValid reports whether the kind is recognized.
func (k ChargeKind) IsValid() bool {
	return k == ChargeKindSubscription || k == ChargeKindOrder
}

// ParseChargeKind converts raw input into a ChargeKind.
func ParseChargeKind(value string) (ChargeKind, error) {
	kind := ChargeKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid charge kind %q", value)
	}
	return kind, nil
}
