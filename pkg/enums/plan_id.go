package enums

import "fmt"

// PlanID identifies one of the fixed vendor subscription tiers.
type PlanID string

const (
	PlanFree       PlanID = "free"
	PlanEconomy    PlanID = "economy"
	PlanFirstClass PlanID = "first_class"
)

var validPlanIDs = []PlanID{
	PlanFree,
	PlanEconomy,
	PlanFirstClass,
}

// String implements fmt.Stringer.
func (p PlanID) String() string {
	return string(p)
}

// IsValid reports whether the value is a known plan tier.
func (p PlanID) IsValid() bool {
	for _, candidate := range validPlanIDs {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsPaid reports whether the tier carries a monthly price.
func (p PlanID) IsPaid() bool {
	return p == PlanEconomy || p == PlanFirstClass
}

// PlanIDs returns the tiers in catalog order.
func PlanIDs() []PlanID {
	out := make([]PlanID, len(validPlanIDs))
	copy(out, validPlanIDs)
	return out
}

// ParsePlanID converts raw input into a PlanID.
func ParsePlanID(value string) (PlanID, error) {
	for _, candidate := range validPlanIDs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan id %q", value)
}
