package enums

import "fmt"

// DistanceTier buckets the delivery distance between vendor and customer.
type DistanceTier string

const (
	DistanceLocal DistanceTier = "local" // 0-2km or on campus
	DistanceMid   DistanceTier = "mid"   // 2-5km
	DistanceFar   DistanceTier = "far"   // beyond 5km
)

var validDistanceTiers = []DistanceTier{
	DistanceLocal,
	DistanceMid,
	DistanceFar,
}

// String implements fmt.Stringer.
func (d DistanceTier) String() string {
	return string(d)
}

// IsValid reports whether the tier is recognized.
func (d DistanceTier) IsValid() bool {
	for _, candidate := range validDistanceTiers {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDistanceTier converts raw input into a DistanceTier.
func ParseDistanceTier(value string) (DistanceTier, error) {
	for _, candidate := range validDistanceTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid distance tier %q", value)
}
