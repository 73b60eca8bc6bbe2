package plans

import (
	"strings"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

// Unlimited marks a plan without a product listing cap.
const Unlimited = -1

// CycleDays is the fixed length of every subscription cycle.
const CycleDays = 31

var ErrUnknownPlan = pkgerrors.New(pkgerrors.CodeValidation, "unknown subscription plan")

// Definition is the immutable commercial contract of a subscription tier.
// Settlement math depends on these values; they must not drift.
type Definition struct {
	ID                    enums.PlanID `json:"id"`
	Name                  string       `json:"name"`
	MonthlyPrice          int64        `json:"monthly_price"`
	ProductLimit          int          `json:"product_limit"`
	CommissionRatePercent int          `json:"commission_rate_percent"`
	HomeVisibility        bool         `json:"home_visibility"`
	FreeAdsPerCycle       int          `json:"free_ads_per_cycle"`
}

// IsPaid reports whether activating the plan requires a charge.
func (d Definition) IsPaid() bool {
	return d.MonthlyPrice > 0
}

// AllowsProducts reports whether a vendor holding count listings may add another.
func (d Definition) AllowsProducts(count int) bool {
	if d.ProductLimit == Unlimited {
		return true
	}
	return count < d.ProductLimit
}

var catalog = map[enums.PlanID]Definition{
	enums.PlanFree: {
		ID:                    enums.PlanFree,
		Name:                  "Free",
		MonthlyPrice:          0,
		ProductLimit:          20,
		CommissionRatePercent: 15,
	},
	enums.PlanEconomy: {
		ID:                    enums.PlanEconomy,
		Name:                  "Economy",
		MonthlyPrice:          7000,
		ProductLimit:          50,
		CommissionRatePercent: 9,
	},
	enums.PlanFirstClass: {
		ID:                    enums.PlanFirstClass,
		Name:                  "First Class",
		MonthlyPrice:          15000,
		ProductLimit:          Unlimited,
		CommissionRatePercent: 5,
		HomeVisibility:        true,
		FreeAdsPerCycle:       1,
	},
}

// Get returns the definition for id.
func Get(id enums.PlanID) (Definition, error) {
	def, ok := catalog[id]
	if !ok {
		return Definition{}, ErrUnknownPlan
	}
	return def, nil
}

// Parse resolves raw user input into a definition.
func Parse(raw string) (Definition, error) {
	id, err := enums.ParsePlanID(strings.TrimSpace(strings.ToLower(raw)))
	if err != nil {
		return Definition{}, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrUnknownPlan, err.Error())
	}
	return Get(id)
}

// All lists the definitions ordered from free to first_class.
func All() []Definition {
	ids := enums.PlanIDs()
	out := make([]Definition, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog[id])
	}
	return out
}
