package subscriptions

import (
	"math"
	"time"

	"github.com/unimart-ng/marketplace-backend/internal/plans"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

var (
	ErrDowngradeNotAllowed    = pkgerrors.New(pkgerrors.CodeStateConflict, "cannot downgrade to free before the current paid cycle ends")
	ErrAlreadyOnPlan          = pkgerrors.New(pkgerrors.CodeStateConflict, "vendor is already on this plan")
	ErrPaymentRequired        = pkgerrors.New(pkgerrors.CodeStateConflict, "a successful payment covering the plan price is required")
	ErrConcurrentModification = pkgerrors.New(pkgerrors.CodeConflict, "subscription was modified concurrently")
	ErrVendorSuspended        = pkgerrors.New(pkgerrors.CodeForbidden, "vendor subscription has expired")
)

// Status is the lifecycle position of a vendor's subscription.
type Status string

const (
	StatusNoSubscription Status = "no_subscription"
	StatusActive         Status = "active"
	StatusSuspended      Status = "suspended"
)

const day = 24 * time.Hour

// State is the subset of the vendor row the lifecycle rules read.
type State struct {
	Plan        enums.PlanID
	CycleStart  *time.Time
	CycleEnd    *time.Time
	IsSuspended bool
	Reference   *string
}

// StateOf extracts the lifecycle state from a vendor row.
func StateOf(vendor *models.Vendor) State {
	if vendor == nil {
		return State{Plan: enums.PlanFree}
	}
	plan := vendor.SubscriptionPlan
	if plan == "" {
		plan = enums.PlanFree
	}
	return State{
		Plan:        plan,
		CycleStart:  vendor.SubscriptionStartDate,
		CycleEnd:    vendor.SubscriptionEndDate,
		IsSuspended: vendor.IsSuspended,
		Reference:   vendor.SubscriptionReference,
	}
}

// HasCycle reports whether a cycle was ever activated.
func (s State) HasCycle() bool {
	return s.CycleStart != nil && s.CycleEnd != nil
}

// DaysRemaining returns the whole days left in the cycle, rounded up and
// floored at zero.
func DaysRemaining(cycleEnd, now time.Time) int {
	left := cycleEnd.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(float64(left) / float64(day)))
}

// IsSuspended derives suspension from the clock; the stored flag only ever
// adds to it.
func IsSuspended(state State, now time.Time) bool {
	if !state.HasCycle() {
		return false
	}
	return state.IsSuspended || DaysRemaining(*state.CycleEnd, now) == 0
}

// StatusOf classifies state at now.
func StatusOf(state State, now time.Time) Status {
	switch {
	case !state.HasCycle():
		return StatusNoSubscription
	case IsSuspended(state, now):
		return StatusSuspended
	default:
		return StatusActive
	}
}

// CanChangePlan reports whether state may move to target at now.
func CanChangePlan(state State, target enums.PlanID, now time.Time) error {
	if _, err := plans.Get(target); err != nil {
		return err
	}
	if !state.HasCycle() {
		return nil
	}
	expired := now.After(*state.CycleEnd)
	if expired || IsSuspended(state, now) {
		return nil
	}
	if target == state.Plan {
		return ErrAlreadyOnPlan
	}
	if target == enums.PlanFree && state.Plan.IsPaid() {
		return ErrDowngradeNotAllowed.WithDetails(map[string]any{
			"current_plan":   string(state.Plan),
			"cycle_end":      state.CycleEnd.UTC(),
			"days_remaining": DaysRemaining(*state.CycleEnd, now),
		})
	}
	return nil
}

// PaymentReceipt is the confirmed charge presented to activate a paid plan.
type PaymentReceipt struct {
	Reference string
	Amount    int64
	Succeeded bool
}

func checkReceipt(def plans.Definition, receipt *PaymentReceipt) error {
	if !def.IsPaid() {
		return nil
	}
	if receipt == nil || !receipt.Succeeded || receipt.Reference == "" {
		return ErrPaymentRequired
	}
	if receipt.Amount < def.MonthlyPrice {
		return ErrPaymentRequired.WithDetails(map[string]any{
			"plan_price": def.MonthlyPrice,
			"paid":       receipt.Amount,
		})
	}
	return nil
}

// isReplay reports whether receipt already paid the vendor's current cycle.
func isReplay(state State, target enums.PlanID, receipt *PaymentReceipt) bool {
	if receipt == nil || receipt.Reference == "" || state.Reference == nil {
		return false
	}
	return state.Plan == target && *state.Reference == receipt.Reference
}
