package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
)

// SubscriptionActivatedEvent is emitted when a vendor starts a new plan cycle.
type SubscriptionActivatedEvent struct {
	VendorID     uuid.UUID    `json:"vendor_id"`
	PlanID       enums.PlanID `json:"plan_id"`
	PreviousPlan enums.PlanID `json:"previous_plan"`
	CycleStart   time.Time    `json:"cycle_start"`
	CycleEnd     time.Time    `json:"cycle_end"`
	Reference    string       `json:"reference,omitempty"`
}

// VendorSuspendedEvent reports that an expired cycle was flagged as suspended.
type VendorSuspendedEvent struct {
	VendorID    uuid.UUID    `json:"vendor_id"`
	PlanID      enums.PlanID `json:"plan_id"`
	CycleEnd    time.Time    `json:"cycle_end"`
	SuspendedAt time.Time    `json:"suspended_at"`
}

// SubscriptionPaymentRecordedEvent carries platform revenue from a plan purchase.
type SubscriptionPaymentRecordedEvent struct {
	TransactionID uuid.UUID    `json:"transaction_id"`
	VendorID      uuid.UUID    `json:"vendor_id"`
	PlanID        enums.PlanID `json:"plan_id"`
	Amount        int64        `json:"amount"`
	Reference     string       `json:"reference"`
}

// OrderSettledEvent carries the commission split of a paid order.
type OrderSettledEvent struct {
	OrderID               uuid.UUID    `json:"order_id"`
	TransactionID         uuid.UUID    `json:"transaction_id"`
	VendorID              uuid.UUID    `json:"vendor_id"`
	UserID                uuid.UUID    `json:"user_id"`
	Reference             string       `json:"reference"`
	Gross                 int64        `json:"gross"`
	PlatformCommission    int64        `json:"platform_commission"`
	VendorPayout          int64        `json:"vendor_payout"`
	CommissionRatePercent int          `json:"commission_rate_percent"`
	SubscriptionPlan      enums.PlanID `json:"subscription_plan"`
}

// OrderExpiredEvent announces a pending order released after its payment window.
type OrderExpiredEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CheckoutID uuid.UUID `json:"checkout_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	UserID     uuid.UUID `json:"user_id"`
	Reference  string    `json:"reference"`
	ExpiredAt  time.Time `json:"expired_at"`
}
