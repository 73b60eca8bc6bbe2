package enums

import "fmt"

// OutboxAggregateType maps to outbox_events.aggregate_type and doubles as
// the Pub/Sub ordering scope.
type OutboxAggregateType string

const (
	AggregateVendor      OutboxAggregateType = "vendor"
	AggregateOrder       OutboxAggregateType = "order"
	AggregateTransaction OutboxAggregateType = "transaction"
)

func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateVendor, AggregateOrder, AggregateTransaction:
		return true
	}
	return false
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	if a := OutboxAggregateType(value); a.IsValid() {
		return a, nil
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to outbox_events.event_type.
type OutboxEventType string

const (
	EventSubscriptionActivated       OutboxEventType = "subscription_activated"
	EventVendorSuspended             OutboxEventType = "vendor_suspended"
	EventSubscriptionPaymentRecorded OutboxEventType = "subscription_payment_recorded"
	EventOrderSettled                OutboxEventType = "order_settled"
	EventOrderExpired                OutboxEventType = "order_expired"
)

func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventSubscriptionActivated, EventVendorSuspended, EventSubscriptionPaymentRecorded,
		EventOrderSettled, EventOrderExpired:
		return true
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason says why a row was parked in outbox_dlq.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
