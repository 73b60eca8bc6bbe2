package types

import (
	"database/sql/driver"
	"encoding/json"
)

// TransactionMetadata is the JSONB payload persisted on every transaction row.
// SubscriptionPlan is mandatory for order_payment rows so the split can be
// reconstructed without reading the vendor's current state.
type TransactionMetadata struct {
	Kind               string `json:"kind,omitempty"`
	SubscriptionPlan   string `json:"subscription_plan,omitempty"`
	CommissionRate     *int   `json:"commission_rate,omitempty"`
	PlatformCommission *int64 `json:"platform_commission,omitempty"`
	VendorPayout       *int64 `json:"vendor_payout,omitempty"`
	OrderID            string `json:"order_id,omitempty"`
	PlanID             string `json:"plan_id,omitempty"`
	GatewayEventID     string `json:"gateway_event_id,omitempty"`
}

func (m TransactionMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *TransactionMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = TransactionMetadata{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, m)
}

// OrderItemSnapshot freezes the priced line at checkout time.
type OrderItemSnapshot struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	ShippingFee  int64  `json:"shipping_fee"`
	ShippingType string `json:"shipping_type"`
}

// OrderItems stores the order snapshot inside a JSONB column.
type OrderItems []OrderItemSnapshot

func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		return json.Marshal([]OrderItemSnapshot{})
	}
	return json.Marshal([]OrderItemSnapshot(o))
}

func (o *OrderItems) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded []OrderItemSnapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*o = decoded
	return nil
}
