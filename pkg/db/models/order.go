package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	"github.com/unimart-ng/marketplace-backend/pkg/types"
)

// Order is the per-vendor order produced from one checkout.
type Order struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CheckoutID       uuid.UUID          `gorm:"column:checkout_id;type:uuid;not null"`
	VendorID         uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null"`
	UserID           uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	Reference        string             `gorm:"column:reference;not null;uniqueIndex"`
	Status           enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'pending_payment'"`
	DistanceTier     enums.DistanceTier `gorm:"column:distance_tier;type:text;not null"`
	Subtotal         int64              `gorm:"column:subtotal;not null"`
	Shipping         int64              `gorm:"column:shipping;not null"`
	Total            int64              `gorm:"column:total;not null"`
	Currency         enums.Currency     `gorm:"column:currency;type:text;not null;default:'NGN'"`
	Items            types.OrderItems   `gorm:"column:items;type:jsonb;not null"`
	GatewaySessionID *string            `gorm:"column:gateway_session_id"`
	PaidAt           *time.Time         `gorm:"column:paid_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
