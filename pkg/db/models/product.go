package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
)

// Product is the read model checkout prices against.
type Product struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID         uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null"`
	Name             string             `gorm:"column:name;not null"`
	Price            int64              `gorm:"column:price;not null"`
	ShippingFeeLocal int64              `gorm:"column:shipping_fee_local;not null;default:0"`
	ShippingFeeMid   int64              `gorm:"column:shipping_fee_mid;not null;default:0"`
	ShippingFeeFar   int64              `gorm:"column:shipping_fee_far;not null;default:0"`
	ShippingType     enums.ShippingType `gorm:"column:shipping_type;type:text;not null;default:'one_time'"`
	IsActive         bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
