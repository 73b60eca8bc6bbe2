package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	"github.com/unimart-ng/marketplace-backend/pkg/types"
)

// Transaction is the settlement record written once per successful gateway callback.
type Transaction struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type      enums.TransactionType     `gorm:"column:type;type:text;not null"`
	Amount    int64                     `gorm:"column:amount;not null"`
	VendorID  *uuid.UUID                `gorm:"column:vendor_id;type:uuid"`
	UserID    uuid.UUID                 `gorm:"column:user_id;type:uuid;not null"`
	Reference string                    `gorm:"column:reference;not null;uniqueIndex"`
	Metadata  types.TransactionMetadata `gorm:"column:metadata;type:jsonb;not null"`
	Status    enums.TransactionStatus   `gorm:"column:status;type:text;not null"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (Transaction) TableName() string { return "transactions" }
