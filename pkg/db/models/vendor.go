package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
)

// Vendor holds the vendor's subscription state. The plan columns are
// denormalized copies of the catalog entry and are only written together.
type Vendor struct {
	ID                    uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID           uuid.UUID    `gorm:"column:owner_user_id;type:uuid;not null"`
	BusinessName          string       `gorm:"column:business_name;not null"`
	SubscriptionPlan      enums.PlanID `gorm:"column:subscription_plan;type:text;not null;default:'free'"`
	SubscriptionStartDate *time.Time   `gorm:"column:subscription_start_date"`
	SubscriptionEndDate   *time.Time   `gorm:"column:subscription_end_date"`
	IsSuspended           bool         `gorm:"column:is_suspended;not null;default:false"`
	ProductLimit          int          `gorm:"column:product_limit;not null;default:20"`
	CommissionRate        int          `gorm:"column:commission_rate;not null;default:15"`
	HasHomeVisibility     bool         `gorm:"column:has_home_visibility;not null;default:false"`
	FreeAdsRemaining      int          `gorm:"column:free_ads_remaining;not null;default:0"`
	SubscriptionVersion   int64        `gorm:"column:subscription_version;not null;default:0"`
	SubscriptionReference *string      `gorm:"column:subscription_reference"`
	CreatedAt             time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (Vendor) TableName() string { return "vendors" }
