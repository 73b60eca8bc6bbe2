package vendors

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")

// SubscriptionUpdate is the full set of plan columns written by an activation.
type SubscriptionUpdate struct {
	Plan              enums.PlanID
	StartDate         time.Time
	EndDate           time.Time
	ProductLimit      int
	CommissionRate    int
	HasHomeVisibility bool
	FreeAdsRemaining  int
	Reference         *string
}

// Repository persists vendor subscription state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vendor *models.Vendor) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, expectedVersion int64, update SubscriptionUpdate) (bool, error)
	ListExpiredUnsuspended(ctx context.Context, now time.Time, limit int) ([]models.Vendor, error)
	MarkSuspended(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vendor repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, vendor *models.Vendor) error {
	if vendor.ID == uuid.Nil {
		vendor.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

// UpdateSubscription writes update only while the row still carries
// expectedVersion. It reports false when another writer got there first.
func (r *repository) UpdateSubscription(ctx context.Context, id uuid.UUID, expectedVersion int64, update SubscriptionUpdate) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ? AND subscription_version = ?", id, expectedVersion).
		Updates(map[string]any{
			"subscription_plan":       update.Plan,
			"subscription_start_date": update.StartDate.UTC(),
			"subscription_end_date":   update.EndDate.UTC(),
			"is_suspended":            false,
			"product_limit":           update.ProductLimit,
			"commission_rate":         update.CommissionRate,
			"has_home_visibility":     update.HasHomeVisibility,
			"free_ads_remaining":      update.FreeAdsRemaining,
			"subscription_reference":  update.Reference,
			"subscription_version":    expectedVersion + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListExpiredUnsuspended returns vendors whose cycle ended before now but
// whose stored flag has not caught up yet.
func (r *repository) ListExpiredUnsuspended(ctx context.Context, now time.Time, limit int) ([]models.Vendor, error) {
	q := r.db.WithContext(ctx).
		Where("is_suspended = ?", false).
		Where("subscription_end_date IS NOT NULL AND subscription_end_date < ?", now.UTC()).
		Order("subscription_end_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Vendor
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSuspended flags the vendor unless it renewed in the meantime.
func (r *repository) MarkSuspended(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ? AND is_suspended = ?", id, false).
		Where("subscription_end_date IS NOT NULL AND subscription_end_date < ?", now.UTC()).
		Updates(map[string]any{
			"is_suspended":         true,
			"subscription_version": gorm.Expr("subscription_version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
