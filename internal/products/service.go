package product

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/internal/plans"
	"github.com/unimart-ng/marketplace-backend/internal/subscriptions"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

var ErrProductLimitReached = pkgerrors.New(pkgerrors.CodeStateConflict, "product limit for the current plan reached")

type vendorReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

// Service answers listing questions for the product editor.
type Service interface {
	CheckListingQuota(ctx context.Context, vendorID uuid.UUID) (*Quota, error)
}

// Quota describes how many more listings a vendor may publish.
// Remaining is plans.Unlimited for uncapped plans.
type Quota struct {
	VendorID  uuid.UUID `json:"vendor_id"`
	Limit     int       `json:"limit"`
	Active    int64     `json:"active"`
	Remaining int       `json:"remaining"`
}

type service struct {
	repo    Repository
	vendors vendorReader
	now     func() time.Time
}

// NewService wires the product service.
func NewService(repo Repository, vendors vendorReader, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor reader required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, vendors: vendors, now: now}, nil
}

// CheckListingQuota fails when the vendor is suspended or already holds
// product_limit active listings.
func (s *service) CheckListingQuota(ctx context.Context, vendorID uuid.UUID) (*Quota, error) {
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if subscriptions.IsSuspended(subscriptions.StateOf(vendor), s.now().UTC()) {
		return nil, subscriptions.ErrVendorSuspended
	}
	active, err := s.repo.CountActiveByVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count vendor products")
	}

	quota := &Quota{VendorID: vendorID, Limit: vendor.ProductLimit, Active: active, Remaining: plans.Unlimited}
	if vendor.ProductLimit == plans.Unlimited {
		return quota, nil
	}
	quota.Remaining = max(0, vendor.ProductLimit-int(active))
	if quota.Remaining == 0 {
		return quota, ErrProductLimitReached.WithDetails(map[string]any{
			"limit":  vendor.ProductLimit,
			"active": active,
		})
	}
	return quota, nil
}
