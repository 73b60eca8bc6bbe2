package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/internal/transactions"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/pagination"
)

// ReportQuery selects a page of a vendor's settlement history.
type ReportQuery struct {
	VendorID uuid.UUID
	Types    []enums.TransactionType
	Since    *time.Time
	Until    *time.Time
	pagination.Params
}

// ReportEntry is one transaction with its reconstructed split.
type ReportEntry struct {
	ID               uuid.UUID               `json:"id"`
	Type             enums.TransactionType   `json:"type"`
	Reference        string                  `json:"reference"`
	Status           enums.TransactionStatus `json:"status"`
	SubscriptionPlan string                  `json:"subscription_plan,omitempty"`
	OrderID          string                  `json:"order_id,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	Breakdown
}

// ReportTotals sums the entries on the returned page.
type ReportTotals struct {
	Gross              int64 `json:"gross"`
	PlatformCommission int64 `json:"platform_commission"`
	VendorPayout       int64 `json:"vendor_payout"`
}

// Report is a page of settlement entries, newest first.
type Report struct {
	Entries    []ReportEntry `json:"entries"`
	Totals     ReportTotals  `json:"totals"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func (s *service) VendorReport(ctx context.Context, query ReportQuery) (*Report, error) {
	if query.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	for _, t := range query.Types {
		if !t.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type").WithDetails(map[string]any{"type": string(t)})
		}
	}
	cursor, err := pagination.ParseCursor(query.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.transactions.List(ctx, transactions.ListQuery{
		VendorID: query.VendorID,
		Types:    query.Types,
		Since:    query.Since,
		Until:    query.Until,
		Cursor:   cursor,
		Limit:    pagination.FetchLimit(query.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vendor transactions")
	}

	rows, next := pagination.Split(rows, query.Limit, func(row models.Transaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	report := &Report{Entries: make([]ReportEntry, 0, len(rows)), NextCursor: next}

	for _, row := range rows {
		breakdown, err := SplitFromTransaction(row)
		if err != nil {
			return nil, err
		}
		report.Entries = append(report.Entries, ReportEntry{
			ID:               row.ID,
			Type:             row.Type,
			Reference:        row.Reference,
			Status:           row.Status,
			SubscriptionPlan: row.Metadata.SubscriptionPlan,
			OrderID:          row.Metadata.OrderID,
			CreatedAt:        row.CreatedAt,
			Breakdown:        breakdown,
		})
		report.Totals.Gross += breakdown.Gross
		report.Totals.PlatformCommission += breakdown.PlatformCommission
		report.Totals.VendorPayout += breakdown.VendorPayout
	}
	return report, nil
}
