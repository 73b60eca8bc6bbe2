package reports

import (
	"context"
	"net/http"
	"strings"

	"github.com/unimart-ng/marketplace-backend/api/controllers/vendorcontext"
	"github.com/unimart-ng/marketplace-backend/api/responses"
	"github.com/unimart-ng/marketplace-backend/api/validators"
	"github.com/unimart-ng/marketplace-backend/internal/settlement"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/pagination"
)

// ReportService builds vendor settlement reports.
type ReportService interface {
	VendorReport(ctx context.Context, query settlement.ReportQuery) (*settlement.Report, error)
}

// VendorTransactions lists a vendor's settled transactions with their
// commission split. Query: limit, cursor, type (comma separated), since, until.
func VendorTransactions(svc ReportService, vendors vendorcontext.VendorLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		vendor, err := vendorcontext.ResolveOwnedVendor(r, vendors)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		query, err := parseReportQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		query.VendorID = vendor.ID

		report, err := svc.VendorReport(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func parseReportQuery(r *http.Request) (settlement.ReportQuery, error) {
	var query settlement.ReportQuery

	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return query, err
	}
	query.Limit = limit
	query.Cursor = validators.ParseQueryString(r, "cursor", 256)

	if raw := validators.ParseQueryString(r, "type", 128); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			query.Types = append(query.Types, enums.TransactionType(part))
		}
	}

	if query.Since, err = validators.ParseQueryTime(r, "since"); err != nil {
		return query, err
	}
	if query.Until, err = validators.ParseQueryTime(r, "until"); err != nil {
		return query, err
	}
	if query.Since != nil && query.Until != nil && query.Until.Before(*query.Since) {
		return query, pkgerrors.New(pkgerrors.CodeValidation, "until must not be before since")
	}
	return query, nil
}
