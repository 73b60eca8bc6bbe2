package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

var (
	ErrNegativeAmount         = pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-negative")
	ErrInvalidCommissionRate  = pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 100")
	ErrMissingPlanMetadata    = pkgerrors.New(pkgerrors.CodeValidation, "order payment transaction is missing subscription_plan metadata")
	ErrDuplicateReference     = pkgerrors.New(pkgerrors.CodeIdempotency, "payment reference already recorded")
	ErrUnsupportedTransaction = pkgerrors.New(pkgerrors.CodeValidation, "transaction type has no settlement split")
)

var hundred = decimal.NewFromInt(100)

// Breakdown is how a gross amount is divided between platform and vendor.
// PlatformCommission + VendorPayout always equals Gross.
type Breakdown struct {
	Gross                 int64 `json:"gross"`
	CommissionRatePercent int   `json:"commission_rate_percent"`
	PlatformCommission    int64 `json:"platform_commission"`
	VendorPayout          int64 `json:"vendor_payout"`
}

// Split computes round(gross * rate / 100) half-up as the platform's cut and
// derives the payout by subtraction so no minor unit is lost to rounding.
func Split(gross int64, ratePercent int) (Breakdown, error) {
	if gross < 0 {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrNegativeAmount, fmt.Sprintf("gross amount %d", gross))
	}
	if ratePercent < 0 || ratePercent > 100 {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidCommissionRate, fmt.Sprintf("rate %d", ratePercent))
	}

	commission := decimal.NewFromInt(gross).
		Mul(decimal.NewFromInt(int64(ratePercent))).
		Div(hundred).
		Round(0).
		IntPart()

	return Breakdown{
		Gross:                 gross,
		CommissionRatePercent: ratePercent,
		PlatformCommission:    commission,
		VendorPayout:          gross - commission,
	}, nil
}

// PlatformOnly attributes the whole amount to the platform, as for plan purchases.
func PlatformOnly(amount int64) (Breakdown, error) {
	if amount < 0 {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrNegativeAmount, fmt.Sprintf("amount %d", amount))
	}
	return Breakdown{
		Gross:                 amount,
		CommissionRatePercent: 100,
		PlatformCommission:    amount,
	}, nil
}
