package payments

import (
	"context"
	"strings"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

// Outcome is the terminal result a gateway reports for a charge.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Metadata keys attached to every gateway charge.
const (
	MetaReference = "reference"
	MetaKind      = "kind"
	MetaVendorID  = "vendor_id"
	MetaUserID    = "user_id"
	MetaPlanID    = "plan_id"
	MetaOrderID   = "order_id"
)

var ErrInvalidCharge = pkgerrors.New(pkgerrors.CodeValidation, "invalid charge request")

// ChargeRequest asks the gateway to collect AmountMinor from the payer.
type ChargeRequest struct {
	AmountMinor int64
	Currency    enums.Currency
	Reference   string
	Kind        enums.ChargeKind
	Description string
	Metadata    map[string]string
}

// Validate checks the request before anything is sent to the gateway.
func (r ChargeRequest) Validate() error {
	switch {
	case r.AmountMinor <= 0:
		return ErrInvalidCharge.WithDetails(map[string]any{"amount": r.AmountMinor})
	case !r.Currency.IsValid():
		return ErrInvalidCharge.WithDetails(map[string]any{"currency": string(r.Currency)})
	case strings.TrimSpace(r.Reference) == "":
		return ErrInvalidCharge.WithDetails(map[string]any{"reference": "required"})
	case !r.Kind.IsValid():
		return ErrInvalidCharge.WithDetails(map[string]any{"kind": string(r.Kind)})
	}
	return nil
}

// ChargeSession is what the payer's client needs to complete the payment.
type ChargeSession struct {
	ID           string `json:"id"`
	Reference    string `json:"reference"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
	AmountMinor  int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Gateway initiates charges. Results arrive later as signed callbacks.
type Gateway interface {
	InitiateCharge(ctx context.Context, req ChargeRequest) (*ChargeSession, error)
}

// Event is a verified gateway callback reduced to what settlement needs.
type Event struct {
	ID          string
	Outcome     Outcome
	Kind        enums.ChargeKind
	Reference   string
	SessionID   string
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// Succeeded reports whether the callback confirms collected funds.
func (e Event) Succeeded() bool {
	return e.Outcome == OutcomeSucceeded
}
