package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

var ErrUnsupportedEvent = pkgerrors.New(pkgerrors.CodeIdempotency, "gateway event ignored")

type paymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams, idempotencyKey string) (*stripe.PaymentIntent, error)
}

// StripeGateway charges through Stripe PaymentIntents.
type StripeGateway struct {
	client paymentIntentCreator
}

// NewStripeGateway wraps a Stripe client as a Gateway.
func NewStripeGateway(client paymentIntentCreator) (*StripeGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &StripeGateway{client: client}, nil
}

func (g *StripeGateway) InitiateCharge(ctx context.Context, req ChargeRequest) (*ChargeSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(req.Currency.Lower()),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	params.AddMetadata(MetaReference, req.Reference)
	params.AddMetadata(MetaKind, string(req.Kind))

	intent, err := g.client.CreatePaymentIntent(ctx, params, req.Reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return &ChargeSession{
		ID:           intent.ID,
		Reference:    req.Reference,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
		AmountMinor:  intent.Amount,
		Currency:     string(intent.Currency),
	}, nil
}

// ParseStripeEvent maps a verified PaymentIntent event onto an Event.
// Event types outside the PaymentIntent lifecycle yield ErrUnsupportedEvent.
func ParseStripeEvent(event *stripe.Event) (*Event, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var outcome Outcome
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		outcome = OutcomeSucceeded
	case stripe.EventTypePaymentIntentCanceled:
		outcome = OutcomeCancelled
	case stripe.EventTypePaymentIntentPaymentFailed:
		outcome = OutcomeFailed
	default:
		return nil, ErrUnsupportedEvent.WithDetails(map[string]any{"type": string(event.Type)})
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}

	reference := strings.TrimSpace(intent.Metadata[MetaReference])
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent missing reference metadata")
	}
	kind, err := enums.ParseChargeKind(intent.Metadata[MetaKind])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment intent kind")
	}

	amount := intent.Amount
	if outcome == OutcomeSucceeded && intent.AmountReceived > 0 {
		amount = intent.AmountReceived
	}

	return &Event{
		ID:          event.ID,
		Outcome:     outcome,
		Kind:        kind,
		Reference:   reference,
		SessionID:   intent.ID,
		AmountMinor: amount,
		Currency:    strings.ToUpper(string(intent.Currency)),
		Metadata:    intent.Metadata,
	}, nil
}
