package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
)

type stubIntentCreator struct {
	params *stripe.PaymentIntentParams
	key    string
	err    error
}

func (s *stubIntentCreator) CreatePaymentIntent(_ context.Context, params *stripe.PaymentIntentParams, key string) (*stripe.PaymentIntent, error) {
	s.params = params
	s.key = key
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.PaymentIntent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		Amount:       *params.Amount,
		Currency:     stripe.Currency(*params.Currency),
	}, nil
}

func TestStripeGatewayInitiateCharge(t *testing.T) {
	creator := &stubIntentCreator{}
	gateway, err := NewStripeGateway(creator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session, err := gateway.InitiateCharge(context.Background(), ChargeRequest{
		AmountMinor: 7000,
		Currency:    enums.CurrencyNGN,
		Reference:   "sub_ref_1",
		Kind:        enums.ChargeKindSubscription,
		Metadata:    map[string]string{MetaPlanID: "economy"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "pi_123" || session.Reference != "sub_ref_1" || session.ClientSecret == "" {
		t.Fatalf("unexpected session %+v", session)
	}
	if creator.key != "sub_ref_1" {
		t.Fatalf("expected reference as idempotency key, got %q", creator.key)
	}
	if *creator.params.Currency != "ngn" {
		t.Fatalf("expected ngn currency, got %q", *creator.params.Currency)
	}
	if creator.params.Metadata[MetaReference] != "sub_ref_1" || creator.params.Metadata[MetaKind] != "subscription" {
		t.Fatalf("unexpected metadata %+v", creator.params.Metadata)
	}
	if creator.params.Metadata[MetaPlanID] != "economy" {
		t.Fatalf("expected caller metadata preserved")
	}
}

func TestStripeGatewayRejectsInvalidRequest(t *testing.T) {
	creator := &stubIntentCreator{}
	gateway, _ := NewStripeGateway(creator)

	_, err := gateway.InitiateCharge(context.Background(), ChargeRequest{
		AmountMinor: 0,
		Currency:    enums.CurrencyNGN,
		Reference:   "ref",
		Kind:        enums.ChargeKindOrder,
	})
	if !errors.Is(err, ErrInvalidCharge) {
		t.Fatalf("expected ErrInvalidCharge, got %v", err)
	}
	if creator.params != nil {
		t.Fatalf("gateway must not be called for invalid requests")
	}
}

func TestStripeGatewayWrapsGatewayErrors(t *testing.T) {
	gateway, _ := NewStripeGateway(&stubIntentCreator{err: errors.New("card network down")})
	_, err := gateway.InitiateCharge(context.Background(), ChargeRequest{
		AmountMinor: 500,
		Currency:    enums.CurrencyNGN,
		Reference:   "ord_1",
		Kind:        enums.ChargeKindOrder,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func intentEvent(t *testing.T, eventType stripe.EventType, intent stripe.PaymentIntent) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_1",
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestParseStripeEventOutcomes(t *testing.T) {
	intent := stripe.PaymentIntent{
		ID:             "pi_1",
		Amount:         1150,
		AmountReceived: 1150,
		Currency:       "ngn",
		Metadata: map[string]string{
			MetaReference: "ord_ref",
			MetaKind:      "order",
		},
	}
	cases := []struct {
		eventType stripe.EventType
		outcome   Outcome
	}{
		{stripe.EventTypePaymentIntentSucceeded, OutcomeSucceeded},
		{stripe.EventTypePaymentIntentCanceled, OutcomeCancelled},
		{stripe.EventTypePaymentIntentPaymentFailed, OutcomeFailed},
	}
	for _, tc := range cases {
		parsed, err := ParseStripeEvent(intentEvent(t, tc.eventType, intent))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.eventType, err)
		}
		if parsed.Outcome != tc.outcome {
			t.Fatalf("%s: expected %s, got %s", tc.eventType, tc.outcome, parsed.Outcome)
		}
		if parsed.Reference != "ord_ref" || parsed.Kind != enums.ChargeKindOrder || parsed.AmountMinor != 1150 {
			t.Fatalf("%s: unexpected event %+v", tc.eventType, parsed)
		}
		if parsed.Currency != "NGN" {
			t.Fatalf("expected upper-case currency, got %q", parsed.Currency)
		}
	}
}

func TestParseStripeEventIgnoresOtherTypes(t *testing.T) {
	_, err := ParseStripeEvent(intentEvent(t, stripe.EventTypeCustomerCreated, stripe.PaymentIntent{}))
	if !errors.Is(err, ErrUnsupportedEvent) {
		t.Fatalf("expected ErrUnsupportedEvent, got %v", err)
	}
}

func TestParseStripeEventRequiresReference(t *testing.T) {
	_, err := ParseStripeEvent(intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{
		ID:       "pi_2",
		Metadata: map[string]string{MetaKind: "order"},
	}))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
