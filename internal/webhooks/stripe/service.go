package stripewebhook

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/unimart-ng/marketplace-backend/internal/checkout"
	"github.com/unimart-ng/marketplace-backend/internal/payments"
	"github.com/unimart-ng/marketplace-backend/internal/subscriptions"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
)

type planCompleter interface {
	CompletePlanPurchase(ctx context.Context, completion subscriptions.PurchaseCompletion) (*subscriptions.CompletionResult, error)
}

type orderPaymentHandler interface {
	HandlePayment(ctx context.Context, event payments.Event) (*checkout.PaymentResult, error)
}

type ServiceParams struct {
	Subscriptions planCompleter
	Checkout      orderPaymentHandler
	Logger        *logger.Logger
}

// Service routes verified payment intent callbacks to the flow that opened
// the charge.
type Service struct {
	subscriptions planCompleter
	checkout      orderPaymentHandler
	logg          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	return &Service{
		subscriptions: params.Subscriptions,
		checkout:      params.Checkout,
		logg:          params.Logger,
	}, nil
}

// HandleEvent applies one Stripe event. Event types outside the payment
// intent lifecycle are acknowledged without effect.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	parsed, err := payments.ParseStripeEvent(event)
	if err != nil {
		if errors.Is(err, payments.ErrUnsupportedEvent) {
			if s.logg != nil {
				s.logg.Debug(s.logg.WithField(ctx, "event_type", string(event.Type)), "stripe event ignored")
			}
			return nil
		}
		return err
	}
	ctx = s.withEvent(ctx, parsed)

	switch parsed.Kind {
	case enums.ChargeKindSubscription:
		return s.handlePlan(ctx, parsed)
	case enums.ChargeKindOrder:
		_, err := s.checkout.HandlePayment(ctx, *parsed)
		return err
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown charge kind")
	}
}

func (s *Service) handlePlan(ctx context.Context, event *payments.Event) error {
	completion, err := completionFromEvent(event)
	if err != nil {
		return err
	}
	result, err := s.subscriptions.CompletePlanPurchase(ctx, completion)
	if err != nil {
		return err
	}
	if result != nil && result.Activated && s.logg != nil {
		s.logg.Info(ctx, "plan activated from payment")
	}
	return nil
}

func completionFromEvent(event *payments.Event) (subscriptions.PurchaseCompletion, error) {
	completion := subscriptions.PurchaseCompletion{
		Reference:      event.Reference,
		GatewayEventID: event.ID,
		Outcome:        event.Outcome,
		Amount:         event.AmountMinor,
	}
	if !event.Succeeded() {
		return completion, nil
	}

	vendorID, err := uuid.Parse(strings.TrimSpace(event.Metadata[payments.MetaVendorID]))
	if err != nil {
		return completion, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "vendor id metadata")
	}
	plan, err := enums.ParsePlanID(strings.TrimSpace(event.Metadata[payments.MetaPlanID]))
	if err != nil {
		return completion, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "plan metadata")
	}
	completion.VendorID = vendorID
	completion.Plan = plan
	if raw := strings.TrimSpace(event.Metadata[payments.MetaUserID]); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return completion, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "user id metadata")
		}
		completion.UserID = userID
	}
	return completion, nil
}

func (s *Service) withEvent(ctx context.Context, event *payments.Event) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithReference(ctx, event.Reference)
	return s.logg.WithFields(ctx, map[string]any{
		"event_id": event.ID,
		"kind":     string(event.Kind),
		"outcome":  string(event.Outcome),
	})
}
