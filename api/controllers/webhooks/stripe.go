package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/unimart-ng/marketplace-backend/api/responses"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// StripeWebhookGuard dedupes gateway deliveries by event id.
type StripeWebhookGuard interface {
	Begin(ctx context.Context, eventID string) (bool, error)
	Finish(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

type StripeSigningClient interface {
	SigningSecret() string
}

// StripeWebhook verifies a payment callback and hands it to svc. A finished
// event is acknowledged again without work; a failed one releases its claim
// so the gateway's retry is processed.
func StripeWebhook(svc StripeWebhookService, client StripeSigningClient, guard StripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || client == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment webhook not configured"))
			return
		}

		event, err := verifiedEvent(r, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})
		}

		fresh, err := guard.Begin(ctx, event.ID)
		if err != nil {
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook event")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !fresh {
			if logg != nil {
				logg.Debug(ctx, "duplicate payment webhook acknowledged")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			if releaseErr := guard.Release(context.WithoutCancel(ctx), event.ID); releaseErr != nil && logg != nil {
				logg.Error(ctx, "release webhook claim", releaseErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := guard.Finish(ctx, event.ID); err != nil && logg != nil {
			// the claim still expires on its own
			logg.Error(ctx, "mark webhook event done", err)
		}
		if logg != nil {
			logg.Info(ctx, "payment webhook processed")
		}
		responses.WriteSuccess(w, nil)
	}
}

func verifiedEvent(r *http.Request, secret string) (*stripe.Event, error) {
	sig := r.Header.Get(signatureHeader)
	if sig == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}
	payload, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook body too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body")
	}
	event, err := webhook.ConstructEvent(payload, sig, secret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify signature")
	}
	return &event, nil
}
