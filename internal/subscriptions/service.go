package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/unimart-ng/marketplace-backend/internal/payments"
	"github.com/unimart-ng/marketplace-backend/internal/plans"
	"github.com/unimart-ng/marketplace-backend/internal/settlement"
	"github.com/unimart-ng/marketplace-backend/internal/vendors"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/metrics"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentRecorder interface {
	RecordSubscriptionPayment(ctx context.Context, tx *gorm.DB, input settlement.SubscriptionPaymentInput) (*settlement.Recorded, error)
}

// Service defines the vendor subscription lifecycle surface.
type Service interface {
	ActivatePlan(ctx context.Context, input ActivateInput) (*models.Vendor, error)
	StartPlanPurchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error)
	CompletePlanPurchase(ctx context.Context, completion PurchaseCompletion) (*CompletionResult, error)
	GetStatus(ctx context.Context, vendorID uuid.UUID) (*SubscriptionStatus, error)
	SuspendExpired(ctx context.Context, limit int) (int, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Vendors           vendors.Repository
	Payments          paymentRecorder
	Gateway           payments.Gateway
	Outbox            outboxEmitter
	TransactionRunner txRunner
	Metrics           *metrics.EngineMetrics
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	vendors  vendors.Repository
	payments paymentRecorder
	gateway  payments.Gateway
	outbox   outboxEmitter
	txRunner txRunner
	metrics  *metrics.EngineMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// ActivateInput requests a new cycle on Plan. Receipt is required for paid plans.
type ActivateInput struct {
	VendorID    uuid.UUID
	Plan        enums.PlanID
	Receipt     *PaymentReceipt
	ActorUserID uuid.UUID
}

// PurchaseInput starts a plan purchase on behalf of the vendor's owner.
type PurchaseInput struct {
	VendorID    uuid.UUID
	Plan        enums.PlanID
	ActorUserID uuid.UUID
}

// PurchaseResult is either an immediate free activation or a pending charge.
type PurchaseResult struct {
	Plan      enums.PlanID            `json:"plan_id"`
	Activated bool                    `json:"activated"`
	Charge    *payments.ChargeSession `json:"charge,omitempty"`
	Status    *SubscriptionStatus     `json:"subscription,omitempty"`
}

// PurchaseCompletion is a verified gateway callback for a plan charge.
type PurchaseCompletion struct {
	Reference      string
	GatewayEventID string
	Outcome        payments.Outcome
	Amount         int64
	VendorID       uuid.UUID
	UserID         uuid.UUID
	Plan           enums.PlanID
}

// CompletionResult reports what a plan callback changed. Rejected carries the
// business rule that blocked activation after the payment was recorded.
type CompletionResult struct {
	Recorded  bool
	Duplicate bool
	Activated bool
	Rejected  error
}

// SubscriptionStatus is the read model served to vendors.
type SubscriptionStatus struct {
	VendorID          uuid.UUID        `json:"vendor_id"`
	Plan              plans.Definition `json:"plan"`
	Status            Status           `json:"status"`
	CycleStart        *time.Time       `json:"cycle_start,omitempty"`
	CycleEnd          *time.Time       `json:"cycle_end,omitempty"`
	DaysRemaining     int              `json:"days_remaining"`
	IsSuspended       bool             `json:"is_suspended"`
	ProductLimit      int              `json:"product_limit"`
	CommissionRate    int              `json:"commission_rate"`
	HasHomeVisibility bool             `json:"has_home_visibility"`
	FreeAdsRemaining  int              `json:"free_ads_remaining"`
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment recorder required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		vendors:  params.Vendors,
		payments: params.Payments,
		gateway:  params.Gateway,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) ActivatePlan(ctx context.Context, input ActivateInput) (*models.Vendor, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if _, err := plans.Get(input.Plan); err != nil {
		return nil, err
	}

	var activated *models.Vendor
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		vendor, err := s.activateTx(ctx, tx, input)
		if err != nil {
			return err
		}
		activated = vendor
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

// activateTx evaluates and writes an activation inside tx. A lost version
// race re-reads the vendor and evaluates once more before giving up.
func (s *service) activateTx(ctx context.Context, tx *gorm.DB, input ActivateInput) (*models.Vendor, error) {
	def, err := plans.Get(input.Plan)
	if err != nil {
		return nil, err
	}
	repo := s.vendors.WithTx(tx)

	for attempt := 0; attempt < 2; attempt++ {
		vendor, err := repo.FindByID(ctx, input.VendorID)
		if err != nil {
			return nil, err
		}
		state := StateOf(vendor)
		if isReplay(state, input.Plan, input.Receipt) {
			return vendor, nil
		}

		now := s.now().UTC()
		if err := CanChangePlan(state, input.Plan, now); err != nil {
			return nil, err
		}
		if err := checkReceipt(def, input.Receipt); err != nil {
			return nil, err
		}

		update := vendors.SubscriptionUpdate{
			Plan:              def.ID,
			StartDate:         now,
			EndDate:           now.AddDate(0, 0, plans.CycleDays),
			ProductLimit:      def.ProductLimit,
			CommissionRate:    def.CommissionRatePercent,
			HasHomeVisibility: def.HomeVisibility,
			FreeAdsRemaining:  def.FreeAdsPerCycle,
		}
		if def.IsPaid() {
			ref := input.Receipt.Reference
			update.Reference = &ref
		}

		ok, err := repo.UpdateSubscription(ctx, vendor.ID, vendor.SubscriptionVersion, update)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update vendor subscription")
		}
		if !ok {
			s.metrics.IncConflict()
			continue
		}

		if err := s.emitActivated(ctx, tx, vendor, update, input.ActorUserID); err != nil {
			return nil, err
		}
		applyUpdate(vendor, update)
		s.metrics.IncActivation(string(def.ID))
		if s.logg != nil {
			logCtx := s.logg.WithVendorID(ctx, vendor.ID.String())
			logCtx = s.logg.WithFields(logCtx, map[string]any{
				"plan_id":       string(def.ID),
				"previous_plan": string(state.Plan),
				"cycle_end":     update.EndDate,
			})
			s.logg.Info(logCtx, "subscription activated")
		}
		return vendor, nil
	}
	return nil, ErrConcurrentModification
}

func (s *service) emitActivated(ctx context.Context, tx *gorm.DB, vendor *models.Vendor, update vendors.SubscriptionUpdate, actorID uuid.UUID) error {
	data := payloads.SubscriptionActivatedEvent{
		VendorID:     vendor.ID,
		PlanID:       update.Plan,
		PreviousPlan: StateOf(vendor).Plan,
		CycleStart:   update.StartDate,
		CycleEnd:     update.EndDate,
	}
	if update.Reference != nil {
		data.Reference = *update.Reference
	}
	if actorID == uuid.Nil {
		actorID = vendor.OwnerUserID
	}
	vendorID := vendor.ID
	event := outbox.DomainEvent{
		EventType:     enums.EventSubscriptionActivated,
		AggregateType: enums.AggregateVendor,
		AggregateID:   vendor.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, VendorID: &vendorID},
		OccurredAt:    update.StartDate,
		Data:          data,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit subscription activated event")
	}
	return nil
}

func applyUpdate(vendor *models.Vendor, update vendors.SubscriptionUpdate) {
	start := update.StartDate
	end := update.EndDate
	vendor.SubscriptionPlan = update.Plan
	vendor.SubscriptionStartDate = &start
	vendor.SubscriptionEndDate = &end
	vendor.IsSuspended = false
	vendor.ProductLimit = update.ProductLimit
	vendor.CommissionRate = update.CommissionRate
	vendor.HasHomeVisibility = update.HasHomeVisibility
	vendor.FreeAdsRemaining = update.FreeAdsRemaining
	vendor.SubscriptionReference = update.Reference
	vendor.SubscriptionVersion++
}

func (s *service) StartPlanPurchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	def, err := plans.Get(input.Plan)
	if err != nil {
		return nil, err
	}
	vendor, err := s.vendors.FindByID(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}
	if input.ActorUserID != uuid.Nil && input.ActorUserID != vendor.OwnerUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the vendor owner can change the plan")
	}
	if err := CanChangePlan(StateOf(vendor), def.ID, s.now().UTC()); err != nil {
		return nil, err
	}

	if !def.IsPaid() {
		activated, err := s.ActivatePlan(ctx, ActivateInput{VendorID: vendor.ID, Plan: def.ID, ActorUserID: input.ActorUserID})
		if err != nil {
			return nil, err
		}
		return &PurchaseResult{Plan: def.ID, Activated: true, Status: s.statusOf(activated)}, nil
	}

	reference := "sub_" + uuid.NewString()
	charge, err := s.gateway.InitiateCharge(ctx, payments.ChargeRequest{
		AmountMinor: def.MonthlyPrice,
		Currency:    enums.CurrencyNGN,
		Reference:   reference,
		Kind:        enums.ChargeKindSubscription,
		Description: fmt.Sprintf("%s plan, %d days", def.Name, plans.CycleDays),
		Metadata: map[string]string{
			payments.MetaVendorID: vendor.ID.String(),
			payments.MetaUserID:   vendor.OwnerUserID.String(),
			payments.MetaPlanID:   string(def.ID),
		},
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithVendorID(ctx, vendor.ID.String())
		logCtx = s.logg.WithReference(logCtx, reference)
		s.logg.Info(logCtx, "plan purchase charge initiated")
	}
	return &PurchaseResult{Plan: def.ID, Charge: charge, Status: s.statusOf(vendor)}, nil
}

// CompletePlanPurchase records the plan payment and activates the plan in one
// database transaction. Payments that arrive for a decision no longer allowed
// stay recorded and are reported through Rejected.
func (s *service) CompletePlanPurchase(ctx context.Context, completion PurchaseCompletion) (*CompletionResult, error) {
	if completion.Outcome != payments.OutcomeSucceeded {
		if s.logg != nil {
			logCtx := s.logg.WithReference(ctx, completion.Reference)
			logCtx = s.logg.WithField(logCtx, "outcome", string(completion.Outcome))
			s.logg.Info(logCtx, "plan charge did not succeed")
		}
		return &CompletionResult{}, nil
	}
	if completion.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if _, err := plans.Get(completion.Plan); err != nil {
		return nil, err
	}

	result := &CompletionResult{}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		*result = CompletionResult{}
		userID := completion.UserID
		if userID == uuid.Nil {
			vendor, err := s.vendors.WithTx(tx).FindByID(ctx, completion.VendorID)
			if err != nil {
				return err
			}
			userID = vendor.OwnerUserID
		}

		recorded, err := s.payments.RecordSubscriptionPayment(ctx, tx, settlement.SubscriptionPaymentInput{
			VendorID:       completion.VendorID,
			UserID:         userID,
			Reference:      completion.Reference,
			Amount:         completion.Amount,
			Plan:           completion.Plan,
			GatewayEventID: completion.GatewayEventID,
		})
		if err != nil {
			return err
		}
		result.Recorded = true
		if recorded.Duplicate {
			result.Duplicate = true
			return nil
		}

		_, err = s.activateTx(ctx, tx, ActivateInput{
			VendorID:    completion.VendorID,
			Plan:        completion.Plan,
			ActorUserID: userID,
			Receipt: &PaymentReceipt{
				Reference: completion.Reference,
				Amount:    completion.Amount,
				Succeeded: true,
			},
		})
		if err != nil {
			if pkgerrors.KindOf(err) == pkgerrors.KindBusinessRule {
				result.Rejected = err
				return nil
			}
			return err
		}
		result.Activated = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Rejected != nil && s.logg != nil {
		logCtx := s.logg.WithVendorID(ctx, completion.VendorID.String())
		logCtx = s.logg.WithReference(logCtx, completion.Reference)
		s.logg.Warn(logCtx, fmt.Sprintf("plan payment recorded but activation rejected: %v", result.Rejected))
	}
	return result, nil
}

func (s *service) GetStatus(ctx context.Context, vendorID uuid.UUID) (*SubscriptionStatus, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return s.statusOf(vendor), nil
}

func (s *service) statusOf(vendor *models.Vendor) *SubscriptionStatus {
	now := s.now().UTC()
	state := StateOf(vendor)
	def, err := plans.Get(state.Plan)
	if err != nil {
		def, _ = plans.Get(enums.PlanFree)
	}
	status := &SubscriptionStatus{
		VendorID:          vendor.ID,
		Plan:              def,
		Status:            StatusOf(state, now),
		CycleStart:        state.CycleStart,
		CycleEnd:          state.CycleEnd,
		IsSuspended:       IsSuspended(state, now),
		ProductLimit:      vendor.ProductLimit,
		CommissionRate:    vendor.CommissionRate,
		HasHomeVisibility: vendor.HasHomeVisibility,
		FreeAdsRemaining:  vendor.FreeAdsRemaining,
	}
	if state.CycleEnd != nil {
		status.DaysRemaining = DaysRemaining(*state.CycleEnd, now)
	}
	return status
}

// SuspendExpired flags up to limit vendors whose cycle has ended. Each vendor
// is written in its own transaction; failures are collected, not fatal.
func (s *service) SuspendExpired(ctx context.Context, limit int) (int, error) {
	now := s.now().UTC()
	expired, err := s.vendors.ListExpiredUnsuspended(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list expired vendors")
	}

	var (
		suspended int
		errs      error
	)
	for i := range expired {
		vendor := expired[i]
		err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.vendors.WithTx(tx).MarkSuspended(ctx, vendor.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				return errSkipped
			}
			vendorID := vendor.ID
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventVendorSuspended,
				AggregateType: enums.AggregateVendor,
				AggregateID:   vendor.ID,
				Actor:         &outbox.ActorRef{UserID: vendor.OwnerUserID, VendorID: &vendorID, Role: "system"},
				OccurredAt:    now,
				Data: payloads.VendorSuspendedEvent{
					VendorID:    vendor.ID,
					PlanID:      vendor.SubscriptionPlan,
					CycleEnd:    vendor.SubscriptionEndDate.UTC(),
					SuspendedAt: now,
				},
			})
		})
		switch {
		case errors.Is(err, errSkipped):
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("suspend vendor %s: %w", vendor.ID, err))
		default:
			suspended++
		}
	}

	s.metrics.AddSuspensions(suspended)
	if suspended > 0 && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "suspended", suspended)
		s.logg.Info(logCtx, "expired subscriptions suspended")
	}
	return suspended, errs
}

var errSkipped = errors.New("vendor renewed before suspension")
