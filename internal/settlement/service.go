package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimart-ng/marketplace-backend/internal/plans"
	"github.com/unimart-ng/marketplace-backend/internal/transactions"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/metrics"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/payloads"
)

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service records settlement transactions for confirmed gateway payments.
// Record* methods run inside the caller's database transaction.
type Service interface {
	RecordOrderPayment(ctx context.Context, tx *gorm.DB, input OrderPaymentInput) (*Recorded, error)
	RecordSubscriptionPayment(ctx context.Context, tx *gorm.DB, input SubscriptionPaymentInput) (*Recorded, error)
	VendorReport(ctx context.Context, query ReportQuery) (*Report, error)
}

// ServiceParams wires the settlement service.
type ServiceParams struct {
	Transactions transactions.Repository
	Outbox       outboxEmitter
	Metrics      *metrics.EngineMetrics
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	transactions transactions.Repository
	outbox       outboxEmitter
	metrics      *metrics.EngineMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// OrderPaymentInput describes a successful order charge. Plan and
// CommissionRatePercent are the vendor's values at payment time.
type OrderPaymentInput struct {
	OrderID               uuid.UUID
	VendorID              uuid.UUID
	UserID                uuid.UUID
	Reference             string
	Gross                 int64
	Plan                  enums.PlanID
	CommissionRatePercent int
	GatewayEventID        string
}

// SubscriptionPaymentInput describes a successful plan purchase charge.
type SubscriptionPaymentInput struct {
	VendorID       uuid.UUID
	UserID         uuid.UUID
	Reference      string
	Amount         int64
	Plan           enums.PlanID
	GatewayEventID string
}

// Recorded is the outcome of a Record* call. Duplicate is true when the
// reference had already been recorded and the stored row is returned.
type Recorded struct {
	Transaction *models.Transaction
	Breakdown   Breakdown
	Duplicate   bool
}

// NewService validates dependencies and returns a settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		transactions: params.Transactions,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          now,
	}, nil
}

func (s *service) RecordOrderPayment(ctx context.Context, tx *gorm.DB, input OrderPaymentInput) (*Recorded, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validateReference(input.Reference); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil || input.VendorID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order, vendor and user ids are required")
	}
	if !input.Plan.IsValid() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMissingPlanMetadata, fmt.Sprintf("plan %q", input.Plan))
	}
	breakdown, err := Split(input.Gross, input.CommissionRatePercent)
	if err != nil {
		return nil, err
	}

	vendorID := input.VendorID
	rate := breakdown.CommissionRatePercent
	commission := breakdown.PlatformCommission
	payout := breakdown.VendorPayout
	txn := &models.Transaction{
		Type:      enums.TransactionTypeOrderPayment,
		Amount:    input.Gross,
		VendorID:  &vendorID,
		UserID:    input.UserID,
		Reference: input.Reference,
		Status:    enums.TransactionStatusCompleted,
		CreatedAt: s.now().UTC(),
	}
	txn.Metadata.Kind = string(enums.ChargeKindOrder)
	txn.Metadata.SubscriptionPlan = string(input.Plan)
	txn.Metadata.CommissionRate = &rate
	txn.Metadata.PlatformCommission = &commission
	txn.Metadata.VendorPayout = &payout
	txn.Metadata.OrderID = input.OrderID.String()
	txn.Metadata.GatewayEventID = input.GatewayEventID

	stored, created, err := s.transactions.WithTx(tx).CreateIfAbsent(ctx, txn)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record order payment")
	}
	if !created {
		return s.duplicate(ctx, stored)
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   input.OrderID,
		Actor:         &outbox.ActorRef{UserID: input.UserID, VendorID: &vendorID},
		OccurredAt:    stored.CreatedAt,
		Data: payloads.OrderSettledEvent{
			OrderID:               input.OrderID,
			TransactionID:         stored.ID,
			VendorID:              input.VendorID,
			UserID:                input.UserID,
			Reference:             stored.Reference,
			Gross:                 breakdown.Gross,
			PlatformCommission:    breakdown.PlatformCommission,
			VendorPayout:          breakdown.VendorPayout,
			CommissionRatePercent: breakdown.CommissionRatePercent,
			SubscriptionPlan:      input.Plan,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order settled event")
	}

	s.metrics.IncRecorded(string(stored.Type))
	s.metrics.AddCommission(breakdown.PlatformCommission)
	if s.logg != nil {
		logCtx := s.logg.WithReference(ctx, stored.Reference)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_id":            input.OrderID.String(),
			"vendor_id":           input.VendorID.String(),
			"gross":               breakdown.Gross,
			"platform_commission": breakdown.PlatformCommission,
		})
		s.logg.Info(logCtx, "order payment recorded")
	}
	return &Recorded{Transaction: stored, Breakdown: breakdown}, nil
}

func (s *service) RecordSubscriptionPayment(ctx context.Context, tx *gorm.DB, input SubscriptionPaymentInput) (*Recorded, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validateReference(input.Reference); err != nil {
		return nil, err
	}
	if input.VendorID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor and user ids are required")
	}
	if _, err := plans.Get(input.Plan); err != nil {
		return nil, err
	}
	breakdown, err := PlatformOnly(input.Amount)
	if err != nil {
		return nil, err
	}

	vendorID := input.VendorID
	txn := &models.Transaction{
		Type:      enums.TransactionTypeSubscription,
		Amount:    input.Amount,
		VendorID:  &vendorID,
		UserID:    input.UserID,
		Reference: input.Reference,
		Status:    enums.TransactionStatusCompleted,
		CreatedAt: s.now().UTC(),
	}
	txn.Metadata.Kind = string(enums.ChargeKindSubscription)
	txn.Metadata.PlanID = string(input.Plan)
	txn.Metadata.GatewayEventID = input.GatewayEventID

	stored, created, err := s.transactions.WithTx(tx).CreateIfAbsent(ctx, txn)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record subscription payment")
	}
	if !created {
		return s.duplicate(ctx, stored)
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventSubscriptionPaymentRecorded,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   stored.ID,
		Actor:         &outbox.ActorRef{UserID: input.UserID, VendorID: &vendorID},
		OccurredAt:    stored.CreatedAt,
		Data: payloads.SubscriptionPaymentRecordedEvent{
			TransactionID: stored.ID,
			VendorID:      input.VendorID,
			PlanID:        input.Plan,
			Amount:        input.Amount,
			Reference:     stored.Reference,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit subscription payment event")
	}

	s.metrics.IncRecorded(string(stored.Type))
	if s.logg != nil {
		logCtx := s.logg.WithReference(ctx, stored.Reference)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"vendor_id": input.VendorID.String(),
			"plan_id":   string(input.Plan),
			"amount":    input.Amount,
		})
		s.logg.Info(logCtx, "subscription payment recorded")
	}
	return &Recorded{Transaction: stored, Breakdown: breakdown}, nil
}

// duplicate absorbs a replayed callback: the stored row is the answer.
func (s *service) duplicate(ctx context.Context, stored *models.Transaction) (*Recorded, error) {
	s.metrics.IncDuplicate(string(stored.Type))
	if s.logg != nil {
		logCtx := s.logg.WithReference(ctx, stored.Reference)
		s.logg.Info(logCtx, ErrDuplicateReference.Message())
	}
	breakdown, err := SplitFromTransaction(*stored)
	if err != nil {
		return nil, err
	}
	return &Recorded{Transaction: stored, Breakdown: breakdown, Duplicate: true}, nil
}

func validateReference(reference string) error {
	if strings.TrimSpace(reference) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	return nil
}

// SplitFromTransaction rebuilds the breakdown of a stored row from its own
// metadata, never from the vendor's current plan.
func SplitFromTransaction(txn models.Transaction) (Breakdown, error) {
	switch txn.Type {
	case enums.TransactionTypeSubscription, enums.TransactionTypeCommission:
		return PlatformOnly(txn.Amount)
	case enums.TransactionTypeOrderPayment:
		if txn.Metadata.CommissionRate != nil {
			return Split(txn.Amount, *txn.Metadata.CommissionRate)
		}
		if txn.Metadata.SubscriptionPlan == "" {
			return Breakdown{}, ErrMissingPlanMetadata.WithDetails(map[string]any{"reference": txn.Reference})
		}
		def, err := plans.Parse(txn.Metadata.SubscriptionPlan)
		if err != nil {
			return Breakdown{}, err
		}
		return Split(txn.Amount, def.CommissionRatePercent)
	default:
		return Breakdown{}, ErrUnsupportedTransaction.WithDetails(map[string]any{"type": string(txn.Type)})
	}
}
