package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimart-ng/marketplace-backend/internal/checkout/helpers"
	"github.com/unimart-ng/marketplace-backend/internal/orders"
	"github.com/unimart-ng/marketplace-backend/internal/payments"
	product "github.com/unimart-ng/marketplace-backend/internal/products"
	"github.com/unimart-ng/marketplace-backend/internal/settlement"
	"github.com/unimart-ng/marketplace-backend/internal/shipping"
	"github.com/unimart-ng/marketplace-backend/internal/vendors"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
)

var (
	ErrAmountMismatch = pkgerrors.New(pkgerrors.CodeValidation, "paid amount does not match order total")
	ErrZeroTotalOrder = pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderSettler interface {
	RecordOrderPayment(ctx context.Context, tx *gorm.DB, input settlement.OrderPaymentInput) (*settlement.Recorded, error)
}

// Service executes checkout orchestration.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error)
	Start(ctx context.Context, input QuoteInput) (*StartResult, error)
	HandlePayment(ctx context.Context, event payments.Event) (*PaymentResult, error)
}

// ServiceParams groups checkout dependencies.
type ServiceParams struct {
	Products          product.Repository
	Vendors           vendors.Repository
	Orders            orders.Repository
	Settlement        orderSettler
	Gateway           payments.Gateway
	TransactionRunner txRunner
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	products   product.Repository
	vendors    vendors.Repository
	orders     orders.Repository
	settlement orderSettler
	gateway    payments.Gateway
	tx         txRunner
	logg       *logger.Logger
	now        func() time.Time
}

// QuoteInput is a cart plus the distance tier of each vendor shipping to the buyer.
type QuoteInput struct {
	UserID        uuid.UUID
	Lines         []helpers.CartLine
	DistanceTiers map[uuid.UUID]enums.DistanceTier
}

// GroupQuote is one vendor's shipment within a quote.
type GroupQuote struct {
	VendorID     uuid.UUID          `json:"vendor_id"`
	DistanceTier enums.DistanceTier `json:"distance_tier"`
	Subtotal     int64              `json:"subtotal"`
	Shipping     int64              `json:"shipping"`
	Total        int64              `json:"total"`
	Items        []ItemQuote        `json:"items"`
}

// ItemQuote is a priced cart line.
type ItemQuote struct {
	ProductID    uuid.UUID          `json:"product_id"`
	Name         string             `json:"name"`
	Quantity     int                `json:"quantity"`
	UnitPrice    int64              `json:"unit_price"`
	ShippingType enums.ShippingType `json:"shipping_type"`
}

// QuoteResult prices a whole cart.
type QuoteResult struct {
	Groups   []GroupQuote   `json:"groups"`
	Subtotal int64          `json:"subtotal"`
	Shipping int64          `json:"shipping"`
	Total    int64          `json:"total"`
	Currency enums.Currency `json:"currency"`

	priced []shipping.VendorGroup
	names  map[uuid.UUID]string
}

// OrderCharge pairs a created order with its gateway charge.
type OrderCharge struct {
	OrderID   uuid.UUID               `json:"order_id"`
	VendorID  uuid.UUID               `json:"vendor_id"`
	Reference string                  `json:"reference"`
	Total     int64                   `json:"total"`
	Charge    *payments.ChargeSession `json:"charge"`
}

// StartResult lists the orders of one checkout.
type StartResult struct {
	CheckoutID uuid.UUID     `json:"checkout_id"`
	Quote      *QuoteResult  `json:"quote"`
	Orders     []OrderCharge `json:"orders"`
}

// PaymentResult reports what an order callback changed.
type PaymentResult struct {
	OrderID   uuid.UUID
	Settled   bool
	Duplicate bool
	Cancelled bool
	Breakdown *settlement.Breakdown
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		products:   params.Products,
		vendors:    params.Vendors,
		orders:     params.Orders,
		settlement: params.Settlement,
		gateway:    params.Gateway,
		tx:         params.TransactionRunner,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func (s *service) Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error) {
	if err := helpers.ValidateCart(input.Lines); err != nil {
		return nil, err
	}
	if err := helpers.ValidateTiers(input.DistanceTiers); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	items, err := helpers.BuildLineItems(input.Lines, products)
	if err != nil {
		return nil, err
	}
	groups, err := shipping.GroupLineItems(items, input.DistanceTiers)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for _, group := range groups {
		vendor, err := s.vendors.FindByID(ctx, group.VendorID)
		if err != nil {
			return nil, err
		}
		if err := helpers.ValidateVendor(vendor, now); err != nil {
			return nil, err
		}
	}

	priced, err := shipping.Calculate(groups)
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(products))
	for id, p := range products {
		names[id] = p.Name
	}
	result := &QuoteResult{
		Groups:   make([]GroupQuote, 0, len(priced.Groups)),
		Shipping: priced.Total,
		Currency: enums.CurrencyNGN,
		priced:   priced.Groups,
		names:    names,
	}
	for _, group := range priced.Groups {
		gq := GroupQuote{
			VendorID:     group.VendorID,
			DistanceTier: group.DistanceTier,
			Subtotal:     group.Subtotal(),
			Shipping:     group.ComputedShipping,
			Items:        make([]ItemQuote, 0, len(group.LineItems)),
		}
		gq.Total = gq.Subtotal + gq.Shipping
		if gq.Total <= 0 {
			return nil, ErrZeroTotalOrder.WithDetails(map[string]any{"vendor_id": group.VendorID.String()})
		}
		for _, item := range group.LineItems {
			gq.Items = append(gq.Items, ItemQuote{
				ProductID:    item.ProductID,
				Name:         names[item.ProductID],
				Quantity:     item.Quantity,
				UnitPrice:    item.UnitPrice,
				ShippingType: item.ShippingType,
			})
		}
		result.Subtotal += gq.Subtotal
		result.Total += gq.Total
		result.Groups = append(result.Groups, gq)
	}
	return result, nil
}

// Start creates one pending order per vendor group and initiates one charge
// per order. If any charge cannot be initiated or recorded, every order of
// the checkout is cancelled and no sessions are returned.
func (s *service) Start(ctx context.Context, input QuoteInput) (*StartResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	quote, err := s.Quote(ctx, input)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	checkoutID := uuid.New()
	rows := make([]models.Order, 0, len(quote.priced))
	for _, group := range quote.priced {
		subtotal := group.Subtotal()
		rows = append(rows, models.Order{
			ID:           uuid.New(),
			CheckoutID:   checkoutID,
			VendorID:     group.VendorID,
			UserID:       input.UserID,
			Reference:    "ord_" + uuid.NewString(),
			Status:       enums.OrderStatusPendingPayment,
			DistanceTier: group.DistanceTier,
			Subtotal:     subtotal,
			Shipping:     group.ComputedShipping,
			Total:        subtotal + group.ComputedShipping,
			Currency:     enums.CurrencyNGN,
			Items:        helpers.Snapshot(group, quote.names),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orders.WithTx(tx).CreateOrders(ctx, rows)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create orders")
	}

	result := &StartResult{CheckoutID: checkoutID, Quote: quote, Orders: make([]OrderCharge, 0, len(rows))}
	for _, order := range rows {
		charge, err := s.gateway.InitiateCharge(ctx, payments.ChargeRequest{
			AmountMinor: order.Total,
			Currency:    order.Currency,
			Reference:   order.Reference,
			Kind:        enums.ChargeKindOrder,
			Description: fmt.Sprintf("Order %s", order.ID),
			Metadata: map[string]string{
				payments.MetaOrderID:  order.ID.String(),
				payments.MetaVendorID: order.VendorID.String(),
				payments.MetaUserID:   order.UserID.String(),
			},
		})
		if err != nil {
			s.cancelCheckout(ctx, rows)
			return nil, err
		}
		if err := s.orders.AttachGatewaySession(ctx, order.ID, charge.ID); err != nil {
			s.cancelCheckout(ctx, rows)
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach gateway session")
		}
		result.Orders = append(result.Orders, OrderCharge{
			OrderID:   order.ID,
			VendorID:  order.VendorID,
			Reference: order.Reference,
			Total:     order.Total,
			Charge:    charge,
		})
	}

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, input.UserID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"checkout_id": checkoutID.String(),
			"orders":      len(rows),
			"total":       quote.Total,
		})
		s.logg.Info(logCtx, "checkout started")
	}
	return result, nil
}

func (s *service) cancelCheckout(ctx context.Context, rows []models.Order) {
	for _, order := range rows {
		if _, err := s.orders.MarkCancelled(ctx, order.ID); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "cancel checkout order", err)
		}
	}
}

// HandlePayment applies a verified order callback. Success settles the order
// and marks it paid in one database transaction; cancellation releases a
// pending order; a failed attempt leaves the order payable.
func (s *service) HandlePayment(ctx context.Context, event payments.Event) (*PaymentResult, error) {
	if event.Kind != enums.ChargeKindOrder {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "not an order charge")
	}

	switch event.Outcome {
	case payments.OutcomeCancelled:
		order, err := s.orders.FindByReference(ctx, event.Reference)
		if err != nil {
			return nil, err
		}
		cancelled, err := s.orders.MarkCancelled(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		return &PaymentResult{OrderID: order.ID, Cancelled: cancelled}, nil
	case payments.OutcomeFailed:
		if s.logg != nil {
			s.logg.Warn(s.logg.WithReference(ctx, event.Reference), "order payment attempt failed")
		}
		return &PaymentResult{}, nil
	case payments.OutcomeSucceeded:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment outcome")
	}

	result := &PaymentResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		*result = PaymentResult{}
		order, err := s.orders.WithTx(tx).FindByReference(ctx, event.Reference)
		if err != nil {
			return err
		}
		result.OrderID = order.ID
		if event.AmountMinor != order.Total {
			return ErrAmountMismatch.WithDetails(map[string]any{
				"order_total": order.Total,
				"paid":        event.AmountMinor,
			})
		}

		vendor, err := s.vendors.WithTx(tx).FindByID(ctx, order.VendorID)
		if err != nil {
			return err
		}
		plan := vendor.SubscriptionPlan
		if plan == "" {
			plan = enums.PlanFree
		}

		recorded, err := s.settlement.RecordOrderPayment(ctx, tx, settlement.OrderPaymentInput{
			OrderID:               order.ID,
			VendorID:              order.VendorID,
			UserID:                order.UserID,
			Reference:             order.Reference,
			Gross:                 order.Total,
			Plan:                  plan,
			CommissionRatePercent: vendor.CommissionRate,
			GatewayEventID:        event.ID,
		})
		if err != nil {
			return err
		}
		breakdown := recorded.Breakdown
		result.Breakdown = &breakdown
		if recorded.Duplicate {
			result.Duplicate = true
			return nil
		}

		if _, err := s.orders.WithTx(tx).MarkPaid(ctx, order.ID, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		result.Settled = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
