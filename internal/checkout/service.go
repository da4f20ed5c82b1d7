// Package checkout implements the order-placement workflow: customer
// capture, agreement/token issuance, order creation and payment
// confirmation. Placement runs as a compensated multi-step orchestration
// so a half-created placement never survives a mid-flight failure.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/NickolasKemp/ordify/internal/audit"
	"github.com/NickolasKemp/ordify/internal/checkout/flowlog"
	"github.com/NickolasKemp/ordify/internal/domain"
	"github.com/NickolasKemp/ordify/internal/payments"
)

// Ports into the resource services. Checkout depends on these
// abstractions so tests can exercise the workflow with stubs.
type (
	// ProductService reads products and drops their cached snapshots
	// after placement moves stock outside the catalog service.
	ProductService interface {
		Get(ctx context.Context, id string) (*domain.Product, error)
		Refresh(ctx context.Context, id string) error
	}

	CustomerService interface {
		Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error)
		Delete(ctx context.Context, id string) (*domain.Customer, error)
	}

	AgreementService interface {
		Create(ctx context.Context, customerID string, period domain.AgreementPeriod, legalEntity *domain.LegalEntity) (*domain.Agreement, error)
		Deactivate(ctx context.Context, id string) (*domain.Agreement, error)
		ValidateToken(ctx context.Context, token string) (*domain.Agreement, error)
	}

	OrderStore interface {
		CreateOrder(ctx context.Context, o *domain.Order) error
		DeleteOrder(ctx context.Context, id string) error
		DecrementProductStock(ctx context.Context, id string, by int) error
		IncrementProductStock(ctx context.Context, id string, by int) error
	}

	PaymentService interface {
		PayOrder(ctx context.Context, orderID string, card domain.CardDetails) (*payments.PayOrderResult, error)
	}

	// OrderRefresher invalidates the admin order listing after checkout
	// mutates orders outside the orders service.
	OrderRefresher interface {
		Refresh(ctx context.Context) error
	}
)

type Service struct {
	products   ProductService
	customers  CustomerService
	agreements AgreementService
	orders     OrderStore
	payments   PaymentService
	refresher  OrderRefresher
	flows      flowlog.Repository
	audit      audit.Publisher
	log        *slog.Logger
}

func NewService(
	products ProductService,
	customers CustomerService,
	agreements AgreementService,
	orders OrderStore,
	pay PaymentService,
	refresher OrderRefresher,
	flows flowlog.Repository,
	publisher audit.Publisher,
	log *slog.Logger,
) *Service {
	return &Service{
		products:   products,
		customers:  customers,
		agreements: agreements,
		orders:     orders,
		payments:   pay,
		refresher:  refresher,
		flows:      flows,
		audit:      publisher,
		log:        log,
	}
}

// PlacementRequest is the new-customer placement input: full customer and
// legal-entity capture plus the agreement period.
type PlacementRequest struct {
	ProductID   string                 `json:"productId"`
	Quantity    int                    `json:"quantity"`
	DeliveryWay domain.DeliveryWay     `json:"deliveryWay"`
	Customer    domain.Customer        `json:"customer"`
	LegalEntity domain.LegalEntity     `json:"legalEntity"`
	Period      domain.AgreementPeriod `json:"period"`
}

// TokenPlacementRequest is the returning-customer placement input; the
// customer is resolved from the client token.
type TokenPlacementRequest struct {
	ProductID   string             `json:"productId"`
	Quantity    int                `json:"quantity"`
	DeliveryWay domain.DeliveryWay `json:"deliveryWay"`
}

// PlacementResult reports a successful placement. ClientToken is only set
// on the new-customer path, where a fresh agreement was issued.
type PlacementResult struct {
	FlowID      string        `json:"flowId"`
	Order       *domain.Order `json:"order"`
	ClientToken string        `json:"clientToken,omitempty"`
}

// PlaceWithAgreement runs the first-order path: create the customer,
// issue an agreement with a fresh client token, reserve stock and create
// the order. Any step failure compensates the steps already done.
func (s *Service) PlaceWithAgreement(ctx context.Context, req PlacementRequest) (*PlacementResult, error) {
	if err := req.Customer.Validate(); err != nil {
		return nil, err
	}
	if err := req.LegalEntity.Validate(); err != nil {
		return nil, err
	}
	if !req.Period.Valid() {
		return nil, fmt.Errorf("%w: unknown agreement period %q", domain.ErrValidation, req.Period)
	}
	if !req.DeliveryWay.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery way %q", domain.ErrValidation, req.DeliveryWay)
	}

	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	total, billed, err := Quote(product, req.Quantity, req.DeliveryWay)
	if err != nil {
		return nil, err
	}

	var (
		customerID string
		agreement  *domain.Agreement
		orderID    string
	)
	steps := []Step{
		&createCustomerStep{customers: s.customers, input: req.Customer, customerID: &customerID},
		&createAgreementStep{
			agreements:  s.agreements,
			customerID:  &customerID,
			period:      req.Period,
			legalEntity: &req.LegalEntity,
			agreement:   &agreement,
		},
		&reserveStockStep{store: s.orders, productID: product.ID, quantity: billed},
		&createOrderStep{
			store:      s.orders,
			productID:  product.ID,
			customerID: &customerID,
			agreementID: func() string {
				if agreement == nil {
					return ""
				}
				return agreement.ID
			},
			quantity:    billed,
			price:       total,
			deliveryWay: req.DeliveryWay,
			orderID:     &orderID,
		},
	}

	flowID := uuid.NewString()
	if err := s.run(ctx, flowID, steps, req); err != nil {
		s.refreshProduct(ctx, product.ID)
		return nil, err
	}

	return s.finishPlacement(ctx, flowID, product.ID, orderID, agreement.ClientToken)
}

// PlaceWithToken runs the returning-customer path against an existing
// agreement resolved from the opaque client token.
func (s *Service) PlaceWithToken(ctx context.Context, token string, req TokenPlacementRequest) (*PlacementResult, error) {
	if !req.DeliveryWay.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery way %q", domain.ErrValidation, req.DeliveryWay)
	}

	agreement, err := s.agreements.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	total, billed, err := Quote(product, req.Quantity, req.DeliveryWay)
	if err != nil {
		return nil, err
	}

	customerID := agreement.CustomerID
	var orderID string
	steps := []Step{
		&reserveStockStep{store: s.orders, productID: product.ID, quantity: billed},
		&createOrderStep{
			store:       s.orders,
			productID:   product.ID,
			customerID:  &customerID,
			agreementID: func() string { return agreement.ID },
			quantity:    billed,
			price:       total,
			deliveryWay: req.DeliveryWay,
			orderID:     &orderID,
		},
	}

	flowID := uuid.NewString()
	if err := s.run(ctx, flowID, steps, req); err != nil {
		s.refreshProduct(ctx, product.ID)
		return nil, err
	}

	return s.finishPlacement(ctx, flowID, product.ID, orderID, "")
}

// AgreementPlacementRequest places an order for an already existing
// customer, issuing a new agreement in the same flow.
type AgreementPlacementRequest struct {
	Quantity    int                    `json:"quantity"`
	DeliveryWay domain.DeliveryWay     `json:"deliveryWay"`
	LegalEntity domain.LegalEntity     `json:"legalEntity"`
	Period      domain.AgreementPeriod `json:"period"`
}

// PlaceForCustomer is the placement path for a customer created in a
// prior call: issue an agreement, reserve stock, create the order.
func (s *Service) PlaceForCustomer(ctx context.Context, customerID, productID string, req AgreementPlacementRequest) (*PlacementResult, error) {
	if err := req.LegalEntity.Validate(); err != nil {
		return nil, err
	}
	if !req.Period.Valid() {
		return nil, fmt.Errorf("%w: unknown agreement period %q", domain.ErrValidation, req.Period)
	}
	if !req.DeliveryWay.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery way %q", domain.ErrValidation, req.DeliveryWay)
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	total, billed, err := Quote(product, req.Quantity, req.DeliveryWay)
	if err != nil {
		return nil, err
	}

	var (
		agreement *domain.Agreement
		orderID   string
	)
	steps := []Step{
		&createAgreementStep{
			agreements:  s.agreements,
			customerID:  &customerID,
			period:      req.Period,
			legalEntity: &req.LegalEntity,
			agreement:   &agreement,
		},
		&reserveStockStep{store: s.orders, productID: product.ID, quantity: billed},
		&createOrderStep{
			store:      s.orders,
			productID:  product.ID,
			customerID: &customerID,
			agreementID: func() string {
				if agreement == nil {
					return ""
				}
				return agreement.ID
			},
			quantity:    billed,
			price:       total,
			deliveryWay: req.DeliveryWay,
			orderID:     &orderID,
		},
	}

	flowID := uuid.NewString()
	if err := s.run(ctx, flowID, steps, req); err != nil {
		s.refreshProduct(ctx, product.ID)
		return nil, err
	}

	return s.finishPlacement(ctx, flowID, product.ID, orderID, agreement.ClientToken)
}

// PlaceLegacy creates a bare order for an existing customer with no
// agreement attached. Kept for callers predating client tokens.
func (s *Service) PlaceLegacy(ctx context.Context, customerID, productID string, quantity int, way domain.DeliveryWay) (*PlacementResult, error) {
	if !way.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery way %q", domain.ErrValidation, way)
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	total, billed, err := Quote(product, quantity, way)
	if err != nil {
		return nil, err
	}

	var orderID string
	steps := []Step{
		&reserveStockStep{store: s.orders, productID: product.ID, quantity: billed},
		&createOrderStep{
			store:       s.orders,
			productID:   product.ID,
			customerID:  &customerID,
			agreementID: func() string { return "" },
			quantity:    billed,
			price:       total,
			deliveryWay: way,
			orderID:     &orderID,
		},
	}

	flowID := uuid.NewString()
	if err := s.run(ctx, flowID, steps, map[string]any{
		"customerId":  customerID,
		"productId":   productID,
		"quantity":    quantity,
		"deliveryWay": way,
	}); err != nil {
		s.refreshProduct(ctx, product.ID)
		return nil, err
	}

	return s.finishPlacement(ctx, flowID, product.ID, orderID, "")
}

// ConfirmPayment charges the card for a placed order. Declines surface as
// domain.ErrPaymentDeclined for the caller to present locally.
func (s *Service) ConfirmPayment(ctx context.Context, orderID string, card domain.CardDetails) (*payments.PayOrderResult, error) {
	if err := card.Validate(); err != nil {
		return nil, err
	}
	result, err := s.payments.PayOrder(ctx, orderID, card)
	if err != nil {
		return nil, err
	}
	if err := s.refresher.Refresh(ctx); err != nil {
		s.log.WarnContext(ctx, "order listing refresh after payment failed", "error", err)
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, flowID string, steps []Step, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte("{}")
	}
	return NewOrchestrator(flowID, steps, s.flows, s.log).Start(ctx, string(b))
}

func (s *Service) finishPlacement(ctx context.Context, flowID, productID, orderID, clientToken string) (*PlacementResult, error) {
	if err := s.refresher.Refresh(ctx); err != nil {
		s.log.WarnContext(ctx, "order listing refresh after placement failed", "error", err)
	}
	s.refreshProduct(ctx, productID)

	s.audit.Publish(ctx, audit.Event{
		Type:    audit.EventOrderPlaced,
		OrderID: orderID,
	})

	order, err := s.orderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &PlacementResult{
		FlowID:      flowID,
		Order:       order,
		ClientToken: clientToken,
	}, nil
}

// refreshProduct drops the cached product snapshots after stock moved.
// Compensation restores the count but may race a concurrent read, so the
// failure path refreshes too.
func (s *Service) refreshProduct(ctx context.Context, productID string) {
	if err := s.products.Refresh(ctx, productID); err != nil {
		s.log.WarnContext(ctx, "product cache refresh after placement failed",
			"product_id", productID, "error", err)
	}
}

// orderByID reads back the placed order through the store when it also
// serves reads; otherwise a minimal order is synthesised.
func (s *Service) orderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if getter, ok := s.orders.(interface {
		GetOrder(ctx context.Context, id string) (*domain.Order, error)
	}); ok {
		return getter.GetOrder(ctx, orderID)
	}
	return &domain.Order{ID: orderID}, nil
}
