package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NickolasKemp/ordify/internal/domain"
)

// Stage of a checkout flow. Linear: review → payment → success. The only
// backward move is BackToReview, which clears payment error state but
// keeps the placed order.
type Stage string

const (
	StageReview  Stage = "review"
	StagePayment Stage = "payment"
	StageSuccess Stage = "success"
)

// Mode of customer acquisition within a flow.
type Mode string

const (
	ModeNew       Mode = "new"
	ModeReturning Mode = "returning"
)

// Flow is a single checkout session: one product, one customer, one
// order. It tracks selection state on the review stage, recomputes the
// quote on every quantity or delivery change, and drives placement and
// payment through the checkout service.
//
// A Flow is safe for concurrent use; handlers for the same session may
// race on it.
type Flow struct {
	service *Service

	mu sync.Mutex

	stage Stage
	mode  Mode

	product     *domain.Product
	quantity    int
	deliveryWay domain.DeliveryWay
	total       float64

	customer    domain.Customer
	legalEntity domain.LegalEntity
	period      domain.AgreementPeriod

	// Set in returning mode after a successful token validation; the
	// customer fields above are then locked to the agreement's customer.
	agreement   *domain.Agreement
	clientToken string

	orderID    string
	paymentErr string
}

// NewFlow starts a checkout session for a product. The initial quote uses
// quantity 1 and the product's cheapest available delivery way left unset.
func NewFlow(ctx context.Context, service *Service, productID string) (*Flow, error) {
	product, err := service.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	f := &Flow{
		service:  service,
		stage:    StageReview,
		mode:     ModeNew,
		product:  product,
		quantity: 1,
	}
	f.total, _, err = Quote(product, 1, f.deliveryWay)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Flow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

func (f *Flow) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *Flow) Total() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *Flow) OrderID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderID
}

// ClientToken returns the token issued with the placement, if any.
func (f *Flow) ClientToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clientToken
}

// PaymentError returns the last decline message, empty when none.
func (f *Flow) PaymentError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paymentErr
}

// Customer returns the current customer fields and whether they are
// locked (returning mode pre-fills them from the agreement).
func (f *Flow) Customer() (domain.Customer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customer, f.mode == ModeReturning
}

// SetQuantity updates the requested quantity and recomputes the quote.
// Quantities below one leave the flow untouched.
func (f *Flow) SetQuantity(quantity int) {
	if quantity < 1 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage != StageReview {
		return
	}
	f.quantity = quantity
	f.requote()
}

// SetDeliveryWay updates the delivery selection and recomputes the quote.
func (f *Flow) SetDeliveryWay(way domain.DeliveryWay) error {
	if !way.Valid() {
		return fmt.Errorf("%w: unknown delivery way %q", domain.ErrValidation, way)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage != StageReview {
		return fmt.Errorf("%w: delivery can only change on review", domain.ErrValidation)
	}
	f.deliveryWay = way
	f.requote()
	return nil
}

// SetCustomer records the customer, legal entity and agreement period for
// the new-customer path. Rejected in returning mode, where the customer
// is locked to the validated agreement.
func (f *Flow) SetCustomer(c domain.Customer, le domain.LegalEntity, period domain.AgreementPeriod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode == ModeReturning {
		return fmt.Errorf("%w: customer is fixed by the client token", domain.ErrValidation)
	}
	f.customer = c
	f.legalEntity = le
	f.period = period
	return nil
}

// UseToken validates a client token and, on success, switches the flow to
// returning mode with the agreement's customer pre-filled. An invalid
// token leaves the flow in new mode.
func (f *Flow) UseToken(ctx context.Context, token string) error {
	agreement, err := f.service.agreements.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = ModeReturning
	f.agreement = agreement
	f.clientToken = token
	if agreement.Customer != nil {
		f.customer = *agreement.Customer
	}
	return nil
}

// PlaceOrder places the order for the current selection and advances the
// flow to the payment stage.
func (f *Flow) PlaceOrder(ctx context.Context) (*PlacementResult, error) {
	f.mu.Lock()
	if f.stage != StageReview {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: order already placed", domain.ErrConflict)
	}
	mode := f.mode
	token := f.clientToken
	req := PlacementRequest{
		ProductID:   f.product.ID,
		Quantity:    f.quantity,
		DeliveryWay: f.deliveryWay,
		Customer:    f.customer,
		LegalEntity: f.legalEntity,
		Period:      f.period,
	}
	f.mu.Unlock()

	var (
		result *PlacementResult
		err    error
	)
	if mode == ModeReturning {
		result, err = f.service.PlaceWithToken(ctx, token, TokenPlacementRequest{
			ProductID:   req.ProductID,
			Quantity:    req.Quantity,
			DeliveryWay: req.DeliveryWay,
		})
	} else {
		result, err = f.service.PlaceWithAgreement(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.stage = StagePayment
	f.orderID = result.Order.ID
	if result.ClientToken != "" {
		f.clientToken = result.ClientToken
	}
	f.mu.Unlock()
	return result, nil
}

// ConfirmPayment charges the card for the placed order. A decline records
// the message on the flow and keeps the payment stage; any other error
// propagates untouched. Success moves the flow to its terminal stage.
func (f *Flow) ConfirmPayment(ctx context.Context, card domain.CardDetails) error {
	f.mu.Lock()
	if f.stage != StagePayment {
		f.mu.Unlock()
		return fmt.Errorf("%w: no order awaiting payment", domain.ErrConflict)
	}
	orderID := f.orderID
	f.mu.Unlock()

	_, err := f.service.ConfirmPayment(ctx, orderID, card)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentDeclined) {
			f.mu.Lock()
			f.paymentErr = err.Error()
			f.mu.Unlock()
		}
		return err
	}

	f.mu.Lock()
	f.stage = StageSuccess
	f.paymentErr = ""
	f.mu.Unlock()
	return nil
}

// BackToReview returns from the payment stage, clearing only the payment
// error. The placed order is kept.
func (f *Flow) BackToReview() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage != StagePayment {
		return
	}
	f.stage = StageReview
	f.paymentErr = ""
}

// requote recomputes the total; callers hold the lock. Quote failures
// keep the previous total, matching the skip-on-invalid rule.
func (f *Flow) requote() {
	total, _, err := Quote(f.product, f.quantity, f.deliveryWay)
	if err != nil {
		return
	}
	f.total = total
}
