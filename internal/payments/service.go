// Package payments simulates a card processor: payment intents, card
// confirmation, and the one-shot pay-order path used by checkout.
//
// Intents are ephemeral. They live in the cache with a short TTL and are
// never persisted as first-class entities; only the resulting payment
// state on the order survives.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NickolasKemp/ordify/internal/audit"
	"github.com/NickolasKemp/ordify/internal/cache"
	"github.com/NickolasKemp/ordify/internal/domain"
)

const intentTTL = time.Hour

// Test card numbers that simulate processor declines.
const (
	cardDeclined          = "4000000000000002"
	cardInsufficientFunds = "4000000000009995"
)

// OrderStore is the slice of order persistence the payment flow needs.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	MarkOrderPaid(ctx context.Context, id, intentID string, o *domain.Order) error
	MarkOrderPaymentFailed(ctx context.Context, id string) error
}

type Service struct {
	orders OrderStore
	cache  cache.Cache
	audit  audit.Publisher
	log    *slog.Logger

	now func() time.Time
}

func NewService(orders OrderStore, c cache.Cache, publisher audit.Publisher, log *slog.Logger) *Service {
	return &Service{
		orders: orders,
		cache:  c,
		audit:  publisher,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateIntent registers a pending payment for the given amount.
func (s *Service) CreateIntent(ctx context.Context, amount float64, currency string) (*domain.PaymentIntent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", domain.ErrValidation)
	}
	if currency == "" {
		currency = "usd"
	}

	intent := &domain.PaymentIntent{
		ID:       "pi_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Amount:   amount,
		Currency: strings.ToLower(currency),
		Status:   "requires_confirmation",
	}
	intent.ClientSecret = intent.ID + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	if err := s.storeIntent(ctx, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// Confirm charges the card against a previously created intent.
// A decline surfaces as ErrPaymentDeclined; the caller decides how to
// present it, the global error channel never sees it.
func (s *Service) Confirm(ctx context.Context, intentID string, card domain.CardDetails) (*domain.PaymentResult, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}
	if err := s.charge(card); err != nil {
		intent.Status = "failed"
		_ = s.storeIntent(ctx, intent)
		return &domain.PaymentResult{
			Success:         false,
			PaymentIntentID: intent.ID,
			Status:          intent.Status,
			Error:           err.Error(),
		}, err
	}

	paidAt := s.now()
	intent.Status = "succeeded"
	_ = s.storeIntent(ctx, intent)

	return &domain.PaymentResult{
		Success:         true,
		PaymentIntentID: intent.ID,
		Status:          intent.Status,
		PaidAt:          &paidAt,
	}, nil
}

// PayOrderResult bundles the updated order with its payment outcome.
type PayOrderResult struct {
	Success bool          `json:"success"`
	Order   *domain.Order `json:"order"`
	Payment struct {
		PaymentIntentID string `json:"paymentIntentId"`
		Status          string `json:"status"`
	} `json:"payment"`
}

// PayOrder creates and confirms a payment for the order in one call.
// On success the order is marked paid and, when still pending, advanced
// to processing: a paid order is considered in fulfilment.
func (s *Service) PayOrder(ctx context.Context, orderID string, card domain.CardDetails) (*PayOrderResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == domain.PaymentPaid {
		return nil, fmt.Errorf("%w: order %s is already paid", domain.ErrConflict, orderID)
	}

	intent, err := s.CreateIntent(ctx, order.Price, "usd")
	if err != nil {
		return nil, err
	}

	result, err := s.Confirm(ctx, intent.ID, card)
	if err != nil {
		if markErr := s.orders.MarkOrderPaymentFailed(ctx, orderID); markErr != nil {
			s.log.ErrorContext(ctx, "failed to record declined payment",
				"order_id", orderID, "error", markErr)
		}
		return nil, err
	}

	order.PaymentStatus = domain.PaymentPaid
	order.PaidAt = result.PaidAt
	if order.Status == domain.OrderPending {
		order.Status = domain.OrderProcessing
	}
	if err := s.orders.MarkOrderPaid(ctx, orderID, intent.ID, order); err != nil {
		return nil, err
	}

	s.audit.Publish(ctx, audit.Event{
		Type:    audit.EventOrderPaid,
		OrderID: orderID,
		Amount:  order.Price,
	})

	payResult := &PayOrderResult{Success: true, Order: order}
	payResult.Payment.PaymentIntentID = intent.ID
	payResult.Payment.Status = result.Status
	return payResult, nil
}

// OrderPaymentStatus is the response of the payment status lookup.
type OrderPaymentStatus struct {
	OrderID       string     `json:"orderId"`
	PaymentStatus string     `json:"paymentStatus"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

func (s *Service) Status(ctx context.Context, orderID string) (*OrderPaymentStatus, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderPaymentStatus{
		OrderID:       order.ID,
		PaymentStatus: string(order.PaymentStatus),
		PaidAt:        order.PaidAt,
	}, nil
}

// charge is the simulated processor decision.
func (s *Service) charge(card domain.CardDetails) error {
	switch card.Normalized() {
	case cardDeclined:
		return fmt.Errorf("%w: card was declined", domain.ErrPaymentDeclined)
	case cardInsufficientFunds:
		return fmt.Errorf("%w: insufficient funds", domain.ErrPaymentDeclined)
	}
	return nil
}

func (s *Service) storeIntent(ctx context.Context, intent *domain.PaymentIntent) error {
	b, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("payments: marshal intent: %w", err)
	}
	return s.cache.Set(ctx, s.cache.Key("payments", "intent", intent.ID), string(b), intentTTL)
}

func (s *Service) loadIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	value, ok, err := s.cache.Get(ctx, s.cache.Key("payments", "intent", intentID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment intent %q", domain.ErrNotFound, intentID)
	}
	var intent domain.PaymentIntent
	if err := json.Unmarshal([]byte(value), &intent); err != nil {
		return nil, fmt.Errorf("payments: unmarshal intent: %w", err)
	}
	return &intent, nil
}
