package payments_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NickolasKemp/ordify/internal/audit"
	"github.com/NickolasKemp/ordify/internal/cache"
	"github.com/NickolasKemp/ordify/internal/domain"
	"github.com/NickolasKemp/ordify/internal/payments"
)

type stubOrders struct {
	orders map[string]*domain.Order
}

func newStubOrders(orders ...*domain.Order) *stubOrders {
	s := &stubOrders{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *stubOrders) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (s *stubOrders) MarkOrderPaid(_ context.Context, id, _ string, o *domain.Order) error {
	if _, ok := s.orders[id]; !ok {
		return domain.ErrNotFound
	}
	copied := *o
	s.orders[id] = &copied
	return nil
}

func (s *stubOrders) MarkOrderPaymentFailed(_ context.Context, id string) error {
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.PaymentStatus = domain.PaymentFailed
	return nil
}

func pendingOrder(id string) *domain.Order {
	return &domain.Order{
		ID:            id,
		CreatedAt:     time.Now().UTC(),
		Quantity:      2,
		Price:         210,
		Status:        domain.OrderPending,
		PaymentStatus: domain.PaymentPending,
	}
}

func goodCard() domain.CardDetails {
	return domain.CardDetails{CardNumber: "4242424242424242", ExpMonth: "09", ExpYear: "28", CVC: "123"}
}

func newService(orders payments.OrderStore) *payments.Service {
	return payments.NewService(orders, cache.NewMemory("test"), audit.Nop{}, slog.Default())
}

func TestCreateAndConfirmIntent(t *testing.T) {
	s := newService(newStubOrders())

	intent, err := s.CreateIntent(context.Background(), 99.50, "USD")
	require.NoError(t, err)
	assert.Equal(t, "requires_confirmation", intent.Status)
	assert.Equal(t, "usd", intent.Currency)
	assert.NotEmpty(t, intent.ClientSecret)

	result, err := s.Confirm(context.Background(), intent.ID, goodCard())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "succeeded", result.Status)
	assert.NotNil(t, result.PaidAt)
}

func TestConfirmUnknownIntent(t *testing.T) {
	s := newService(newStubOrders())
	_, err := s.Confirm(context.Background(), "pi_missing", goodCard())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	s := newService(newStubOrders())
	_, err := s.CreateIntent(context.Background(), 0, "usd")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPayOrderSuccessAdvancesStatus(t *testing.T) {
	orders := newStubOrders(pendingOrder("o1"))
	s := newService(orders)

	result, err := s.PayOrder(context.Background(), "o1", goodCard())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.PaymentPaid, result.Order.PaymentStatus)
	assert.Equal(t, domain.OrderProcessing, result.Order.Status)
	assert.NotNil(t, result.Order.PaidAt)

	stored, err := orders.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
}

func TestPayOrderDeclinedCards(t *testing.T) {
	for _, number := range []string{"4000000000000002", "4000000000009995"} {
		orders := newStubOrders(pendingOrder("o1"))
		s := newService(orders)

		card := goodCard()
		card.CardNumber = number
		_, err := s.PayOrder(context.Background(), "o1", card)
		assert.ErrorIs(t, err, domain.ErrPaymentDeclined, "card %s", number)

		stored, getErr := orders.GetOrder(context.Background(), "o1")
		require.NoError(t, getErr)
		assert.Equal(t, domain.PaymentFailed, stored.PaymentStatus)
		assert.Equal(t, domain.OrderPending, stored.Status, "decline must not advance the order")
	}
}

func TestPayOrderDeclinedWithSpacedNumber(t *testing.T) {
	s := newService(newStubOrders(pendingOrder("o1")))
	card := goodCard()
	card.CardNumber = "4000 0000 0000 0002"
	_, err := s.PayOrder(context.Background(), "o1", card)
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)
}

func TestPayOrderAlreadyPaid(t *testing.T) {
	o := pendingOrder("o1")
	o.PaymentStatus = domain.PaymentPaid
	s := newService(newStubOrders(o))

	_, err := s.PayOrder(context.Background(), "o1", goodCard())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPayOrderKeepsNonPendingStatus(t *testing.T) {
	o := pendingOrder("o1")
	o.Status = domain.OrderCompleted
	orders := newStubOrders(o)
	s := newService(orders)

	result, err := s.PayOrder(context.Background(), "o1", goodCard())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, result.Order.Status)
}

func TestStatus(t *testing.T) {
	orders := newStubOrders(pendingOrder("o1"))
	s := newService(orders)

	status, err := s.Status(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", status.OrderID)
	assert.Equal(t, string(domain.PaymentPending), status.PaymentStatus)

	_, err = s.PayOrder(context.Background(), "o1", goodCard())
	require.NoError(t, err)

	status, err = s.Status(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, string(domain.PaymentPaid), status.PaymentStatus)
	assert.NotNil(t, status.PaidAt)
}
