package checkout_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NickolasKemp/ordify/internal/audit"
	"github.com/NickolasKemp/ordify/internal/checkout"
	"github.com/NickolasKemp/ordify/internal/domain"
	"github.com/NickolasKemp/ordify/internal/payments"
)

type fakeProducts struct {
	product   *domain.Product
	refreshed []string
}

func (f *fakeProducts) Get(_ context.Context, id string) (*domain.Product, error) {
	if f.product == nil || f.product.ID != id {
		return nil, domain.ErrNotFound
	}
	copied := *f.product
	return &copied, nil
}

func (f *fakeProducts) Refresh(_ context.Context, id string) error {
	f.refreshed = append(f.refreshed, id)
	return nil
}

type fakeCustomers struct {
	created []string
	deleted []string
}

func (f *fakeCustomers) Create(_ context.Context, c *domain.Customer) (*domain.Customer, error) {
	copied := *c
	copied.ID = uuid.NewString()
	f.created = append(f.created, copied.ID)
	return &copied, nil
}

func (f *fakeCustomers) Delete(_ context.Context, id string) (*domain.Customer, error) {
	f.deleted = append(f.deleted, id)
	return &domain.Customer{ID: id}, nil
}

type fakeAgreements struct {
	byToken     map[string]*domain.Agreement
	deactivated []string
}

func (f *fakeAgreements) Create(_ context.Context, customerID string, period domain.AgreementPeriod, le *domain.LegalEntity) (*domain.Agreement, error) {
	a := &domain.Agreement{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		EndsAt:      time.Now().UTC().AddDate(0, period.Months(), 0),
		CustomerID:  customerID,
		LegalEntity: le,
		ClientToken: uuid.NewString(),
		IsActive:    true,
	}
	if f.byToken == nil {
		f.byToken = make(map[string]*domain.Agreement)
	}
	f.byToken[a.ClientToken] = a
	return a, nil
}

func (f *fakeAgreements) Deactivate(_ context.Context, id string) (*domain.Agreement, error) {
	f.deactivated = append(f.deactivated, id)
	return &domain.Agreement{ID: id}, nil
}

func (f *fakeAgreements) ValidateToken(_ context.Context, token string) (*domain.Agreement, error) {
	a, ok := f.byToken[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	return a, nil
}

type fakeOrderStore struct {
	stock      map[string]int
	orders     map[string]*domain.Order
	failCreate bool
}

func newFakeOrderStore(productID string, stock int) *fakeOrderStore {
	return &fakeOrderStore{
		stock:  map[string]int{productID: stock},
		orders: make(map[string]*domain.Order),
	}
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, o *domain.Order) error {
	if f.failCreate {
		return errors.New("create order unavailable")
	}
	copied := *o
	f.orders[o.ID] = &copied
	return nil
}

func (f *fakeOrderStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderStore) DeleteOrder(_ context.Context, id string) error {
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderStore) DecrementProductStock(_ context.Context, id string, by int) error {
	if f.stock[id] < by {
		return fmt.Errorf("%w: insufficient stock", domain.ErrConflict)
	}
	f.stock[id] -= by
	return nil
}

func (f *fakeOrderStore) IncrementProductStock(_ context.Context, id string, by int) error {
	f.stock[id] += by
	return nil
}

type fakePayments struct {
	declined bool
	paid     []string
}

func (f *fakePayments) PayOrder(_ context.Context, orderID string, card domain.CardDetails) (*payments.PayOrderResult, error) {
	if f.declined {
		return nil, fmt.Errorf("%w: card was declined", domain.ErrPaymentDeclined)
	}
	f.paid = append(f.paid, orderID)
	result := &payments.PayOrderResult{Success: true, Order: &domain.Order{
		ID:            orderID,
		Status:        domain.OrderProcessing,
		PaymentStatus: domain.PaymentPaid,
	}}
	return result, nil
}

type fakeRefresher struct {
	calls int
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls++
	return nil
}

type fixture struct {
	products   *fakeProducts
	customers  *fakeCustomers
	agreements *fakeAgreements
	store      *fakeOrderStore
	payments   *fakePayments
	refresher  *fakeRefresher
	service    *checkout.Service
}

func newFixture(stock int) *fixture {
	f := &fixture{
		products: &fakeProducts{product: &domain.Product{
			ID:       "p1",
			Name:     "Widget",
			Price:    100,
			Quantity: stock,
			DeliveryOptions: []domain.DeliveryOption{
				{ID: "d1", Type: domain.DeliveryPickup},
				{ID: "d2", Type: domain.DeliveryCourier, Price: 10},
			},
		}},
		customers:  &fakeCustomers{},
		agreements: &fakeAgreements{},
		payments:   &fakePayments{},
		refresher:  &fakeRefresher{},
	}
	f.store = newFakeOrderStore("p1", stock)
	f.service = checkout.NewService(
		f.products, f.customers, f.agreements, f.store,
		f.payments, f.refresher, nil, audit.Nop{}, slog.Default(),
	)
	return f
}

func validCustomer() domain.Customer {
	return domain.Customer{
		Name:   "Acme Inc",
		Street: "1 Main St",
		City:   "Springfield",
		State:  "IL",
		Zip:    "62704",
		Phone:  "5551234567",
	}
}

func validLegalEntity() domain.LegalEntity {
	return domain.LegalEntity{Name: "Acme Inc", RegistrationNumber: "REG-1"}
}

func TestPlaceWithAgreement(t *testing.T) {
	f := newFixture(50)

	result, err := f.service.PlaceWithAgreement(context.Background(), checkout.PlacementRequest{
		ProductID:   "p1",
		Quantity:    3,
		DeliveryWay: domain.DeliveryCourier,
		Customer:    validCustomer(),
		LegalEntity: validLegalEntity(),
		Period:      domain.PeriodSixMonths,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.FlowID)
	assert.NotEmpty(t, result.ClientToken)
	require.NotNil(t, result.Order)
	assert.Equal(t, 3, result.Order.Quantity)
	assert.InDelta(t, 310, result.Order.Price, 1e-9)
	assert.Equal(t, domain.OrderPending, result.Order.Status)
	assert.Equal(t, domain.PaymentPending, result.Order.PaymentStatus)

	assert.Equal(t, 47, f.store.stock["p1"])
	assert.Len(t, f.customers.created, 1)
	assert.Empty(t, f.customers.deleted)
	assert.Equal(t, 1, f.refresher.calls)
	assert.Equal(t, []string{"p1"}, f.products.refreshed,
		"placement must drop the cached product stock")
}

func TestPlaceWithAgreementRollsBackOnFailure(t *testing.T) {
	f := newFixture(50)
	f.store.failCreate = true

	_, err := f.service.PlaceWithAgreement(context.Background(), checkout.PlacementRequest{
		ProductID:   "p1",
		Quantity:    3,
		DeliveryWay: domain.DeliveryCourier,
		Customer:    validCustomer(),
		LegalEntity: validLegalEntity(),
		Period:      domain.PeriodSixMonths,
	})
	require.Error(t, err)

	assert.Equal(t, 50, f.store.stock["p1"], "reserved stock must be restored")
	assert.Len(t, f.agreements.deactivated, 1, "issued agreement must be deactivated")
	require.Len(t, f.customers.created, 1)
	assert.Equal(t, f.customers.created, f.customers.deleted, "created customer must be deleted")
	assert.Empty(t, f.store.orders)
	assert.Equal(t, []string{"p1"}, f.products.refreshed,
		"compensation must drop the cached product stock too")
}

func TestPlaceWithAgreementValidation(t *testing.T) {
	f := newFixture(50)

	req := checkout.PlacementRequest{
		ProductID:   "p1",
		Quantity:    1,
		DeliveryWay: domain.DeliveryPickup,
		Customer:    validCustomer(),
		LegalEntity: validLegalEntity(),
		Period:      domain.PeriodThreeMonths,
	}

	bad := req
	bad.Customer.Phone = "123"
	_, err := f.service.PlaceWithAgreement(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad = req
	bad.Period = "7_months"
	_, err = f.service.PlaceWithAgreement(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad = req
	bad.DeliveryWay = "DRONE"
	_, err = f.service.PlaceWithAgreement(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, f.customers.created, "validation failures must not reach the steps")
}

func TestPlaceWithTokenUsesAgreementCustomer(t *testing.T) {
	f := newFixture(50)

	agreement, err := f.agreements.Create(context.Background(), "c-77", domain.PeriodOneYear, nil)
	require.NoError(t, err)

	result, err := f.service.PlaceWithToken(context.Background(), agreement.ClientToken, checkout.TokenPlacementRequest{
		ProductID:   "p1",
		Quantity:    2,
		DeliveryWay: domain.DeliveryPickup,
	})
	require.NoError(t, err)

	assert.Empty(t, result.ClientToken, "no new token on the returning path")
	assert.Empty(t, f.customers.created, "no customer is created on the returning path")

	stored := f.store.orders[result.Order.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "c-77", stored.CustomerID)
	assert.Equal(t, agreement.ID, stored.AgreementID)
}

func TestPlaceWithTokenInvalid(t *testing.T) {
	f := newFixture(50)

	_, err := f.service.PlaceWithToken(context.Background(), "bogus", checkout.TokenPlacementRequest{
		ProductID:   "p1",
		Quantity:    1,
		DeliveryWay: domain.DeliveryPickup,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.Equal(t, 50, f.store.stock["p1"])
}

func TestPlacementClampsQuantityToStock(t *testing.T) {
	f := newFixture(5)

	agreement, err := f.agreements.Create(context.Background(), "c-77", domain.PeriodOneYear, nil)
	require.NoError(t, err)

	result, err := f.service.PlaceWithToken(context.Background(), agreement.ClientToken, checkout.TokenPlacementRequest{
		ProductID:   "p1",
		Quantity:    12,
		DeliveryWay: domain.DeliveryCourier,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Order.Quantity)
	assert.InDelta(t, 510, result.Order.Price, 1e-9)
	assert.Equal(t, 0, f.store.stock["p1"])
}

func TestPlaceLegacy(t *testing.T) {
	f := newFixture(50)

	result, err := f.service.PlaceLegacy(context.Background(), "c-legacy", "p1", 1, domain.DeliveryPickup)
	require.NoError(t, err)

	stored := f.store.orders[result.Order.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "c-legacy", stored.CustomerID)
	assert.Empty(t, stored.AgreementID)
}
