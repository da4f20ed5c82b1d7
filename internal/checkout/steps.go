package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NickolasKemp/ordify/internal/domain"
)

// --- createCustomerStep ---

type createCustomerStep struct {
	customers  CustomerService
	input      domain.Customer
	customerID *string
}

func (s *createCustomerStep) Name() string { return "Create_Customer_Step" }

func (s *createCustomerStep) Execute(ctx context.Context) error {
	c := s.input
	created, err := s.customers.Create(ctx, &c)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	*s.customerID = created.ID
	return nil
}

func (s *createCustomerStep) Compensate(ctx context.Context) error {
	if *s.customerID == "" {
		return nil
	}
	_, err := s.customers.Delete(ctx, *s.customerID)
	return err
}

// --- createAgreementStep ---

type createAgreementStep struct {
	agreements  AgreementService
	customerID  *string
	period      domain.AgreementPeriod
	legalEntity *domain.LegalEntity
	agreement   **domain.Agreement
}

func (s *createAgreementStep) Name() string { return "Create_Agreement_Step" }

func (s *createAgreementStep) Execute(ctx context.Context) error {
	a, err := s.agreements.Create(ctx, *s.customerID, s.period, s.legalEntity)
	if err != nil {
		return fmt.Errorf("failed to create agreement: %w", err)
	}
	*s.agreement = a
	return nil
}

func (s *createAgreementStep) Compensate(ctx context.Context) error {
	if *s.agreement == nil {
		return nil
	}
	_, err := s.agreements.Deactivate(ctx, (*s.agreement).ID)
	return err
}

// --- reserveStockStep ---

type reserveStockStep struct {
	store     OrderStore
	productID string
	quantity  int
}

func (s *reserveStockStep) Name() string { return "Reserve_Stock_Step" }

func (s *reserveStockStep) Execute(ctx context.Context) error {
	if err := s.store.DecrementProductStock(ctx, s.productID, s.quantity); err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	return nil
}

func (s *reserveStockStep) Compensate(ctx context.Context) error {
	return s.store.IncrementProductStock(ctx, s.productID, s.quantity)
}

// --- createOrderStep ---

type createOrderStep struct {
	store       OrderStore
	productID   string
	customerID  *string
	agreementID func() string
	quantity    int
	price       float64
	deliveryWay domain.DeliveryWay
	orderID     *string
}

func (s *createOrderStep) Name() string { return "Create_Order_Step" }

func (s *createOrderStep) Execute(ctx context.Context) error {
	order := &domain.Order{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Quantity:      s.quantity,
		Price:         s.price,
		DeliveryWay:   s.deliveryWay,
		Status:        domain.OrderPending,
		PaymentStatus: domain.PaymentPending,
		ProductID:     s.productID,
		CustomerID:    *s.customerID,
		AgreementID:   s.agreementID(),
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	*s.orderID = order.ID
	return nil
}

func (s *createOrderStep) Compensate(ctx context.Context) error {
	if *s.orderID == "" {
		return nil
	}
	return s.store.DeleteOrder(ctx, *s.orderID)
}
