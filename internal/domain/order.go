package domain

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Label() string {
	switch s {
	case OrderPending:
		return "Pending"
	case OrderProcessing:
		return "Processing"
	case OrderCompleted:
		return "Completed"
	case OrderCancelled:
		return "Cancelled"
	}
	return string(s)
}

// CanTransitionTo reports whether an admin may move an order from s to next.
// Cancellation is terminal; every other pair of distinct statuses is
// allowed, including reopening a completed order.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() || s == next {
		return false
	}
	return s != OrderCancelled
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

func (s PaymentStatus) Label() string {
	switch s {
	case PaymentPending:
		return "Pending"
	case PaymentPaid:
		return "Paid"
	case PaymentFailed:
		return "Failed"
	}
	return string(s)
}

type Order struct {
	ID            string        `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	Quantity      int           `json:"quantity"`
	Price         float64       `json:"price"`
	DeliveryWay   DeliveryWay   `json:"deliveryWay"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`

	ProductID   string `json:"-"`
	CustomerID  string `json:"-"`
	AgreementID string `json:"-"`

	// Server-owned snapshots joined in on read.
	Product  *Product  `json:"product,omitempty"`
	Customer *Customer `json:"customer,omitempty"`
}
