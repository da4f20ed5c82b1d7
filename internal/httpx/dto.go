package httpx

import (
	"github.com/NickolasKemp/ordify/internal/checkout"
	"github.com/NickolasKemp/ordify/internal/domain"
)

type PlaceOrderRequest struct {
	Quantity    int                `json:"quantity"`
	DeliveryWay domain.DeliveryWay `json:"deliveryWay"`
}

type UpdateOrderRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type CreateAgreementRequest struct {
	CustomerID  string                 `json:"customerId"`
	Period      domain.AgreementPeriod `json:"period"`
	LegalEntity *domain.LegalEntity    `json:"legalEntity,omitempty"`
}

type RenewAgreementRequest struct {
	Period domain.AgreementPeriod `json:"period"`
}

type CreateIntentRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	domain.CardDetails
}

type PayOrderRequest struct {
	OrderID string `json:"orderId"`
	domain.CardDetails
}

type StartCheckoutRequest struct {
	ProductID string `json:"productId"`
}

type CheckoutSelectionRequest struct {
	Quantity    int                `json:"quantity"`
	DeliveryWay domain.DeliveryWay `json:"deliveryWay"`
}

type CheckoutCustomerRequest struct {
	Customer    domain.Customer        `json:"customer"`
	LegalEntity domain.LegalEntity     `json:"legalEntity"`
	Period      domain.AgreementPeriod `json:"period"`
}

type CheckoutTokenRequest struct {
	ClientToken string `json:"clientToken"`
}

// CheckoutSessionResponse is the state the storefront renders between
// checkout calls.
type CheckoutSessionResponse struct {
	ID             string           `json:"id"`
	Stage          checkout.Stage   `json:"stage"`
	Mode           checkout.Mode    `json:"mode"`
	Total          float64          `json:"total"`
	Customer       *domain.Customer `json:"customer,omitempty"`
	CustomerLocked bool             `json:"customerLocked"`
	OrderID        string           `json:"orderId,omitempty"`
	ClientToken    string           `json:"clientToken,omitempty"`
	PaymentError   string           `json:"paymentError,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User   *domain.User   `json:"user"`
	Tokens *domain.Tokens `json:"tokens"`
}
