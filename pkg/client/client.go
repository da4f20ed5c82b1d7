// Package client is a thin typed client for the ordify HTTP API. It
// attaches the bearer and client tokens from a TokenStore and transparently
// retries a request once after refreshing an expired session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The auth transport
// is layered on top of its existing transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenStore replaces the default in-memory token store.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.store = store }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   &MemoryTokenStore{},
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	// Copy so the caller's client is not mutated.
	hc := *c.http
	hc.Transport = &authTransport{base: base, store: c.store, baseURL: c.baseURL}
	c.http = &hc
	return c
}

// TokenStore exposes the store so callers can persist tokens across runs.
func (c *Client) TokenStore() TokenStore { return c.store }

// APIError is any non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// --- wire types ---

type DeliveryOption struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Price  float64 `json:"price"`
	Period string  `json:"period"`
}

type Product struct {
	ID              string           `json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	Price           float64          `json:"price"`
	Image           string           `json:"image,omitempty"`
	DeliveryOptions []DeliveryOption `json:"deliveryOptions"`
	Quantity        int              `json:"quantity"`
}

type ProductPage struct {
	Products      []Product `json:"products"`
	TotalPages    int       `json:"totalPages"`
	TotalProducts int       `json:"totalProducts"`
}

type ProductFilter struct {
	Search   string
	Page     int
	PageSize int
	MinPrice float64
	MaxPrice float64
}

type Customer struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	Street        string    `json:"street"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Zip           string    `json:"zip"`
	Phone         string    `json:"phone"`
}

type LegalEntity struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	DirectorName       string `json:"directorName,omitempty"`
}

type Agreement struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	EndsAt      time.Time    `json:"ends_at"`
	Customer    *Customer    `json:"customer,omitempty"`
	LegalEntity *LegalEntity `json:"legalEntity,omitempty"`
	ClientToken string       `json:"clientToken"`
	IsActive    bool         `json:"isActive"`
}

type Order struct {
	ID            string     `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	Quantity      int        `json:"quantity"`
	Price         float64    `json:"price"`
	DeliveryWay   string     `json:"deliveryWay"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"paymentStatus"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	Product       *Product   `json:"product,omitempty"`
	Customer      *Customer  `json:"customer,omitempty"`
}

type PlacementResult struct {
	FlowID      string `json:"flowId"`
	Order       *Order `json:"order"`
	ClientToken string `json:"clientToken,omitempty"`
}

type CardDetails struct {
	CardNumber string `json:"cardNumber"`
	ExpMonth   string `json:"expMonth"`
	ExpYear    string `json:"expYear"`
	CVC        string `json:"cvc"`
}

type PaymentIntent struct {
	ID           string  `json:"paymentIntentId"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
}

type PaymentResult struct {
	Success         bool       `json:"success"`
	PaymentIntentID string     `json:"paymentIntentId"`
	Status          string     `json:"status"`
	Error           string     `json:"error,omitempty"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`
}

type PayOrderResult struct {
	Success bool   `json:"success"`
	Order   *Order `json:"order"`
	Payment struct {
		PaymentIntentID string `json:"paymentIntentId"`
		Status          string `json:"status"`
	} `json:"payment"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	IsActivated bool   `json:"isActivated"`
}

type StatItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// --- products ---

func (c *Client) Products(ctx context.Context, filter ProductFilter) (*ProductPage, error) {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(filter.PageSize))
	}
	if filter.MinPrice > 0 {
		q.Set("minPrice", strconv.FormatFloat(filter.MinPrice, 'f', -1, 64))
	}
	if filter.MaxPrice > 0 {
		q.Set("maxPrice", strconv.FormatFloat(filter.MaxPrice, 'f', -1, 64))
	}

	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page ProductPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	var created Product
	if err := c.do(ctx, http.MethodPost, "/products", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil)
}

// --- customers ---

func (c *Client) Customers(ctx context.Context) ([]Customer, error) {
	var list []Customer
	if err := c.do(ctx, http.MethodGet, "/customers", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateCustomer(ctx context.Context, customer Customer) (*Customer, error) {
	var created Customer
	if err := c.do(ctx, http.MethodPost, "/customers", customer, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// --- orders ---

func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var list []Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) Order(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) (*Order, error) {
	var o Order
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id), body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

type AgreementPlacement struct {
	Quantity    int         `json:"quantity"`
	DeliveryWay string      `json:"deliveryWay"`
	LegalEntity LegalEntity `json:"legalEntity"`
	Period      string      `json:"period"`
}

// PlaceOrderWithAgreement places a first order for an existing customer.
// The returned client token is stored for future token placements.
func (c *Client) PlaceOrderWithAgreement(ctx context.Context, customerID, productID string, req AgreementPlacement) (*PlacementResult, error) {
	path := "/orders/agreement/" + url.PathEscape(customerID) + "/" + url.PathEscape(productID)
	var result PlacementResult
	if err := c.do(ctx, http.MethodPost, path, req, &result); err != nil {
		return nil, err
	}
	if result.ClientToken != "" {
		c.store.SetClientToken(result.ClientToken)
	}
	return &result, nil
}

// PlaceOrderWithToken places a repeat order using the stored client token.
func (c *Client) PlaceOrderWithToken(ctx context.Context, productID string, quantity int, deliveryWay string) (*PlacementResult, error) {
	body := map[string]any{"quantity": quantity, "deliveryWay": deliveryWay}
	var result PlacementResult
	err := c.do(ctx, http.MethodPost, "/orders/token/"+url.PathEscape(productID), body, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// --- agreements ---

func (c *Client) ValidateToken(ctx context.Context, token string) (*Agreement, error) {
	var a Agreement
	if err := c.do(ctx, http.MethodGet, "/agreements/validate/"+url.PathEscape(token), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// --- payments ---

func (c *Client) PayOrder(ctx context.Context, orderID string, card CardDetails) (*PayOrderResult, error) {
	body := struct {
		OrderID string `json:"orderId"`
		CardDetails
	}{OrderID: orderID, CardDetails: card}

	var result PayOrderResult
	if err := c.do(ctx, http.MethodPost, "/payments/pay-order", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, amount float64, currency string) (*PaymentIntent, error) {
	body := map[string]any{"amount": amount, "currency": currency}
	var intent PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/payments/create-intent", body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) ConfirmPayment(ctx context.Context, intentID string, card CardDetails) (*PaymentResult, error) {
	body := struct {
		PaymentIntentID string `json:"paymentIntentId"`
		CardDetails
	}{PaymentIntentID: intentID, CardDetails: card}

	var result PaymentResult
	if err := c.do(ctx, http.MethodPost, "/payments/confirm", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- auth ---

type authResponse struct {
	User   *User   `json:"user"`
	Tokens *Tokens `json:"tokens"`
}

func (c *Client) Register(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &resp); err != nil {
		return nil, err
	}
	c.store.SetTokens(resp.Tokens.AccessToken, resp.Tokens.RefreshToken)
	return resp.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	c.store.SetTokens(resp.Tokens.AccessToken, resp.Tokens.RefreshToken)
	return resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.store.Tokens()
	body := map[string]string{"refreshToken": refresh}
	if err := c.do(ctx, http.MethodPost, "/auth/logout", body, nil); err != nil {
		return err
	}
	c.store.SetTokens("", "")
	return nil
}

// --- statistics ---

func (c *Client) MainStatistics(ctx context.Context) ([]StatItem, error) {
	var items []StatItem
	if err := c.do(ctx, http.MethodGet, "/statistics/main", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
