// Package httpx is the HTTP surface of the service: one handler per
// resource, chi routing, and the sentinel-error to status mapping.
package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NickolasKemp/ordify/internal/agreements"
	"github.com/NickolasKemp/ordify/internal/auth"
	"github.com/NickolasKemp/ordify/internal/catalog"
	"github.com/NickolasKemp/ordify/internal/checkout"
	"github.com/NickolasKemp/ordify/internal/customers"
	"github.com/NickolasKemp/ordify/internal/domain"
	"github.com/NickolasKemp/ordify/internal/orders"
	"github.com/NickolasKemp/ordify/internal/payments"
	"github.com/NickolasKemp/ordify/internal/stats"
)

type Handler struct {
	catalog    *catalog.Service
	customers  *customers.Service
	orders     *orders.Service
	agreements *agreements.Service
	payments   *payments.Service
	checkout   *checkout.Service
	sessions   *checkout.Sessions
	auth       *auth.Service
	stats      *stats.Service

	refreshTTL time.Duration
}

func NewHandler(
	catalogSvc *catalog.Service,
	customersSvc *customers.Service,
	ordersSvc *orders.Service,
	agreementsSvc *agreements.Service,
	paymentsSvc *payments.Service,
	checkoutSvc *checkout.Service,
	sessions *checkout.Sessions,
	authSvc *auth.Service,
	statsSvc *stats.Service,
	refreshTTL time.Duration,
) *Handler {
	return &Handler{
		catalog:    catalogSvc,
		customers:  customersSvc,
		orders:     ordersSvc,
		agreements: agreementsSvc,
		payments:   paymentsSvc,
		checkout:   checkoutSvc,
		sessions:   sessions,
		auth:       authSvc,
		stats:      statsSvc,
		refreshTTL: refreshTTL,
	}
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// --- products ---

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ProductFilter{Search: q.Get("search")}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	filter.MinPrice, _ = strconv.ParseFloat(q.Get("minPrice"), 64)
	filter.MaxPrice, _ = strconv.ParseFloat(q.Get("maxPrice"), 64)

	page, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !decode(r, &p) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	created, err := h.catalog.Create(r.Context(), &p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch catalog.UpdatePatch
	if !decode(r, &patch) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	p, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) AddDeliveryOption(w http.ResponseWriter, r *http.Request) {
	var opt domain.DeliveryOption
	if !decode(r, &opt) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	p, err := h.catalog.AddDeliveryOption(r.Context(), chi.URLParam(r, "id"), opt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) RemoveDeliveryOption(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.RemoveDeliveryOption(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "optionId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- customers ---

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	list, err := h.customers.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c domain.Customer
	if !decode(r, &c) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	created, err := h.customers.Create(r.Context(), &c)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// --- orders ---

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	data, err := h.orders.ExportCSV(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// PlaceOrderLegacy creates a bare order for an existing customer.
func (h *Handler) PlaceOrderLegacy(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	result, err := h.checkout.PlaceLegacy(r.Context(),
		chi.URLParam(r, "customerId"), chi.URLParam(r, "productId"),
		req.Quantity, req.DeliveryWay)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// PlaceOrderWithAgreement places an order for an existing customer and
// issues a new agreement whose client token is returned for reuse.
func (h *Handler) PlaceOrderWithAgreement(w http.ResponseWriter, r *http.Request) {
	var req checkout.AgreementPlacementRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	result, err := h.checkout.PlaceForCustomer(r.Context(),
		chi.URLParam(r, "customerId"), chi.URLParam(r, "productId"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// PlaceOrderWithToken places an order for the customer behind the
// x-client-token header.
func (h *Handler) PlaceOrderWithToken(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	result, err := h.checkout.PlaceWithToken(r.Context(), clientToken(r), checkout.TokenPlacementRequest{
		ProductID:   chi.URLParam(r, "productId"),
		Quantity:    req.Quantity,
		DeliveryWay: req.DeliveryWay,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// --- checkout sessions ---

func sessionResponse(id string, f *checkout.Flow) CheckoutSessionResponse {
	customer, locked := f.Customer()
	resp := CheckoutSessionResponse{
		ID:             id,
		Stage:          f.Stage(),
		Mode:           f.Mode(),
		Total:          f.Total(),
		CustomerLocked: locked,
		OrderID:        f.OrderID(),
		ClientToken:    f.ClientToken(),
		PaymentError:   f.PaymentError(),
	}
	if customer.Name != "" {
		resp.Customer = &customer
	}
	return resp
}

// StartCheckout opens a checkout session for a product.
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req StartCheckoutRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	id, flow, err := h.sessions.Start(r.Context(), req.ProductID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(id, flow))
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flow, err := h.sessions.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, flow))
}

// UpdateCheckoutSelection changes quantity and delivery way, requoting
// the total.
func (h *Handler) UpdateCheckoutSelection(w http.ResponseWriter, r *http.Request) {
	var req CheckoutSelectionRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	id := chi.URLParam(r, "id")
	flow, err := h.sessions.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	flow.SetQuantity(req.Quantity)
	if req.DeliveryWay != "" {
		if err := flow.SetDeliveryWay(req.DeliveryWay); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, flow))
}

func (h *Handler) SetCheckoutCustomer(w http.ResponseWriter, r *http.Request) {
	var req CheckoutCustomerRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	id := chi.URLParam(r, "id")
	flow, err := h.sessions.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := flow.SetCustomer(req.Customer, req.LegalEntity, req.Period); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, flow))
}

// UseCheckoutToken switches the session to returning mode. The token is
// read from the body, falling back to the x-client-token header.
func (h *Handler) UseCheckoutToken(w http.ResponseWriter, r *http.Request) {
	var req CheckoutTokenRequest
	decode(r, &req)
	if req.ClientToken == "" {
		req.ClientToken = clientToken(r)
	}
	id := chi.URLParam(r, "id")
	flow, err := h.sessions.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := flow.UseToken(r.Context(), req.ClientToken); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, flow))
}

func (h *Handler) PlaceCheckoutOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flow, err := h.sessions.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if _, err := flow.PlaceOrder(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(id, flow))
}

// PayCheckout charges the card for the session's placed order. Declines
// come back as 402 and stay recorded on the session.
func (h *Handler) PayCheckout(w http.ResponseWriter, r *http.Request) {
	var card domain.CardDetails
	if !decode(r, &card) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	id := chi.URLParam(r, "id")
	flow, err := h.sessions.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := flow.ConfirmPayment(r.Context(), card); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, flow))
}

func (h *Handler) BackCheckout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flow, err := h.sessions.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	flow.BackToReview()
	writeJSON(w, http.StatusOK, sessionResponse(id, flow))
}

func (h *Handler) AbandonCheckout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Release(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// --- agreements ---

func (h *Handler) ListAgreements(w http.ResponseWriter, r *http.Request) {
	list, err := h.agreements.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetAgreement(w http.ResponseWriter, r *http.Request) {
	a, err := h.agreements.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) GetAgreementByCustomer(w http.ResponseWriter, r *http.Request) {
	a, err := h.agreements.GetByCustomer(r.Context(), chi.URLParam(r, "customerId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) CreateAgreement(w http.ResponseWriter, r *http.Request) {
	var req CreateAgreementRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	a, err := h.agreements.Create(r.Context(), req.CustomerID, req.Period, req.LegalEntity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) ValidateAgreementToken(w http.ResponseWriter, r *http.Request) {
	a, err := h.agreements.ValidateToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) DeactivateAgreement(w http.ResponseWriter, r *http.Request) {
	a, err := h.agreements.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) RenewAgreement(w http.ResponseWriter, r *http.Request) {
	var req RenewAgreementRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	a, err := h.agreements.Renew(r.Context(), chi.URLParam(r, "id"), req.Period)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// --- payments ---

func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	intent, err := h.payments.CreateIntent(r.Context(), req.Amount, req.Currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	result, err := h.payments.Confirm(r.Context(), req.PaymentIntentID, req.CardDetails)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	var req PayOrderRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	result, err := h.checkout.ConfirmPayment(r.Context(), req.OrderID, req.CardDetails)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.payments.Status(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// --- auth ---

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if !decode(r, &creds) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	user, tokens, err := h.auth.Register(r.Context(), creds)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	setRefreshCookie(w, tokens.RefreshToken, h.refreshTTL)
	writeJSON(w, http.StatusCreated, AuthResponse{User: user, Tokens: tokens})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if !decode(r, &creds) {
		writeError(w, http.StatusBadRequest, "invalid_json", "")
		return
	}
	user, tokens, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	setRefreshCookie(w, tokens.RefreshToken, h.refreshTTL)
	writeJSON(w, http.StatusOK, AuthResponse{User: user, Tokens: tokens})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), h.refreshToken(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.auth.Refresh(r.Context(), h.refreshToken(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	setRefreshCookie(w, tokens.RefreshToken, h.refreshTTL)
	writeJSON(w, http.StatusOK, tokens)
}

// refreshToken reads the refresh token from the body when present,
// falling back to the cookie set at login.
func (h *Handler) refreshToken(r *http.Request) string {
	var req RefreshRequest
	if decode(r, &req) && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if c, err := r.Cookie(refreshCookie); err == nil {
		return c.Value
	}
	return ""
}

// --- statistics ---

func (h *Handler) MainStatistics(w http.ResponseWriter, r *http.Request) {
	items, err := h.stats.Main(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
