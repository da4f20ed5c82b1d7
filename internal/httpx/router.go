package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/NickolasKemp/ordify/internal/domain"
)

// NewRouter wires the full endpoint surface. Browsing, checkout, payments
// and auth are public; everything that manages the store requires an
// operator session.
func NewRouter(h *Handler, sessions SessionResolver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(AttachMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(ResolveSession(sessions))

	admin := RequireRole(domain.RoleUser)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
		r.With(admin).Post("/", h.CreateProduct)
		r.With(admin).Put("/{id}", h.UpdateProduct)
		r.With(admin).Delete("/{id}", h.DeleteProduct)
		r.With(admin).Patch("/{id}/delivery-options", h.AddDeliveryOption)
		r.With(admin).Patch("/{id}/delivery-options/{optionId}", h.RemoveDeliveryOption)
	})

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomer)
		r.With(admin).Get("/", h.ListCustomers)
		r.With(admin).Get("/{id}", h.GetCustomer)
		r.With(admin).Delete("/{id}", h.DeleteCustomer)
	})

	r.Route("/orders", func(r chi.Router) {
		r.With(admin).Get("/", h.ListOrders)
		r.With(admin).Get("/export", h.ExportOrders)
		r.With(admin).Get("/{id}", h.GetOrder)
		r.With(admin).Put("/{id}", h.UpdateOrder)
		r.With(admin).Delete("/{id}", h.DeleteOrder)
		r.Post("/agreement/{customerId}/{productId}", h.PlaceOrderWithAgreement)
		r.Post("/token/{productId}", h.PlaceOrderWithToken)
		r.Post("/{customerId}/{productId}", h.PlaceOrderLegacy)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", h.StartCheckout)
		r.Get("/{id}", h.GetCheckout)
		r.Patch("/{id}", h.UpdateCheckoutSelection)
		r.Put("/{id}/customer", h.SetCheckoutCustomer)
		r.Post("/{id}/token", h.UseCheckoutToken)
		r.Post("/{id}/place", h.PlaceCheckoutOrder)
		r.Post("/{id}/pay", h.PayCheckout)
		r.Post("/{id}/back", h.BackCheckout)
		r.Delete("/{id}", h.AbandonCheckout)
	})

	r.Route("/agreements", func(r chi.Router) {
		r.Get("/validate/{token}", h.ValidateAgreementToken)
		r.With(admin).Get("/", h.ListAgreements)
		r.With(admin).Post("/", h.CreateAgreement)
		r.With(admin).Get("/customer/{customerId}", h.GetAgreementByCustomer)
		r.With(admin).Get("/{id}", h.GetAgreement)
		r.With(admin).Patch("/{id}/deactivate", h.DeactivateAgreement)
		r.With(admin).Patch("/{id}/renew", h.RenewAgreement)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/create-intent", h.CreatePaymentIntent)
		r.Post("/confirm", h.ConfirmPayment)
		r.Post("/pay-order", h.PayOrder)
		r.Get("/status/{orderId}", h.PaymentStatus)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/refresh", h.Refresh)
		r.Get("/refresh", h.Refresh)
	})

	r.With(admin).Get("/statistics/main", h.MainStatistics)

	return r
}
