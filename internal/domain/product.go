package domain

import (
	"fmt"
	"time"
)

type DeliveryWay string

const (
	DeliveryCourier DeliveryWay = "COURIER"
	DeliveryPostal  DeliveryWay = "POSTAL"
	DeliveryPickup  DeliveryWay = "PICKUP"
)

func (w DeliveryWay) Valid() bool {
	switch w {
	case DeliveryCourier, DeliveryPostal, DeliveryPickup:
		return true
	}
	return false
}

// Label returns the human-readable name shown in order summaries.
func (w DeliveryWay) Label() string {
	switch w {
	case DeliveryCourier:
		return "Courier Delivery"
	case DeliveryPostal:
		return "Postal Service"
	case DeliveryPickup:
		return "Self Pickup"
	}
	return string(w)
}

// DeliveryOption is a (method, surcharge, lead time) tuple a product offers.
type DeliveryOption struct {
	ID     string      `json:"id"`
	Type   DeliveryWay `json:"type"`
	Price  float64     `json:"price"`
	Period string      `json:"period"`
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

// DeliveryOptionFor returns the option matching the given way, if any.
func (p *Product) DeliveryOptionFor(way DeliveryWay) (DeliveryOption, bool) {
	for _, opt := range p.DeliveryOptions {
		if opt.Type == way {
			return opt, true
		}
	}
	return DeliveryOption{}, false
}

// Validate checks the invariants a product must hold at rest:
// a name, a non-negative price and stock, and at least one delivery option.
func (p *Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: product price must not be negative", ErrValidation)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: product quantity must not be negative", ErrValidation)
	}
	if len(p.DeliveryOptions) == 0 {
		return fmt.Errorf("%w: product must keep at least one delivery option", ErrValidation)
	}
	for _, opt := range p.DeliveryOptions {
		if !opt.Type.Valid() {
			return fmt.Errorf("%w: unknown delivery way %q", ErrValidation, opt.Type)
		}
		if opt.Price < 0 {
			return fmt.Errorf("%w: delivery surcharge must not be negative", ErrValidation)
		}
	}
	return nil
}

// ProductFilter narrows and pages a product listing.
// Zero values mean "no constraint"; Page is 1-based.
type ProductFilter struct {
	Search   string
	Page     int
	PageSize int
	MinPrice float64
	MaxPrice float64
}

// ProductPage is a single page of a filtered listing.
type ProductPage struct {
	Products      []Product `json:"products"`
	TotalPages    int       `json:"totalPages"`
	TotalProducts int       `json:"totalProducts"`
}
