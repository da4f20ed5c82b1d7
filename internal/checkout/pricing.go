package checkout

import (
	"fmt"

	"github.com/NickolasKemp/ordify/internal/domain"
)

// Quote computes the order total for a product:
//
//	total = clamp(quantity, 1, stock) × unit price + delivery surcharge
//
// The billed quantity is clamped to the available stock rather than
// rejected; the surcharge is zero while no delivery option is resolved.
// Quantities below one are a caller error and skip computation entirely.
func Quote(p *domain.Product, quantity int, way domain.DeliveryWay) (total float64, billed int, err error) {
	if quantity < 1 {
		return 0, 0, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}
	if p.Quantity < 1 {
		return 0, 0, fmt.Errorf("%w: product is out of stock", domain.ErrValidation)
	}

	billed = quantity
	if billed > p.Quantity {
		billed = p.Quantity
	}

	var surcharge float64
	if opt, ok := p.DeliveryOptionFor(way); ok {
		surcharge = opt.Price
	}

	return float64(billed)*p.Price + surcharge, billed, nil
}
