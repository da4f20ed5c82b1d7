// Package stats serves the admin dashboard counters.
package stats

import (
	"context"
	"time"

	"github.com/NickolasKemp/ordify/internal/storage/sqlite"
)

type TotalsStore interface {
	GetTotals(ctx context.Context, now time.Time) (*sqlite.Totals, error)
}

// Item is one labelled dashboard counter.
type Item struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Service struct {
	store TotalsStore

	now func() time.Time
}

func NewService(store TotalsStore) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Main returns the headline counters: entity totals, revenue from paid
// orders, and agreements still inside their validity window.
func (s *Service) Main(ctx context.Context) ([]Item, error) {
	t, err := s.store.GetTotals(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return []Item{
		{Label: "Products", Value: float64(t.Products)},
		{Label: "Customers", Value: float64(t.Customers)},
		{Label: "Orders", Value: float64(t.Orders)},
		{Label: "Revenue", Value: t.Revenue},
		{Label: "Active agreements", Value: float64(t.ActiveAgreements)},
	}, nil
}
