package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/NickolasKemp/ordify/internal/domain"
)

// Totals are the raw aggregates behind the admin dashboard.
type Totals struct {
	Products         int
	Customers        int
	Orders           int
	Revenue          float64
	ActiveAgreements int
}

func (s *Store) GetTotals(ctx context.Context, now time.Time) (*Totals, error) {
	var t Totals

	count := func(q string, dest *int, args ...any) error {
		if err := s.db.QueryRowContext(ctx, q, args...).Scan(dest); err != nil {
			return fmt.Errorf("sqlite: totals: %w", err)
		}
		return nil
	}

	if err := count(`SELECT COUNT(*) FROM products`, &t.Products); err != nil {
		return nil, err
	}
	if err := count(`SELECT COUNT(*) FROM customers`, &t.Customers); err != nil {
		return nil, err
	}
	if err := count(`SELECT COUNT(*) FROM orders`, &t.Orders); err != nil {
		return nil, err
	}
	if err := count(`SELECT COUNT(*) FROM agreements WHERE is_active = 1 AND ends_at > ?`,
		&t.ActiveAgreements, formatTime(now)); err != nil {
		return nil, err
	}

	const revenueQ = `SELECT COALESCE(SUM(price), 0) FROM orders WHERE payment_status = ?`
	if err := s.db.QueryRowContext(ctx, revenueQ, string(domain.PaymentPaid)).Scan(&t.Revenue); err != nil {
		return nil, fmt.Errorf("sqlite: totals revenue: %w", err)
	}

	return &t, nil
}
