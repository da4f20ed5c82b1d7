// Package orders is the order resource service: admin listing, status
// transitions, deletion, and CSV export.
package orders

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/NickolasKemp/ordify/internal/audit"
	"github.com/NickolasKemp/ordify/internal/cache"
	"github.com/NickolasKemp/ordify/internal/domain"
)

const snapshotTTL = 2 * time.Minute

type Repository interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, completedAt *time.Time) error
	DeleteOrder(ctx context.Context, id string) error
}

type Service struct {
	repo  Repository
	cache cache.Cache
	audit audit.Publisher
	log   *slog.Logger
}

func NewService(repo Repository, c cache.Cache, publisher audit.Publisher, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, audit: publisher, log: log}
}

func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	key := s.cache.Key("orders", "list")
	if value, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var orders []domain.Order
		if err := json.Unmarshal([]byte(value), &orders); err == nil {
			return orders, nil
		}
	}

	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	s.setSnapshot(ctx, key, orders)
	return orders, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// UpdateStatus performs an admin-driven status transition, enforcing the
// transition rule and stamping completed_at when an order completes.
func (s *Service) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", domain.ErrValidation, next)
	}

	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: cannot transition order from %s to %s",
			domain.ErrValidation, o.Status, next)
	}

	old := o.Status
	o.Status = next
	if next == domain.OrderCompleted {
		now := time.Now().UTC()
		o.CompletedAt = &now
	} else {
		o.CompletedAt = nil
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, next, o.CompletedAt); err != nil {
		return nil, err
	}

	s.audit.Publish(ctx, audit.Event{
		Type:      audit.EventStatusChanged,
		OrderID:   id,
		OldStatus: string(old),
		NewStatus: string(next),
	})
	return o, s.refresh(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return nil, err
	}
	return o, s.refresh(ctx)
}

// Refresh re-fetches the cached collection. Exposed so the checkout and
// payment flows can invalidate the admin listing after creating or paying
// orders outside this service.
func (s *Service) Refresh(ctx context.Context) error {
	return s.refresh(ctx)
}

// ExportCSV renders all orders as a CSV document for the admin dashboard.
func (s *Service) ExportCSV(ctx context.Context) ([]byte, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"id", "created_at", "customer", "product", "quantity", "delivery_way", "price", "status", "payment_status", "paid_at"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("orders: write csv header: %w", err)
	}

	for _, o := range orders {
		customer, product := "", ""
		if o.Customer != nil {
			customer = o.Customer.Name
		}
		if o.Product != nil {
			product = o.Product.Name
		}
		paidAt := ""
		if o.PaidAt != nil {
			paidAt = o.PaidAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			o.ID,
			o.CreatedAt.UTC().Format(time.RFC3339),
			customer,
			product,
			strconv.Itoa(o.Quantity),
			string(o.DeliveryWay),
			strconv.FormatFloat(o.Price, 'f', 2, 64),
			string(o.Status),
			string(o.PaymentStatus),
			paidAt,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("orders: write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("orders: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) refresh(ctx context.Context) error {
	key := s.cache.Key("orders", "list")
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.WarnContext(ctx, "order cache invalidation failed", "error", err)
	}
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return err
	}
	s.setSnapshot(ctx, key, orders)
	return nil
}

func (s *Service) setSnapshot(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(b), snapshotTTL); err != nil {
		s.log.WarnContext(ctx, "order cache set failed", "error", err)
	}
}
