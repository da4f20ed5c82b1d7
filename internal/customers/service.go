// Package customers is the customer resource service. Customers are
// created per order (or reused via an agreement) before an order
// references them.
package customers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NickolasKemp/ordify/internal/cache"
	"github.com/NickolasKemp/ordify/internal/domain"
)

const snapshotTTL = 5 * time.Minute

type Repository interface {
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type Service struct {
	repo  Repository
	cache cache.Cache
	log   *slog.Logger
}

func NewService(repo Repository, c cache.Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log}
}

func (s *Service) List(ctx context.Context) ([]domain.Customer, error) {
	key := s.cache.Key("customers", "list")
	if value, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var customers []domain.Customer
		if err := json.Unmarshal([]byte(value), &customers); err == nil {
			return customers, nil
		}
	}

	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	s.setSnapshot(ctx, key, customers)
	return customers, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()

	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, s.refresh(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return nil, err
	}
	return c, s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) error {
	key := s.cache.Key("customers", "list")
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.WarnContext(ctx, "customer cache invalidation failed", "error", err)
	}
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return err
	}
	s.setSnapshot(ctx, key, customers)
	return nil
}

func (s *Service) setSnapshot(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(b), snapshotTTL); err != nil {
		s.log.WarnContext(ctx, "customer cache set failed", "error", err)
	}
}
