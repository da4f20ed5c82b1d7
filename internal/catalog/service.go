// Package catalog is the product resource service: CRUD over the product
// collection plus a cached "latest known" snapshot for reactive consumers.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NickolasKemp/ordify/internal/cache"
	"github.com/NickolasKemp/ordify/internal/domain"
)

const snapshotTTL = 5 * time.Minute

// Repository is the persistence the service needs.
type Repository interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error)
	DeleteProduct(ctx context.Context, id string) error
}

type Service struct {
	repo  Repository
	cache cache.Cache
	log   *slog.Logger
}

func NewService(repo Repository, c cache.Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log}
}

// List returns a filtered page of products. The unfiltered listing is
// served read-through from the cache; filtered queries always hit the
// store because each filter combination is its own ephemeral view.
func (s *Service) List(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	if filter == (domain.ProductFilter{}) {
		if page, ok := s.cachedPage(ctx, s.listKey()); ok {
			return page, nil
		}
	}

	page, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}

	if filter == (domain.ProductFilter{}) {
		s.setSnapshot(ctx, s.listKey(), page)
	}
	return page, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	key := s.itemKey(id)
	if value, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var p domain.Product
		if err := json.Unmarshal([]byte(value), &p); err == nil {
			return &p, nil
		}
	}

	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setSnapshot(ctx, key, p)
	return p, nil
}

func (s *Service) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()

	// A product always offers pickup; it is the implicit default option.
	if len(p.DeliveryOptions) == 0 {
		p.DeliveryOptions = []domain.DeliveryOption{{Type: domain.DeliveryPickup, Period: "immediate"}}
	}
	for i := range p.DeliveryOptions {
		if p.DeliveryOptions[i].ID == "" {
			p.DeliveryOptions[i].ID = uuid.NewString()
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, s.refresh(ctx, p.ID)
}

// UpdatePatch carries the optional fields of a partial product update.
type UpdatePatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Image       *string  `json:"image"`
	Quantity    *int     `json:"quantity"`
}

func (s *Service) Update(ctx context.Context, id string, patch UpdatePatch) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, s.refresh(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return nil, err
	}
	return p, s.refresh(ctx, id)
}

// AddDeliveryOption appends a delivery option to the product.
func (s *Service) AddDeliveryOption(ctx context.Context, id string, opt domain.DeliveryOption) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !opt.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery way %q", domain.ErrValidation, opt.Type)
	}
	if _, exists := p.DeliveryOptionFor(opt.Type); exists {
		return nil, fmt.Errorf("%w: delivery way %s already offered", domain.ErrConflict, opt.Type)
	}
	opt.ID = uuid.NewString()
	if opt.Period == "" {
		opt.Period = "immediate"
	}
	p.DeliveryOptions = append(p.DeliveryOptions, opt)

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, s.refresh(ctx, id)
}

// RemoveDeliveryOption removes an option. Pickup is always retained, and
// the last remaining option cannot be removed.
func (s *Service) RemoveDeliveryOption(ctx context.Context, id, optionID string) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, opt := range p.DeliveryOptions {
		if opt.ID == optionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: delivery option %q", domain.ErrNotFound, optionID)
	}
	if p.DeliveryOptions[idx].Type == domain.DeliveryPickup {
		return nil, fmt.Errorf("%w: pickup cannot be removed", domain.ErrValidation)
	}
	if len(p.DeliveryOptions) == 1 {
		return nil, fmt.Errorf("%w: at least one delivery option must remain", domain.ErrValidation)
	}
	p.DeliveryOptions = append(p.DeliveryOptions[:idx], p.DeliveryOptions[idx+1:]...)

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, s.refresh(ctx, id)
}

// Refresh drops the cached snapshots for a product and re-primes the
// collection. Checkout calls this after placement or compensation moves
// stock without going through this service.
func (s *Service) Refresh(ctx context.Context, id string) error {
	return s.refresh(ctx, id)
}

// refresh re-fetches the full collection after a mutation so the cached
// snapshot always reflects the store, never a locally patched copy. The
// refetch is sequenced after the mutation, not left to race with it.
func (s *Service) refresh(ctx context.Context, mutatedID string) error {
	if err := s.cache.Invalidate(ctx, s.listKey(), s.itemKey(mutatedID)); err != nil {
		s.log.WarnContext(ctx, "product cache invalidation failed", "error", err)
	}

	page, err := s.repo.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		return fmt.Errorf("catalog: refresh after mutation: %w", err)
	}
	s.setSnapshot(ctx, s.listKey(), page)
	return nil
}

func (s *Service) cachedPage(ctx context.Context, key string) (*domain.ProductPage, bool) {
	value, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var page domain.ProductPage
	if err := json.Unmarshal([]byte(value), &page); err != nil {
		return nil, false
	}
	return &page, true
}

func (s *Service) setSnapshot(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(b), snapshotTTL); err != nil {
		s.log.WarnContext(ctx, "product cache set failed", "error", err)
	}
}

func (s *Service) listKey() string {
	return s.cache.Key("products", "list")
}

func (s *Service) itemKey(id string) string {
	return s.cache.Key("products", "item", id)
}
