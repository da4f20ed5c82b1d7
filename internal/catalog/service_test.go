package catalog_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NickolasKemp/ordify/internal/cache"
	"github.com/NickolasKemp/ordify/internal/catalog"
	"github.com/NickolasKemp/ordify/internal/domain"
)

type stubRepo struct {
	products map[string]*domain.Product
	listHits int
}

func newStubRepo() *stubRepo {
	return &stubRepo{products: make(map[string]*domain.Product)}
}

func (r *stubRepo) CreateProduct(_ context.Context, p *domain.Product) error {
	copied := *p
	r.products[p.ID] = &copied
	return nil
}

func (r *stubRepo) UpdateProduct(_ context.Context, p *domain.Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *p
	r.products[p.ID] = &copied
	return nil
}

func (r *stubRepo) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *stubRepo) ListProducts(_ context.Context, _ domain.ProductFilter) (*domain.ProductPage, error) {
	r.listHits++
	page := &domain.ProductPage{TotalPages: 1, TotalProducts: len(r.products)}
	for _, p := range r.products {
		page.Products = append(page.Products, *p)
	}
	return page, nil
}

func (r *stubRepo) DeleteProduct(_ context.Context, id string) error {
	if _, ok := r.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func newService(repo *stubRepo) *catalog.Service {
	return catalog.NewService(repo, cache.NewMemory("test"), slog.Default())
}

func validProduct() *domain.Product {
	return &domain.Product{
		Name:     "Widget",
		Price:    100,
		Quantity: 5,
	}
}

func TestCreateDefaultsPickup(t *testing.T) {
	s := newService(newStubRepo())

	p, err := s.Create(context.Background(), validProduct())
	require.NoError(t, err)
	require.Len(t, p.DeliveryOptions, 1)
	assert.Equal(t, domain.DeliveryPickup, p.DeliveryOptions[0].Type)
	assert.NotEmpty(t, p.ID)
}

func TestListServedFromCacheUntilMutation(t *testing.T) {
	repo := newStubRepo()
	s := newService(repo)

	created, err := s.Create(context.Background(), validProduct())
	require.NoError(t, err)
	hitsAfterCreate := repo.listHits

	_, err = s.List(context.Background(), domain.ProductFilter{})
	require.NoError(t, err)
	_, err = s.List(context.Background(), domain.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, hitsAfterCreate, repo.listHits, "unfiltered listings should be served from cache")

	name := "Renamed"
	_, err = s.Update(context.Background(), created.ID, catalog.UpdatePatch{Name: &name})
	require.NoError(t, err)
	assert.Greater(t, repo.listHits, hitsAfterCreate, "mutation must trigger a re-fetch")

	page, err := s.List(context.Background(), domain.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Renamed", page.Products[0].Name, "cache must not serve the stale name")
}

func TestFilteredListBypassesCache(t *testing.T) {
	repo := newStubRepo()
	s := newService(repo)

	_, err := s.Create(context.Background(), validProduct())
	require.NoError(t, err)
	before := repo.listHits

	_, err = s.List(context.Background(), domain.ProductFilter{Search: "wid"})
	require.NoError(t, err)
	_, err = s.List(context.Background(), domain.ProductFilter{Search: "wid"})
	require.NoError(t, err)
	assert.Equal(t, before+2, repo.listHits)
}

func TestRemoveDeliveryOptionGuards(t *testing.T) {
	s := newService(newStubRepo())

	p, err := s.Create(context.Background(), validProduct())
	require.NoError(t, err)
	pickupID := p.DeliveryOptions[0].ID

	_, err = s.RemoveDeliveryOption(context.Background(), p.ID, pickupID)
	assert.ErrorIs(t, err, domain.ErrValidation, "pickup is always retained")

	p, err = s.AddDeliveryOption(context.Background(), p.ID, domain.DeliveryOption{
		Type:  domain.DeliveryCourier,
		Price: 10,
	})
	require.NoError(t, err)
	require.Len(t, p.DeliveryOptions, 2)

	var courierID string
	for _, opt := range p.DeliveryOptions {
		if opt.Type == domain.DeliveryCourier {
			courierID = opt.ID
		}
	}
	p, err = s.RemoveDeliveryOption(context.Background(), p.ID, courierID)
	require.NoError(t, err)
	assert.Len(t, p.DeliveryOptions, 1)
}

func TestAddDeliveryOptionRejectsDuplicateWay(t *testing.T) {
	s := newService(newStubRepo())

	p, err := s.Create(context.Background(), validProduct())
	require.NoError(t, err)

	_, err = s.AddDeliveryOption(context.Background(), p.ID, domain.DeliveryOption{
		Type: domain.DeliveryPickup,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}
