package agreements

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NickolasKemp/ordify/internal/domain"
)

type stubRepo struct {
	byID    map[string]*domain.Agreement
	byToken map[string]*domain.Agreement
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byID:    make(map[string]*domain.Agreement),
		byToken: make(map[string]*domain.Agreement),
	}
}

func (r *stubRepo) CreateAgreement(_ context.Context, a *domain.Agreement) error {
	copied := *a
	r.byID[a.ID] = &copied
	r.byToken[a.ClientToken] = &copied
	return nil
}

func (r *stubRepo) GetAgreement(_ context.Context, id string) (*domain.Agreement, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *stubRepo) GetAgreementByToken(_ context.Context, token string) (*domain.Agreement, error) {
	a, ok := r.byToken[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *stubRepo) GetAgreementByCustomer(_ context.Context, customerID string) (*domain.Agreement, error) {
	for _, a := range r.byID {
		if a.CustomerID == customerID && a.IsActive {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubRepo) ListAgreements(_ context.Context) ([]domain.Agreement, error) {
	out := make([]domain.Agreement, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, *a)
	}
	return out, nil
}

func (r *stubRepo) SetAgreementActive(_ context.Context, id string, active bool) error {
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.IsActive = active
	return nil
}

func (r *stubRepo) RenewAgreement(_ context.Context, id string, updated *domain.Agreement) error {
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.EndsAt = updated.EndsAt
	a.IsActive = updated.IsActive
	return nil
}

func fixedService(repo Repository, at time.Time) *Service {
	s := NewService(repo)
	s.now = func() time.Time { return at }
	return s
}

func TestCreateDerivesEndsAt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := fixedService(newStubRepo(), now)

	a, err := s.Create(context.Background(), "c1", domain.PeriodSixMonths, nil)
	require.NoError(t, err)

	assert.Equal(t, now.AddDate(0, 6, 0), a.EndsAt)
	assert.True(t, a.IsActive)
	assert.NotEmpty(t, a.ClientToken)
}

func TestValidateTokenIsIdempotent(t *testing.T) {
	now := time.Now().UTC()
	s := fixedService(newStubRepo(), now)

	created, err := s.Create(context.Background(), "c1", domain.PeriodOneYear, nil)
	require.NoError(t, err)

	first, err := s.ValidateToken(context.Background(), created.ClientToken)
	require.NoError(t, err)
	second, err := s.ValidateToken(context.Background(), created.ClientToken)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CustomerID, second.CustomerID)
}

func TestValidateTokenFailures(t *testing.T) {
	now := time.Now().UTC()
	repo := newStubRepo()
	s := fixedService(repo, now)

	_, err := s.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = s.ValidateToken(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	created, err := s.Create(context.Background(), "c1", domain.PeriodThreeMonths, nil)
	require.NoError(t, err)

	_, err = s.Deactivate(context.Background(), created.ID)
	require.NoError(t, err)
	_, err = s.ValidateToken(context.Background(), created.ClientToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "deactivated token must not validate")
}

func TestValidateTokenExpired(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newStubRepo()
	s := fixedService(repo, start)

	created, err := s.Create(context.Background(), "c1", domain.PeriodThreeMonths, nil)
	require.NoError(t, err)

	s.now = func() time.Time { return start.AddDate(0, 3, 1) }
	_, err = s.ValidateToken(context.Background(), created.ClientToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRenewExtendsFromFutureExpiry(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newStubRepo()
	s := fixedService(repo, start)

	created, err := s.Create(context.Background(), "c1", domain.PeriodThreeMonths, nil)
	require.NoError(t, err)

	renewed, err := s.Renew(context.Background(), created.ID, domain.PeriodSixMonths)
	require.NoError(t, err)
	assert.Equal(t, created.EndsAt.AddDate(0, 6, 0), renewed.EndsAt)
}

func TestRenewReactivatesExpired(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newStubRepo()
	s := fixedService(repo, start)

	created, err := s.Create(context.Background(), "c1", domain.PeriodThreeMonths, nil)
	require.NoError(t, err)
	_, err = s.Deactivate(context.Background(), created.ID)
	require.NoError(t, err)

	later := start.AddDate(1, 0, 0)
	s.now = func() time.Time { return later }

	renewed, err := s.Renew(context.Background(), created.ID, domain.PeriodOneYear)
	require.NoError(t, err)
	assert.True(t, renewed.IsActive)
	assert.Equal(t, later.AddDate(0, 12, 0), renewed.EndsAt)

	_, err = s.ValidateToken(context.Background(), created.ClientToken)
	assert.NoError(t, err)
}
