// Package agreements manages the standing customer relationships behind
// repeat ordering: issuing client tokens, validating them, and the
// deactivate/renew admin actions.
package agreements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NickolasKemp/ordify/internal/domain"
)

type Repository interface {
	CreateAgreement(ctx context.Context, a *domain.Agreement) error
	GetAgreement(ctx context.Context, id string) (*domain.Agreement, error)
	GetAgreementByToken(ctx context.Context, token string) (*domain.Agreement, error)
	GetAgreementByCustomer(ctx context.Context, customerID string) (*domain.Agreement, error)
	ListAgreements(ctx context.Context) ([]domain.Agreement, error)
	SetAgreementActive(ctx context.Context, id string, active bool) error
	RenewAgreement(ctx context.Context, id string, a *domain.Agreement) error
}

type Service struct {
	repo Repository

	// now is swappable in tests to pin expiry decisions.
	now func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create issues a new agreement for the customer with a fresh opaque
// client token. The validity window is now + the selected period.
func (s *Service) Create(ctx context.Context, customerID string, period domain.AgreementPeriod, legalEntity *domain.LegalEntity) (*domain.Agreement, error) {
	if legalEntity != nil {
		if err := legalEntity.Validate(); err != nil {
			return nil, err
		}
	}

	now := s.now()
	endsAt, err := period.EndsAt(now)
	if err != nil {
		return nil, err
	}

	a := &domain.Agreement{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		EndsAt:      endsAt,
		CustomerID:  customerID,
		LegalEntity: legalEntity,
		ClientToken: uuid.NewString(),
		IsActive:    true,
	}
	if err := s.repo.CreateAgreement(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Agreement, error) {
	return s.repo.ListAgreements(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Agreement, error) {
	return s.repo.GetAgreement(ctx, id)
}

func (s *Service) GetByCustomer(ctx context.Context, customerID string) (*domain.Agreement, error) {
	return s.repo.GetAgreementByCustomer(ctx, customerID)
}

// ValidateToken resolves an opaque client token to its agreement. It is
// read-only and therefore idempotent: validating the same token twice
// yields the same agreement and customer. Unknown, deactivated and
// expired tokens all fail with ErrInvalidToken.
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.Agreement, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrInvalidToken)
	}

	a, err := s.repo.GetAgreementByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !a.ActiveAt(s.now()) {
		return nil, domain.ErrInvalidToken
	}
	return a, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (*domain.Agreement, error) {
	if err := s.repo.SetAgreementActive(ctx, id, false); err != nil {
		return nil, err
	}
	return s.repo.GetAgreement(ctx, id)
}

// Renew extends the agreement by the given period from now (or from the
// current expiry when that is still in the future) and reactivates it.
func (s *Service) Renew(ctx context.Context, id string, period domain.AgreementPeriod) (*domain.Agreement, error) {
	a, err := s.repo.GetAgreement(ctx, id)
	if err != nil {
		return nil, err
	}

	from := s.now()
	if a.EndsAt.After(from) {
		from = a.EndsAt
	}
	endsAt, err := period.EndsAt(from)
	if err != nil {
		return nil, err
	}

	a.EndsAt = endsAt
	a.IsActive = true
	if err := s.repo.RenewAgreement(ctx, id, a); err != nil {
		return nil, err
	}
	return a, nil
}
