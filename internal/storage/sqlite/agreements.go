package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NickolasKemp/ordify/internal/domain"
)

const agreementColumns = `
	a.id, a.created_at, a.ends_at, a.customer_id, a.legal_entity,
	a.client_token, a.is_active,
	c.created_at, c.name, c.contact_person, c.street, c.city, c.state, c.zip, c.phone`

const agreementJoins = `
	FROM agreements a
	JOIN customers c ON c.id = a.customer_id`

func (s *Store) CreateAgreement(ctx context.Context, a *domain.Agreement) error {
	var legalEntity any
	if a.LegalEntity != nil {
		b, err := json.Marshal(a.LegalEntity)
		if err != nil {
			return fmt.Errorf("sqlite: marshal legal entity: %w", err)
		}
		legalEntity = string(b)
	}

	const q = `
		INSERT INTO agreements (id, created_at, ends_at, customer_id, legal_entity, client_token, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, formatTime(a.CreatedAt), formatTime(a.EndsAt),
		a.CustomerID, legalEntity, a.ClientToken, boolToInt(a.IsActive),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create agreement %q: %w", a.ID, err)
	}
	return nil
}

func (s *Store) GetAgreement(ctx context.Context, id string) (*domain.Agreement, error) {
	q := `SELECT` + agreementColumns + agreementJoins + ` WHERE a.id = ?`
	return scanAgreement(s.db.QueryRowContext(ctx, q, id))
}

// GetAgreementByToken resolves an opaque client token.
func (s *Store) GetAgreementByToken(ctx context.Context, token string) (*domain.Agreement, error) {
	q := `SELECT` + agreementColumns + agreementJoins + ` WHERE a.client_token = ?`
	return scanAgreement(s.db.QueryRowContext(ctx, q, token))
}

// GetAgreementByCustomer returns the most recent active agreement for the
// customer.
func (s *Store) GetAgreementByCustomer(ctx context.Context, customerID string) (*domain.Agreement, error) {
	q := `SELECT` + agreementColumns + agreementJoins + `
		WHERE a.customer_id = ? AND a.is_active = 1
		ORDER BY a.created_at DESC LIMIT 1`
	return scanAgreement(s.db.QueryRowContext(ctx, q, customerID))
}

func (s *Store) ListAgreements(ctx context.Context) ([]domain.Agreement, error) {
	q := `SELECT` + agreementColumns + agreementJoins + ` ORDER BY a.created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list agreements: %w", err)
	}
	defer rows.Close()

	agreements := make([]domain.Agreement, 0)
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		agreements = append(agreements, *a)
	}
	return agreements, rows.Err()
}

// SetAgreementActive flips the explicit deactivation flag.
func (s *Store) SetAgreementActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agreements SET is_active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("sqlite: set agreement active %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: set agreement active %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

// RenewAgreement extends the validity window and reactivates the agreement.
func (s *Store) RenewAgreement(ctx context.Context, id string, a *domain.Agreement) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agreements SET ends_at = ?, is_active = 1 WHERE id = ?`,
		formatTime(a.EndsAt), id)
	if err != nil {
		return fmt.Errorf("sqlite: renew agreement %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: renew agreement %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanAgreement(row rowScanner) (*domain.Agreement, error) {
	var (
		a             domain.Agreement
		c             domain.Customer
		createdAt     string
		endsAt        string
		legalEntity   sql.NullString
		isActive      int
		custCreatedAt string
	)
	err := row.Scan(
		&a.ID, &createdAt, &endsAt, &a.CustomerID, &legalEntity,
		&a.ClientToken, &isActive,
		&custCreatedAt, &c.Name, &c.ContactPerson, &c.Street, &c.City, &c.State, &c.Zip, &c.Phone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan agreement: %w", err)
	}

	a.IsActive = isActive != 0
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.EndsAt, err = parseTime(endsAt); err != nil {
		return nil, err
	}
	if legalEntity.Valid && legalEntity.String != "" {
		var entity domain.LegalEntity
		if err := json.Unmarshal([]byte(legalEntity.String), &entity); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal legal entity: %w", err)
		}
		a.LegalEntity = &entity
	}

	c.ID = a.CustomerID
	if c.CreatedAt, err = parseTime(custCreatedAt); err != nil {
		return nil, err
	}
	a.Customer = &c
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
