package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NickolasKemp/ordify/internal/domain"
)

func (s *Store) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	const q = `
		INSERT INTO customers (id, created_at, name, contact_person, street, city, state, zip, phone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		c.ID, formatTime(c.CreatedAt), c.Name, c.ContactPerson,
		c.Street, c.City, c.State, c.Zip, c.Phone,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create customer %q: %w", c.ID, err)
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	const q = `
		SELECT id, created_at, name, contact_person, street, city, state, zip, phone
		FROM customers WHERE id = ?`
	return scanCustomer(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	const q = `
		SELECT id, created_at, name, contact_person, street, city, state, zip, phone
		FROM customers ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete customer %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: delete customer %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	var createdAt string
	err := row.Scan(&c.ID, &createdAt, &c.Name, &c.ContactPerson,
		&c.Street, &c.City, &c.State, &c.Zip, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan customer: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}
