package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/NickolasKemp/ordify/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	const q = `
		INSERT INTO users (id, created_at, email, password_hash, is_activated, activation_link)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		u.ID, formatTime(u.CreatedAt), u.Email, u.PasswordHash,
		boolToInt(u.IsActivated), u.ActivationLink,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("sqlite: create user %q: %w", u.Email, domain.ErrConflict)
		}
		return fmt.Errorf("sqlite: create user %q: %w", u.Email, err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `
		SELECT id, created_at, email, password_hash, is_activated, activation_link
		FROM users WHERE email = ?`
	return scanUser(s.db.QueryRowContext(ctx, q, email))
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	const q = `
		SELECT id, created_at, email, password_hash, is_activated, activation_link
		FROM users WHERE id = ?`
	return scanUser(s.db.QueryRowContext(ctx, q, id))
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var createdAt string
	var isActivated int
	err := row.Scan(&u.ID, &createdAt, &u.Email, &u.PasswordHash, &isActivated, &u.ActivationLink)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan user: %w", err)
	}
	u.IsActivated = isActivated != 0
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}
