// Package auth implements registration, login and the opaque session
// token lifecycle. Access and refresh tokens are random values held in
// the cache with independent TTLs; refresh tokens are single use and
// rotated on every refresh.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/NickolasKemp/ordify/internal/cache"
	"github.com/NickolasKemp/ordify/internal/domain"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type Service struct {
	users UserStore
	cache cache.Cache
	log   *slog.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(users UserStore, c cache.Cache, accessTTL, refreshTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		users:      users,
		cache:      c,
		log:        log,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// session is what a token resolves to in the cache. Refresh sessions
// additionally remember their paired access token so logout and rotation
// can revoke both sides.
type session struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken,omitempty"`
}

// Register creates a user with a bcrypt password hash and an activation
// link token, then logs them in.
func (s *Service) Register(ctx context.Context, creds domain.Credentials) (*domain.User, *domain.Tokens, error) {
	if err := creds.Validate(); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		Email:          creds.Email,
		PasswordHash:   string(hash),
		ActivationLink: uuid.NewString(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Login verifies the credentials and issues a fresh token pair. Wrong
// email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*domain.User, *domain.Tokens, error) {
	user, err := s.users.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Logout revokes the refresh token and its paired access token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	sess, ok, err := s.loadSession(ctx, refreshKey, refreshToken)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	keys := []string{s.cache.Key("auth", refreshKey, refreshToken)}
	if sess.AccessToken != "" {
		keys = append(keys, s.cache.Key("auth", accessKey, sess.AccessToken))
	}
	return s.cache.Invalidate(ctx, keys...)
}

// Refresh exchanges a refresh token for a new pair. The presented token
// is consumed: a second use fails with Unauthorized.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.Tokens, error) {
	sess, ok, err := s.loadSession(ctx, refreshKey, refreshToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown or expired refresh token", domain.ErrUnauthorized)
	}

	user, err := s.users.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: session user no longer exists", domain.ErrUnauthorized)
	}

	keys := []string{s.cache.Key("auth", refreshKey, refreshToken)}
	if sess.AccessToken != "" {
		keys = append(keys, s.cache.Key("auth", accessKey, sess.AccessToken))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.WarnContext(ctx, "failed to revoke rotated tokens", "error", err)
	}

	return s.issueTokens(ctx, user)
}

// Session resolves an access token. A hit means the caller holds the
// elevated operator role.
func (s *Service) Session(ctx context.Context, accessToken string) (*domain.User, error) {
	sess, ok, err := s.loadSession(ctx, accessKey, accessToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown or expired access token", domain.ErrUnauthorized)
	}
	return s.users.GetUser(ctx, sess.UserID)
}

// Role derives the caller's role from the access token: a resolvable
// session is an operator, anything else a customer.
func (s *Service) Role(ctx context.Context, accessToken string) domain.Role {
	if accessToken == "" {
		return domain.RoleCustomer
	}
	if _, err := s.Session(ctx, accessToken); err != nil {
		return domain.RoleCustomer
	}
	return domain.RoleUser
}

const (
	accessKey  = "access"
	refreshKey = "refresh"
)

func (s *Service) issueTokens(ctx context.Context, user *domain.User) (*domain.Tokens, error) {
	tokens := &domain.Tokens{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
	}

	access := session{UserID: user.ID, Email: user.Email}
	if err := s.storeSession(ctx, accessKey, tokens.AccessToken, access, s.accessTTL); err != nil {
		return nil, err
	}

	refresh := session{UserID: user.ID, Email: user.Email, AccessToken: tokens.AccessToken}
	if err := s.storeSession(ctx, refreshKey, tokens.RefreshToken, refresh, s.refreshTTL); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *Service) storeSession(ctx context.Context, kind, token string, sess session, ttl time.Duration) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("auth: marshal session: %w", err)
	}
	return s.cache.Set(ctx, s.cache.Key("auth", kind, token), string(b), ttl)
}

func (s *Service) loadSession(ctx context.Context, kind, token string) (session, bool, error) {
	var sess session
	if token == "" {
		return sess, false, nil
	}
	value, ok, err := s.cache.Get(ctx, s.cache.Key("auth", kind, token))
	if err != nil || !ok {
		return sess, false, err
	}
	if err := json.Unmarshal([]byte(value), &sess); err != nil {
		return sess, false, fmt.Errorf("auth: unmarshal session: %w", err)
	}
	return sess, true, nil
}
