package auth_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NickolasKemp/ordify/internal/auth"
	"github.com/NickolasKemp/ordify/internal/cache"
	"github.com/NickolasKemp/ordify/internal/domain"
)

type stubUsers struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (s *stubUsers) CreateUser(_ context.Context, u *domain.User) error {
	if _, ok := s.byEmail[u.Email]; ok {
		return domain.ErrConflict
	}
	copied := *u
	s.byID[u.ID] = &copied
	s.byEmail[u.Email] = &copied
	return nil
}

func (s *stubUsers) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func newService() (*auth.Service, *stubUsers) {
	users := newStubUsers()
	s := auth.NewService(users, cache.NewMemory("test"), 15*time.Minute, 24*time.Hour, slog.Default())
	return s, users
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newService()
	ctx := context.Background()

	user, tokens, err := s.Register(ctx, domain.Credentials{Email: "op@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ActivationLink)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	require.NotNil(t, tokens)

	_, _, err = s.Login(ctx, domain.Credentials{Email: "op@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, _, err = s.Login(ctx, domain.Credentials{Email: "op@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, _, err = s.Login(ctx, domain.Credentials{Email: "ghost@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newService()
	ctx := context.Background()

	_, _, err := s.Register(ctx, domain.Credentials{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = s.Register(ctx, domain.Credentials{Email: "op@example.com", Password: "tiny"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSessionAndRole(t *testing.T) {
	s, _ := newService()
	ctx := context.Background()

	_, tokens, err := s.Register(ctx, domain.Credentials{Email: "op@example.com", Password: "secret1"})
	require.NoError(t, err)

	user, err := s.Session(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "op@example.com", user.Email)

	assert.Equal(t, domain.RoleUser, s.Role(ctx, tokens.AccessToken))
	assert.Equal(t, domain.RoleCustomer, s.Role(ctx, "bogus"))
	assert.Equal(t, domain.RoleCustomer, s.Role(ctx, ""))
}

func TestRefreshRotatesAndConsumes(t *testing.T) {
	s, _ := newService()
	ctx := context.Background()

	_, tokens, err := s.Register(ctx, domain.Credentials{Email: "op@example.com", Password: "secret1"})
	require.NoError(t, err)

	fresh, err := s.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.AccessToken, fresh.AccessToken)
	assert.NotEqual(t, tokens.RefreshToken, fresh.RefreshToken)

	// The rotated-out pair is dead: the old refresh token is single use
	// and the old access token was revoked with it.
	_, err = s.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = s.Session(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = s.Session(ctx, fresh.AccessToken)
	assert.NoError(t, err)
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	s, _ := newService()
	ctx := context.Background()

	_, tokens, err := s.Register(ctx, domain.Credentials{Email: "op@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, tokens.RefreshToken))

	_, err = s.Session(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = s.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Logging out an unknown token is a no-op.
	assert.NoError(t, s.Logout(ctx, "already-gone"))
}
