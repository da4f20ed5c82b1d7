package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is derived solely from session state: a valid session is an
// elevated store operator, everything else is a browsing customer.
type Role string

const (
	RoleUser     Role = "USER"
	RoleCustomer Role = "CUSTOMER"
)

type User struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	IsActivated    bool      `json:"isActivated"`
	ActivationLink string    `json:"activationLink,omitempty"`
}

// Credentials are the register/login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if len(c.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	return nil
}

// Tokens is the access/refresh pair issued on login and refresh.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
