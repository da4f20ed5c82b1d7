package domain

import "errors"

// Sentinel errors shared across services. The HTTP layer maps them to
// status codes; callers branch on them with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalidToken    = errors.New("invalid or expired client token")
	ErrPaymentDeclined = errors.New("payment declined")
)
