package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	cardNumberRe = regexp.MustCompile(`^\d{13,19}$`)
	expMonthRe   = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	expYearRe    = regexp.MustCompile(`^\d{2}$`)
	cvcRe        = regexp.MustCompile(`^\d{3,4}$`)
)

// CardDetails are the raw card fields submitted with a payment.
// They are validated, used once against the processor, and never stored.
type CardDetails struct {
	CardNumber string `json:"cardNumber"`
	ExpMonth   string `json:"expMonth"`
	ExpYear    string `json:"expYear"`
	CVC        string `json:"cvc"`
}

// Normalized returns the card number with spaces stripped.
func (c CardDetails) Normalized() string {
	return strings.ReplaceAll(c.CardNumber, " ", "")
}

func (c CardDetails) Validate() error {
	if !cardNumberRe.MatchString(c.Normalized()) {
		return fmt.Errorf("%w: card number must be 13-19 digits", ErrValidation)
	}
	if !expMonthRe.MatchString(c.ExpMonth) {
		return fmt.Errorf("%w: expiry month must be 01-12", ErrValidation)
	}
	if !expYearRe.MatchString(c.ExpYear) {
		return fmt.Errorf("%w: expiry year must be two digits", ErrValidation)
	}
	if !cvcRe.MatchString(c.CVC) {
		return fmt.Errorf("%w: cvc must be 3-4 digits", ErrValidation)
	}
	return nil
}

// PaymentIntent is an ephemeral record of a payment about to be confirmed.
type PaymentIntent struct {
	ID           string  `json:"paymentIntentId"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
}

// PaymentResult is the outcome of confirming an intent.
type PaymentResult struct {
	Success         bool       `json:"success"`
	PaymentIntentID string     `json:"paymentIntentId"`
	Status          string     `json:"status"`
	Error           string     `json:"error,omitempty"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`
}
