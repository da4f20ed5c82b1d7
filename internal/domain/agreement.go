package domain

import (
	"fmt"
	"time"
)

// AgreementPeriod is one of the fixed validity windows offered at checkout.
type AgreementPeriod string

const (
	PeriodThreeMonths AgreementPeriod = "3_months"
	PeriodSixMonths   AgreementPeriod = "6_months"
	PeriodOneYear     AgreementPeriod = "1_year"
	PeriodTwoYears    AgreementPeriod = "2_years"
)

func (p AgreementPeriod) Valid() bool {
	switch p {
	case PeriodThreeMonths, PeriodSixMonths, PeriodOneYear, PeriodTwoYears:
		return true
	}
	return false
}

// Months returns the window length used to derive ends_at.
func (p AgreementPeriod) Months() int {
	switch p {
	case PeriodThreeMonths:
		return 3
	case PeriodSixMonths:
		return 6
	case PeriodOneYear:
		return 12
	case PeriodTwoYears:
		return 24
	}
	return 0
}

func (p AgreementPeriod) Label() string {
	switch p {
	case PeriodThreeMonths:
		return "3 Months"
	case PeriodSixMonths:
		return "6 Months"
	case PeriodOneYear:
		return "1 Year"
	case PeriodTwoYears:
		return "2 Years"
	}
	return string(p)
}

// EndsAt derives the agreement expiry from a start time.
func (p AgreementPeriod) EndsAt(from time.Time) (time.Time, error) {
	if !p.Valid() {
		return time.Time{}, fmt.Errorf("%w: unknown agreement period %q", ErrValidation, p)
	}
	return from.AddDate(0, p.Months(), 0), nil
}

// Agreement binds a customer to a validity window and an opaque client
// token, allowing repeat orders without re-entering customer data.
type Agreement struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	EndsAt      time.Time    `json:"ends_at"`
	CustomerID  string       `json:"-"`
	Customer    *Customer    `json:"customer,omitempty"`
	LegalEntity *LegalEntity `json:"legalEntity,omitempty"`
	ClientToken string       `json:"clientToken"`
	IsActive    bool         `json:"isActive"`
}

// ActiveAt reports whether the agreement is usable at the given instant:
// not deactivated and still inside its validity window.
func (a *Agreement) ActiveAt(now time.Time) bool {
	return a.IsActive && now.Before(a.EndsAt)
}
