package domain

import (
	"fmt"
	"regexp"
	"time"
)

var phoneRe = regexp.MustCompile(`^[0-9]{10}$`)

type Customer struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	Street        string    `json:"street"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Zip           string    `json:"zip"`
	Phone         string    `json:"phone"`
}

func (c *Customer) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if c.Street == "" || c.City == "" || c.State == "" || c.Zip == "" {
		return fmt.Errorf("%w: customer address is incomplete", ErrValidation)
	}
	if !phoneRe.MatchString(c.Phone) {
		return fmt.Errorf("%w: phone number must be 10 digits", ErrValidation)
	}
	return nil
}

// Address groups the legal-entity address fields.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// BankAccount identifies the account a legal entity pays from.
type BankAccount struct {
	Name string `json:"name,omitempty"`
	IBAN string `json:"iban,omitempty"`
}

// LegalEntity is the optional business identity attached to an agreement.
type LegalEntity struct {
	Name               string      `json:"name"`
	RegistrationNumber string      `json:"registrationNumber,omitempty"`
	DirectorName       string      `json:"directorName,omitempty"`
	LegalAddress       Address     `json:"legalAddress,omitempty"`
	BankAccount        BankAccount `json:"bankAccount,omitempty"`
}

func (e *LegalEntity) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: legal entity name is required", ErrValidation)
	}
	if e.RegistrationNumber == "" {
		return fmt.Errorf("%w: legal entity registration number is required", ErrValidation)
	}
	return nil
}
