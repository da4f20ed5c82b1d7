package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NickolasKemp/ordify/internal/domain"
)

func validCard() domain.CardDetails {
	return domain.CardDetails{
		CardNumber: "4242424242424242",
		ExpMonth:   "09",
		ExpYear:    "28",
		CVC:        "123",
	}
}

func TestCardValidate(t *testing.T) {
	assert.NoError(t, validCard().Validate())

	tests := []struct {
		name   string
		mutate func(*domain.CardDetails)
	}{
		{"too short", func(c *domain.CardDetails) { c.CardNumber = "123456789012" }},
		{"too long", func(c *domain.CardDetails) { c.CardNumber = "12345678901234567890" }},
		{"letters in number", func(c *domain.CardDetails) { c.CardNumber = "4242abcd42424242" }},
		{"month zero", func(c *domain.CardDetails) { c.ExpMonth = "00" }},
		{"month thirteen", func(c *domain.CardDetails) { c.ExpMonth = "13" }},
		{"single digit month", func(c *domain.CardDetails) { c.ExpMonth = "9" }},
		{"four digit year", func(c *domain.CardDetails) { c.ExpYear = "2028" }},
		{"cvc too short", func(c *domain.CardDetails) { c.CVC = "12" }},
		{"cvc too long", func(c *domain.CardDetails) { c.CVC = "12345" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard()
			tt.mutate(&card)
			assert.ErrorIs(t, card.Validate(), domain.ErrValidation)
		})
	}
}

func TestCardSpacesIgnored(t *testing.T) {
	card := validCard()
	card.CardNumber = "4242 4242 4242 4242"
	assert.NoError(t, card.Validate())
	assert.Equal(t, "4242424242424242", card.Normalized())
}

func TestCardFourDigitCVC(t *testing.T) {
	card := validCard()
	card.CVC = "1234"
	assert.NoError(t, card.Validate())
}
