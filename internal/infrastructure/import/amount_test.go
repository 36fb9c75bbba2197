package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		mark DecimalMark
		want string
	}{
		{"1.234,56", DecimalComma, "1234.56"},
		{"-1.234,56", DecimalComma, "-1234.56"},
		{"1234,56", DecimalComma, "1234.56"},
		{"1,234.56", DecimalComma, "1234.56"},
		{"1234.56", DecimalComma, "1234.56"},
		{"+12,00", DecimalComma, "12"},
		{"12,00-", DecimalComma, "-12"},
		{"(12,00)", DecimalComma, "-12"},
		{"-1.234,56 €", DecimalComma, "-1234.56"},
		{"1 234,56 EUR", DecimalComma, "1234.56"},
		{"1 234,56", DecimalComma, "1234.56"},
		{"1.234", DecimalComma, "1234"},
		{"1.234.567", DecimalComma, "1234567"},
		{"0,5", DecimalComma, "0.5"},
		{"−7,10", DecimalComma, "-7.1"},
		{"12,50 S", DecimalComma, "-12.5"},
		{"12,50 H", DecimalComma, "12.5"},
		{"-45.99", DecimalPoint, "-45.99"},
		{"1.234", DecimalPoint, "1.234"},
		{"1,234", DecimalPoint, "1234"},
		{"12,5", DecimalPoint, "12.5"},
		{"1,234.56", DecimalPoint, "1234.56"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in, tt.mark)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "12,34,56", "1.2.3", "€", "-", "1.23.456,00", "12a"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAmount(in, DecimalComma)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}
