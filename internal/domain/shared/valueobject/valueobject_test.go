package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")
		assert.Error(t, err)
	})

	t.Run("refuses mixed currency arithmetic", func(t *testing.T) {
		a := EURO(decimal.NewFromInt(10))
		b, err := NewMoney(decimal.NewFromInt(5), USD)
		require.NoError(t, err)
		_, err = a.Add(b)
		assert.Error(t, err)
		_, err = a.Subtract(b)
		assert.Error(t, err)
	})

	t.Run("rounds half away from zero to cents", func(t *testing.T) {
		m := EURO(decimal.RequireFromString("2.345"))
		assert.Equal(t, "2.35", m.Rounded().Amount().StringFixed(2))
		assert.Equal(t, int64(235), m.Cents())
		assert.Equal(t, int64(-235), m.Negate().Cents())
	})

	t.Run("builds from cents", func(t *testing.T) {
		assert.Equal(t, "12.34", EUROFromCents(1234).Amount().StringFixed(2))
	})

	t.Run("json round trip keeps two decimals", func(t *testing.T) {
		data, err := json.Marshal(EURO(decimal.RequireFromString("19.9")))
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"19.90","currency":"EUR"}`, string(data))

		var m Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount":"5.5"}`), &m))
		assert.Equal(t, EUR, m.Currency())
	})
}

func TestFormatGerman(t *testing.T) {
	cases := map[string]string{
		"0":          "0,00",
		"1234.5":     "1.234,50",
		"-1234567.8": "-1.234.567,80",
		"999.999":    "1.000,00",
		"12":         "12,00",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, FormatGerman(decimal.RequireFromString(in)))
		})
	}
	assert.Equal(t, "1.234,50 €", EURO(decimal.RequireFromString("1234.5")).German())
}

func TestVATRate(t *testing.T) {
	t.Run("accepts only German rates", func(t *testing.T) {
		for _, p := range []int{0, 7, 19} {
			_, err := ParseVATRate(p)
			assert.NoError(t, err)
		}
		_, err := ParseVATRate(16)
		assert.Error(t, err)
	})

	t.Run("tax on net", func(t *testing.T) {
		assert.Equal(t, "19.00", VATStandard.TaxOnNet(decimal.NewFromInt(100)).StringFixed(2))
		assert.Equal(t, "0.70", VATReduced.TaxOnNet(decimal.NewFromInt(10)).StringFixed(2))
	})

	t.Run("split keeps net plus tax equal to gross", func(t *testing.T) {
		for _, g := range []string{"119.00", "10.00", "0.01", "33.33", "1000.99"} {
			gross := decimal.RequireFromString(g)
			for _, r := range []VATRate{VATZero, VATReduced, VATStandard} {
				net, tax := r.Split(gross)
				assert.True(t, net.Add(tax).Equal(gross), "%s at %s", g, r)
			}
		}
		net, tax := VATStandard.Split(decimal.RequireFromString("119.00"))
		assert.Equal(t, "100.00", net.StringFixed(2))
		assert.Equal(t, "19.00", tax.StringFixed(2))
	})
}

func TestParseIBAN(t *testing.T) {
	t.Run("valid German IBAN with spaces", func(t *testing.T) {
		iban, err := ParseIBAN("de89 3704 0044 0532 0130 00")
		require.NoError(t, err)
		assert.Equal(t, IBAN("DE89370400440532013000"), iban)
		assert.Equal(t, "DE89 3704 0044 0532 0130 00", iban.Formatted())
		assert.Equal(t, "DE", iban.Country())
	})

	t.Run("checksum failure", func(t *testing.T) {
		_, err := ParseIBAN("DE88370400440532013000")
		assert.ErrorIs(t, err, ErrInvalidIBAN)
	})

	t.Run("wrong length for country", func(t *testing.T) {
		_, err := ParseIBAN("DE8937040044053201300")
		assert.ErrorIs(t, err, ErrInvalidIBAN)
	})

	t.Run("invalid characters", func(t *testing.T) {
		_, err := ParseIBAN("DE89-3704-0044-0532-0130-00")
		assert.ErrorIs(t, err, ErrInvalidIBAN)
	})
}

func TestNewAddress(t *testing.T) {
	a, err := NewAddress(" Hauptstr. 1 ", "10115", "Berlin", "")
	require.NoError(t, err)
	assert.Equal(t, "DE", a.Country)
	assert.Equal(t, []string{"Hauptstr. 1", "10115 Berlin"}, a.Lines())

	_, err = NewAddress("Hauptstr. 1", "1011", "Berlin", "de")
	assert.Error(t, err)

	a, err = NewAddress("Bahnhofstr. 2", "8001", "Zürich", "ch")
	require.NoError(t, err)
	assert.Equal(t, "Bahnhofstr. 2, 8001 Zürich, CH", a.String())
	assert.True(t, Address{}.IsEmpty())
}
