package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		name   string
		amount Amount
		want   string
	}{
		{"whole units", Amount(50000), "500.00"},
		{"with kobo", Amount(50075), "500.75"},
		{"single digit kobo", Amount(5), "0.05"},
		{"zero", Amount(0), "0.00"},
		{"negative", Amount(-1250), "-12.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.amount.FormatDecimal())
		})
	}
}

func TestParseDecimal(t *testing.T) {
	t.Run("round trips FormatDecimal", func(t *testing.T) {
		for _, a := range []Amount{0, 5, 99, 100, 50000, -1250} {
			got, err := ParseDecimal(a.FormatDecimal())
			require.NoError(t, err)
			assert.Equal(t, a, got)
		}
	})

	t.Run("rejects wrong fractional width", func(t *testing.T) {
		for _, s := range []string{"500", "500.0", "500.000", "", ".", "500."} {
			_, err := ParseDecimal(s)
			assert.Error(t, err, "input %q", s)
		}
	})

	t.Run("rejects non-numeric input", func(t *testing.T) {
		_, err := ParseDecimal("abc.00")
		assert.Error(t, err)
	})
}

func TestSplitInstallment(t *testing.T) {
	t.Run("rounds each installment up to a whole major unit", func(t *testing.T) {
		// 500.00 over 3 installments -> 166.6̅ -> 167.00 each.
		assert.Equal(t, Amount(16700), Amount(50000).SplitInstallment(3))
	})

	t.Run("exact division stays exact", func(t *testing.T) {
		assert.Equal(t, Amount(10000), Amount(30000).SplitInstallment(3))
	})

	t.Run("non-positive n returns the amount unchanged", func(t *testing.T) {
		assert.Equal(t, Amount(500), Amount(500).SplitInstallment(0))
	})
}
