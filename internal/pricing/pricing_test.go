package pricing

import (
	"math"
	"testing"

	"github.com/fjod/acp-checkout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCalculate(t *testing.T, items []domain.CheckoutItem, option domain.ShippingOption) domain.Totals {
	t.Helper()
	totals, err := Calculate(items, option)
	require.NoError(t, err)
	return totals
}

func TestCalculate_SingleItemStandard(t *testing.T) {
	items := []domain.CheckoutItem{{SKU: "ABC", Quantity: 2, UnitPrice: 1000}}

	totals := mustCalculate(t, items, "")

	assert.Equal(t, int64(2000), totals.Subtotal)
	assert.Equal(t, int64(599), totals.ShippingAmount)
	assert.Equal(t, int64(160), totals.TaxAmount)
	assert.Equal(t, int64(2759), totals.Total)
}

func TestCalculate_Express(t *testing.T) {
	items := []domain.CheckoutItem{{SKU: "ABC", Quantity: 2, UnitPrice: 1000}}

	standard := mustCalculate(t, items, domain.ShippingStandard)
	express := mustCalculate(t, items, domain.ShippingExpress)

	assert.Equal(t, int64(1499), express.ShippingAmount)
	assert.Equal(t, int64(900), express.Total-standard.Total)
}

func TestCalculate_TotalIsSumOfParts(t *testing.T) {
	items := []domain.CheckoutItem{
		{SKU: "A", Quantity: 3, UnitPrice: 333},
		{SKU: "B", Quantity: 1, UnitPrice: 1999},
		{ProductID: "p-9", Quantity: 7, UnitPrice: 45},
	}

	totals := mustCalculate(t, items, domain.ShippingExpress)

	assert.Equal(t, totals.Subtotal+totals.ShippingAmount+totals.TaxAmount, totals.Total)
}

func TestCalculate_Deterministic(t *testing.T) {
	items := []domain.CheckoutItem{{SKU: "A", Quantity: 3, UnitPrice: 1234}}

	first := mustCalculate(t, items, domain.ShippingExpress)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, mustCalculate(t, items, domain.ShippingExpress))
	}
}

func TestCalculate_EmptyItems(t *testing.T) {
	totals := mustCalculate(t, nil, domain.ShippingStandard)

	assert.Equal(t, int64(0), totals.Subtotal)
	assert.Equal(t, int64(0), totals.TaxAmount)
	assert.Equal(t, int64(599), totals.Total)
}

func TestTax_RoundHalfUp(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		want     int64
	}{
		{name: "exact", subtotal: 2000, want: 160},
		{name: "below half", subtotal: 6, want: 0},
		{name: "above half", subtotal: 7, want: 1},
		{name: "large below half", subtotal: 1256, want: 100},
		{name: "large above half", subtotal: 1257, want: 101},
		{name: "zero", subtotal: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tax(tt.subtotal))
		})
	}
}

func TestShippingAmount_UnknownFallsBackToStandard(t *testing.T) {
	assert.Equal(t, StandardShipping, ShippingAmount("overnight"))
}

func TestCalculate_OverflowIsRejected(t *testing.T) {
	tests := []struct {
		name  string
		items []domain.CheckoutItem
	}{
		{"line overflows", []domain.CheckoutItem{{SKU: "BIG", Quantity: 9223372036854775, UnitPrice: 1000}}},
		{"sum overflows", []domain.CheckoutItem{
			{SKU: "A", Quantity: 1, UnitPrice: math.MaxInt64 / 2},
			{SKU: "B", Quantity: 1, UnitPrice: math.MaxInt64 / 2},
		}},
		{"tax pushes total over", []domain.CheckoutItem{{SKU: "A", Quantity: 1, UnitPrice: math.MaxInt64 - 1000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.items, domain.ShippingStandard)
			assert.ErrorIs(t, err, ErrAmountOverflow)
		})
	}
}

func TestCalculate_LargeButRepresentable(t *testing.T) {
	totals := mustCalculate(t, []domain.CheckoutItem{{SKU: "A", Quantity: 10000, UnitPrice: 1_000_000_00}}, domain.ShippingExpress)

	assert.Equal(t, int64(1_000_000_000_000), totals.Subtotal)
	assert.Equal(t, int64(80_000_000_000), totals.TaxAmount)
	assert.Equal(t, totals.Subtotal+totals.ShippingAmount+totals.TaxAmount, totals.Total)
}
