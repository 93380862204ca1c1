// Package pricing computes checkout totals. All amounts are minor currency units.
package pricing

import (
	"errors"
	"math"

	"github.com/fjod/acp-checkout/domain"
	"github.com/shopspring/decimal"
)

const (
	StandardShipping int64 = 599
	ExpressShipping  int64 = 1499
)

// TaxRate is the flat sales tax applied to the subtotal.
var TaxRate = decimal.RequireFromString("0.08")

var ErrAmountOverflow = errors.New("checkout amount exceeds the representable range")

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// ShippingOptions is the fixed list offered on create_checkout.
func ShippingOptions() []domain.ShippingOptionQuote {
	return []domain.ShippingOptionQuote{
		{ID: domain.ShippingStandard, Label: "Standard (5-7 days)", Amount: StandardShipping},
		{ID: domain.ShippingExpress, Label: "Express (2-3 days)", Amount: ExpressShipping},
	}
}

// ShippingAmount returns the tariff for option; anything but express is standard.
func ShippingAmount(option domain.ShippingOption) int64 {
	if option == domain.ShippingExpress {
		return ExpressShipping
	}
	return StandardShipping
}

// Tax rounds subtotal*TaxRate half up.
func Tax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(TaxRate).Round(0).IntPart()
}

// Calculate derives every total from the items and the shipping option only.
// Sums are taken in decimal so a total that does not fit in int64 is reported
// as ErrAmountOverflow instead of wrapping around.
func Calculate(items []domain.CheckoutItem, option domain.ShippingOption) (domain.Totals, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromInt(item.UnitPrice).Mul(decimal.NewFromInt(item.Quantity)))
	}
	shipping := ShippingAmount(option)
	tax := subtotal.Mul(TaxRate).Round(0)
	total := subtotal.Add(tax).Add(decimal.NewFromInt(shipping))
	if total.GreaterThan(maxAmount) || subtotal.IsNegative() {
		return domain.Totals{}, ErrAmountOverflow
	}
	return domain.Totals{
		Subtotal:       subtotal.IntPart(),
		ShippingAmount: shipping,
		TaxAmount:      tax.IntPart(),
		Total:          total.IntPart(),
	}, nil
}
