// Package pricing computes line and document monetary totals.
//
// Rounding is applied per line, then per document field, at the currency scale
// (2 decimals, 3 for BHD/KWD/OMR).
package pricing

import (
	"github.com/shopspring/decimal"

	"tradeflow/internal/core/types"
)

var (
	hundred        = decimal.NewFromInt(100)
	maxDiscountPct = decimal.RequireFromString("0.999")
	minNetAmount   = decimal.RequireFromString("0.01")
)

// LineInput holds the raw values of a document line.
type LineInput struct {
	Quantity        types.Money `json:"quantity"`
	UnitPrice       types.Money `json:"unitPrice"`
	DiscountPercent types.Money `json:"discountPercent"`
	// DiscountAmount wins over DiscountPercent when positive.
	DiscountAmount types.Money `json:"discountAmount"`
	TaxPercent     types.Money `json:"taxPercent"`
}

// LineAmounts are the computed amounts of one line.
type LineAmounts struct {
	GrossAmount    types.Money `db:"gross_amount" json:"grossAmount"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	NetAmount      types.Money `db:"net_amount" json:"netAmount"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`
}

// Calculator computes line amounts at a fixed rounding scale.
type Calculator struct {
	scale int32
}

// NewCalculator returns a calculator for the given currency.
func NewCalculator(currency string) Calculator {
	return Calculator{scale: types.ScaleFor(currency)}
}

// Scale returns the rounding scale.
func (c Calculator) Scale() int32 {
	if c.scale == 0 {
		return types.DefaultScale
	}
	return c.scale
}

// Compute calculates gross, discount, net, tax and total for one line.
//
// Negative inputs are treated as zero. The discount percent is bounded to
// [0, 100]; the tax percent has no upper bound.
// The discount never exceeds 99.9% of gross and net never drops below 0.01.
func (c Calculator) Compute(in LineInput) LineAmounts {
	scale := c.Scale()

	qty := types.NonNegative(in.Quantity)
	price := types.NonNegative(in.UnitPrice)
	discountPct := types.Clamp(in.DiscountPercent, decimal.Zero, hundred)
	taxPct := types.NonNegative(in.TaxPercent)
	explicit := types.NonNegative(in.DiscountAmount)

	gross := types.Round(qty.Mul(price), scale)

	discount := explicit
	if !explicit.IsPositive() {
		discount = types.Round(gross.Mul(discountPct).Div(hundred), scale)
	}
	discount = decimal.Min(discount, MaxDiscount(gross, scale))

	net := decimal.Max(minNetAmount, types.Round(gross.Sub(discount), scale))
	tax := types.Round(net.Mul(taxPct).Div(hundred), scale)
	total := types.Round(net.Add(tax), scale)

	return LineAmounts{
		GrossAmount:    gross,
		DiscountAmount: discount,
		NetAmount:      net,
		TaxAmount:      tax,
		TotalAmount:    total,
	}
}

// MaxDiscount is 99.9% of gross, truncated so that rounding never pushes the
// discount above the cap.
func MaxDiscount(gross types.Money, scale int32) types.Money {
	return gross.Mul(maxDiscountPct).RoundFloor(scale)
}
