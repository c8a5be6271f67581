package pricing

import (
	"github.com/shopspring/decimal"

	"tradeflow/internal/core/types"
)

// DocumentTotals are the header amounts of a document.
type DocumentTotals struct {
	GrossSubtotal  types.Money `db:"gross_subtotal" json:"grossSubtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`
}

// Aggregate sums each field independently and rounds per field.
// Totals are not re-derived from each other.
func Aggregate(lines []LineAmounts, scale int32) DocumentTotals {
	gross, discount, net, tax, total := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		gross = gross.Add(l.GrossAmount)
		discount = discount.Add(l.DiscountAmount)
		net = net.Add(l.NetAmount)
		tax = tax.Add(l.TaxAmount)
		total = total.Add(l.TotalAmount)
	}

	return DocumentTotals{
		GrossSubtotal:  types.Round(gross, scale),
		DiscountAmount: types.Round(discount, scale),
		Subtotal:       types.Round(net, scale),
		TaxAmount:      types.Round(tax, scale),
		TotalAmount:    types.Round(total, scale),
	}
}

// Aggregate sums lines at the calculator's scale.
func (c Calculator) Aggregate(lines []LineAmounts) DocumentTotals {
	return Aggregate(lines, c.Scale())
}
