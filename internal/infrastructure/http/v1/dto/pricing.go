package dto

import (
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/pricing"
)

// PricingQuoteRequest prices a set of lines without persisting anything.
type PricingQuoteRequest struct {
	Currency string              `json:"currency" binding:"required,len=3"`
	Lines    []pricing.LineInput `json:"lines" binding:"required,min=1"`

	// TaxPercent applies to lines that carry no rate of their own.
	TaxPercent types.Money `json:"taxPercent"`
}

// PricingQuoteResponse holds per-line amounts and document totals.
type PricingQuoteResponse struct {
	Currency string                 `json:"currency"`
	Scale    int32                  `json:"scale"`
	Lines    []pricing.LineAmounts  `json:"lines"`
	Totals   pricing.DocumentTotals `json:"totals"`
}

// Quote computes the response for r.
func (r *PricingQuoteRequest) Quote() PricingQuoteResponse {
	calc := pricing.NewCalculator(r.Currency)

	lines := make([]pricing.LineAmounts, len(r.Lines))
	for i, in := range r.Lines {
		if in.TaxPercent.IsZero() {
			in.TaxPercent = r.TaxPercent
		}
		lines[i] = calc.Compute(in)
	}

	return PricingQuoteResponse{
		Currency: r.Currency,
		Scale:    calc.Scale(),
		Lines:    lines,
		Totals:   calc.Aggregate(lines),
	}
}
