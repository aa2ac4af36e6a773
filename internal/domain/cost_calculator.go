package domain

import (
	"github.com/shopspring/decimal"
)

// tokensPerUnitExp is the power of ten prices are quoted per (1,000,000 tokens).
const tokensPerUnitExp = 6

// displayPlaces is the number of fractional digits shown for a cost.
const displayPlaces = 6

// EstimateCost prices token counts at a rate entry:
// inputTokens/1e6 * InputPer1M + outputTokens/1e6 * OutputPer1M.
// The per-million division is a decimal shift, so the result is exact.
// Token counts must be non-negative.
func EstimateCost(rate RateEntry, inputTokens, outputTokens int) decimal.Decimal {
	in := decimal.NewFromInt(int64(inputTokens)).Shift(-tokensPerUnitExp).Mul(rate.InputPer1M)
	out := decimal.NewFromInt(int64(outputTokens)).Shift(-tokensPerUnitExp).Mul(rate.OutputPer1M)
	return in.Add(out)
}

// FormatCost renders a cost for display. Rounding happens here and nowhere else.
func FormatCost(cost decimal.Decimal, currency string) string {
	return cost.StringFixed(displayPlaces) + " " + currency
}

// CostCalculator prices usage through the pricing catalog.
type CostCalculator struct {
	catalog *PricingCatalog
}

// NewCostCalculator creates a new cost calculator.
func NewCostCalculator(catalog *PricingCatalog) *CostCalculator {
	return &CostCalculator{
		catalog: catalog,
	}
}

// Rate resolves a model to the rate that would be captured on a usage record.
func (c *CostCalculator) Rate(model string) (AppliedRate, error) {
	snapshot, err := c.catalog.Load()
	if err != nil {
		return AppliedRate{}, err
	}

	rate, err := snapshot.Resolve(model)
	if err != nil {
		return AppliedRate{}, err
	}

	return NewAppliedRate(snapshot, rate), nil
}

// Estimate resolves a model and prices the given token counts.
func (c *CostCalculator) Estimate(model string, inputTokens, outputTokens int) (AppliedRate, decimal.Decimal, error) {
	applied, err := c.Rate(model)
	if err != nil {
		return AppliedRate{}, decimal.Zero, err
	}
	return applied, applied.Cost(inputTokens, outputTokens), nil
}
