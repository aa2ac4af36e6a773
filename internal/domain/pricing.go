package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// SupportedPricingSchema is the only schema_version the catalog accepts.
	SupportedPricingSchema = 1

	// PricingCurrency is the currency every snapshot must be priced in.
	PricingCurrency = "USD"

	// PricingUnit is the unit label every snapshot must use.
	PricingUnit = "per_1m_tokens"
)

var (
	// ErrResourceMissing indicates the pricing resource could not be found.
	ErrResourceMissing = errors.New("pricing resource missing")

	// ErrDecodeFailed indicates the pricing resource is not a valid snapshot document.
	ErrDecodeFailed = errors.New("pricing decode failed")

	// ErrUnsupportedSchema indicates a schema_version other than SupportedPricingSchema.
	ErrUnsupportedSchema = errors.New("unsupported pricing schema_version")

	// ErrInvalidSnapshot indicates a decodable snapshot that violates catalog rules.
	ErrInvalidSnapshot = errors.New("invalid pricing snapshot")

	// ErrModelNotFound indicates no rate entry matches a model name.
	ErrModelNotFound = errors.New("model not found in pricing snapshot")
)

// PricingSource returns the raw pricing resource.
// Implementations return an error wrapping ErrResourceMissing when the resource does not exist.
type PricingSource func() ([]byte, error)

// RateEntry is the price row for one model family.
type RateEntry struct {
	ID               string           `json:"id"`
	Aliases          []string         `json:"aliases"`
	InputPer1M       decimal.Decimal  `json:"input_per_1m_tokens"`
	CachedInputPer1M *decimal.Decimal `json:"cached_input_per_1m_tokens,omitempty"`
	OutputPer1M      decimal.Decimal  `json:"output_per_1m_tokens"`
}

// PricingSnapshot is a validated, versioned rate table.
type PricingSnapshot struct {
	SchemaVersion int         `json:"schema_version"`
	PricingID     string      `json:"pricing_id"`
	EffectiveDate string      `json:"effective_date"`
	Currency      string      `json:"currency"`
	Unit          string      `json:"unit"`
	Source        string      `json:"source"`
	Models        []RateEntry `json:"models"`
}

// AppliedRate is the rate captured on a usage record when it is created.
// It is stored with the record and never re-resolved.
type AppliedRate struct {
	PricingID string    `json:"pricing_id"`
	Currency  string    `json:"currency"`
	Unit      string    `json:"unit"`
	Rate      RateEntry `json:"rate"`
}

// Cost prices the given token counts at the captured rate.
func (a AppliedRate) Cost(inputTokens, outputTokens int) decimal.Decimal {
	return EstimateCost(a.Rate, inputTokens, outputTokens)
}

// NewAppliedRate captures a rate entry together with the identity of its snapshot.
func NewAppliedRate(snapshot *PricingSnapshot, rate RateEntry) AppliedRate {
	return AppliedRate{
		PricingID: snapshot.PricingID,
		Currency:  snapshot.Currency,
		Unit:      snapshot.Unit,
		Rate:      rate,
	}
}
