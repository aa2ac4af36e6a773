package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// PricingCatalog loads a pricing snapshot once and resolves model names against it.
type PricingCatalog struct {
	source PricingSource

	mu       sync.Mutex
	snapshot *PricingSnapshot
}

// NewPricingCatalog creates a catalog backed by the given resource.
func NewPricingCatalog(source PricingSource) *PricingCatalog {
	return &PricingCatalog{
		source: source,
	}
}

// Load returns the validated snapshot, reading the resource on first use only.
// A failed load is not cached, so a later call reads the resource again.
func (c *PricingCatalog) Load() (*PricingSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil {
		return c.snapshot, nil
	}

	if c.source == nil {
		return nil, fmt.Errorf("%w: no pricing source configured", ErrResourceMissing)
	}

	data, err := c.source()
	if err != nil {
		if errors.Is(err, ErrResourceMissing) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	snapshot, err := ParsePricingSnapshot(data)
	if err != nil {
		return nil, err
	}

	c.snapshot = snapshot
	return snapshot, nil
}

// Resolve finds the rate entry for a model name.
func (c *PricingCatalog) Resolve(model string) (RateEntry, error) {
	snapshot, err := c.Load()
	if err != nil {
		return RateEntry{}, err
	}
	return snapshot.Resolve(model)
}

// Resolve matches a model name against the snapshot entries, in list order:
// first by exact ID or alias, then with a trailing -YYYY-MM-DD release date
// removed from both sides. Matching is case-sensitive and never falls back
// to a default rate.
func (s *PricingSnapshot) Resolve(model string) (RateEntry, error) {
	for _, entry := range s.Models {
		if entry.ID == model || slices.Contains(entry.Aliases, model) {
			return entry, nil
		}
	}

	normalized := StripDateSuffix(model)
	for _, entry := range s.Models {
		if StripDateSuffix(entry.ID) == normalized {
			return entry, nil
		}
		for _, alias := range entry.Aliases {
			if StripDateSuffix(alias) == normalized {
				return entry, nil
			}
		}
	}

	return RateEntry{}, fmt.Errorf("%w: %s", ErrModelNotFound, model)
}

// StripDateSuffix removes a trailing "-YYYY-MM-DD" from a model name.
// Empty segments are ignored, so repeated or leading hyphens collapse.
// Names with fewer than four non-empty segments are returned unchanged.
func StripDateSuffix(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' })
	if len(parts) < 4 {
		return name
	}

	n := len(parts)
	if isASCIIDigits(parts[n-3], 4) && isASCIIDigits(parts[n-2], 2) && isASCIIDigits(parts[n-1], 2) {
		return strings.Join(parts[:n-3], "-")
	}
	return name
}

func isASCIIDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// snapshotDocument mirrors the resource layout; pointer fields detect missing keys.
type snapshotDocument struct {
	SchemaVersion *int             `json:"schema_version"`
	PricingID     string           `json:"pricing_id"`
	EffectiveDate string           `json:"effective_date"`
	Currency      *string          `json:"currency"`
	Unit          *string          `json:"unit"`
	Source        string           `json:"source"`
	Models        *[]rateEntryWire `json:"models"`
}

type rateEntryWire struct {
	ID               *string          `json:"id"`
	Aliases          []string         `json:"aliases"`
	InputPer1M       *decimal.Decimal `json:"input_per_1m_tokens"`
	CachedInputPer1M *decimal.Decimal `json:"cached_input_per_1m_tokens"`
	OutputPer1M      *decimal.Decimal `json:"output_per_1m_tokens"`
}

// ParsePricingSnapshot decodes and validates a pricing resource.
// Checks run in order and the first failure wins: decoding, schema version,
// currency, unit, then catalog rules (unique IDs, non-negative prices).
func ParsePricingSnapshot(data []byte) (*PricingSnapshot, error) {
	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	if snapshot.SchemaVersion != SupportedPricingSchema {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, snapshot.SchemaVersion)
	}

	if !strings.EqualFold(snapshot.Currency, PricingCurrency) {
		return nil, fmt.Errorf("%w: currency must be %s, got %q", ErrInvalidSnapshot, PricingCurrency, snapshot.Currency)
	}
	snapshot.Currency = PricingCurrency

	if snapshot.Unit != PricingUnit {
		return nil, fmt.Errorf("%w: unit must be %s, got %q", ErrInvalidSnapshot, PricingUnit, snapshot.Unit)
	}

	seen := make(map[string]struct{}, len(snapshot.Models))
	for _, entry := range snapshot.Models {
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate model id %q", ErrInvalidSnapshot, entry.ID)
		}
		seen[entry.ID] = struct{}{}

		if entry.InputPer1M.IsNegative() || entry.OutputPer1M.IsNegative() ||
			(entry.CachedInputPer1M != nil && entry.CachedInputPer1M.IsNegative()) {
			return nil, fmt.Errorf("%w: negative price for model %q", ErrInvalidSnapshot, entry.ID)
		}
	}

	return snapshot, nil
}

func decodeSnapshot(data []byte) (*PricingSnapshot, error) {
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	switch {
	case doc.SchemaVersion == nil:
		return nil, fmt.Errorf("%w: missing schema_version", ErrDecodeFailed)
	case doc.Currency == nil:
		return nil, fmt.Errorf("%w: missing currency", ErrDecodeFailed)
	case doc.Unit == nil:
		return nil, fmt.Errorf("%w: missing unit", ErrDecodeFailed)
	case doc.Models == nil:
		return nil, fmt.Errorf("%w: missing models", ErrDecodeFailed)
	}

	models := make([]RateEntry, 0, len(*doc.Models))
	for i, wire := range *doc.Models {
		if wire.ID == nil || wire.InputPer1M == nil || wire.OutputPer1M == nil {
			return nil, fmt.Errorf("%w: models[%d] requires id, input_per_1m_tokens and output_per_1m_tokens",
				ErrDecodeFailed, i)
		}

		aliases := wire.Aliases
		if aliases == nil {
			aliases = []string{}
		}

		models = append(models, RateEntry{
			ID:               *wire.ID,
			Aliases:          aliases,
			InputPer1M:       *wire.InputPer1M,
			CachedInputPer1M: wire.CachedInputPer1M,
			OutputPer1M:      *wire.OutputPer1M,
		})
	}

	return &PricingSnapshot{
		SchemaVersion: *doc.SchemaVersion,
		PricingID:     doc.PricingID,
		EffectiveDate: doc.EffectiveDate,
		Currency:      *doc.Currency,
		Unit:          *doc.Unit,
		Source:        doc.Source,
		Models:        models,
	}, nil
}
