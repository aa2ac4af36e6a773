package domain

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerSchemaVersion is the version written with every persisted ledger.
const LedgerSchemaVersion = 1

var (
	// ErrLedgerNotFound indicates that no ledger has been persisted yet.
	ErrLedgerNotFound = errors.New("usage ledger not found")
	// ErrLedgerCorrupt indicates that the persisted ledger cannot be decoded.
	ErrLedgerCorrupt = errors.New("usage ledger corrupt")
)

// UsageRecord is one completed transformation. It is never mutated after creation.
type UsageRecord struct {
	ID           uuid.UUID   `json:"id"`
	Date         time.Time   `json:"date"`
	TemplateID   *uuid.UUID  `json:"prompt_template_id,omitempty"`
	Model        string      `json:"model"`
	Mode         DraftMode   `json:"mode"`
	InputTokens  int         `json:"input_tokens"`
	OutputTokens int         `json:"output_tokens"`
	Pricing      AppliedRate `json:"pricing"`
}

// Cost prices the record at the rate captured when it was created.
func (r UsageRecord) Cost() decimal.Decimal {
	return r.Pricing.Cost(r.InputTokens, r.OutputTokens)
}

// LedgerTotals are the aggregates derived from the ledger entries.
type LedgerTotals struct {
	InputTokens  int             `json:"total_input_tokens"`
	OutputTokens int             `json:"total_output_tokens"`
	Cost         decimal.Decimal `json:"total_cost"`
	Currency     string          `json:"currency"`
	Entries      int             `json:"entries"`
}

// LedgerDocument is the persisted form of the ledger.
// Its totals are written for readers of the file; loading ignores them and
// recomputes from the entries.
type LedgerDocument struct {
	Entries           []UsageRecord   `json:"entries"`
	TotalInputTokens  int             `json:"total_input_tokens"`
	TotalOutputTokens int             `json:"total_output_tokens"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	Currency          string          `json:"currency"`
	SchemaVersion     int             `json:"schema_version"`
}

// UsageLedger is the append-only sequence of usage records with cached totals.
// The totals are always recomputed from the full sequence and are never an
// independent source of truth.
type UsageLedger struct {
	mu              sync.Mutex
	entries         []UsageRecord
	totals          LedgerTotals
	defaultCurrency string
}

// NewUsageLedger creates an empty ledger in the default currency.
func NewUsageLedger() *UsageLedger {
	return NewUsageLedgerFromEntries(nil)
}

// NewUsageLedgerFromEntries rebuilds a ledger from persisted entries.
func NewUsageLedgerFromEntries(entries []UsageRecord) *UsageLedger {
	l := &UsageLedger{
		entries:         slices.Clone(entries),
		defaultCurrency: PricingCurrency,
	}
	l.RebuildTotals()
	return l
}

// Append adds a record and recomputes the totals.
func (l *UsageLedger) Append(record UsageRecord) LedgerTotals {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, record)
	return l.rebuildLocked()
}

// RebuildTotals recomputes the totals from the entries. It is idempotent.
func (l *UsageLedger) RebuildTotals() LedgerTotals {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rebuildLocked()
}

// Reset drops every entry. There is no undo.
func (l *UsageLedger) Reset() LedgerTotals {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	return l.rebuildLocked()
}

// Totals returns the current totals.
func (l *UsageLedger) Totals() LedgerTotals {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totals
}

// Entries returns a copy of the records in chronological order.
func (l *UsageLedger) Entries() []UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.entries)
}

// Document returns the persisted form of the ledger.
func (l *UsageLedger) Document() *LedgerDocument {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := slices.Clone(l.entries)
	if entries == nil {
		entries = []UsageRecord{}
	}

	return &LedgerDocument{
		Entries:           entries,
		TotalInputTokens:  l.totals.InputTokens,
		TotalOutputTokens: l.totals.OutputTokens,
		TotalCost:         l.totals.Cost,
		Currency:          l.totals.Currency,
		SchemaVersion:     LedgerSchemaVersion,
	}
}

func (l *UsageLedger) rebuildLocked() LedgerTotals {
	totals := LedgerTotals{
		Cost:     decimal.Zero,
		Currency: l.defaultCurrency,
		Entries:  len(l.entries),
	}

	for _, entry := range l.entries {
		totals.InputTokens += entry.InputTokens
		totals.OutputTokens += entry.OutputTokens
		totals.Cost = totals.Cost.Add(entry.Cost())
	}

	if n := len(l.entries); n > 0 && l.entries[n-1].Pricing.Currency != "" {
		totals.Currency = l.entries[n-1].Pricing.Currency
	}

	l.totals = totals
	return totals
}
