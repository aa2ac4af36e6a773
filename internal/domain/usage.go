package domain

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/davidbz/draftlock/internal/observability"
)

// LoadLedger reads the persisted ledger and rebuilds its totals.
// An absent or corrupt ledger yields an empty one, written back best-effort,
// so a bad file never blocks startup. Any other load failure also yields an
// empty ledger but leaves the store untouched.
func LoadLedger(ctx context.Context, store LedgerStore) *UsageLedger {
	ledger, _ := loadLedger(ctx, store)
	return ledger
}

// loadLedger reports whether the store may be overwritten with the result.
func loadLedger(ctx context.Context, store LedgerStore) (*UsageLedger, bool) {
	logger := observability.FromContext(ctx)

	if store == nil {
		return NewUsageLedger(), true
	}

	doc, err := store.Load(ctx)
	if err == nil && doc != nil {
		ledger := NewUsageLedgerFromEntries(doc.Entries)
		totals := ledger.Totals()
		logger.Info("usage ledger loaded",
			observability.Int("entries", totals.Entries),
			observability.Stringer("total_cost", totals.Cost))
		return ledger, true
	}

	ledger := NewUsageLedger()
	if !recoverable(err) {
		logger.Warn("usage ledger unavailable, starting empty without overwriting it",
			observability.Error(err))
		return ledger, false
	}

	if errors.Is(err, ErrLedgerCorrupt) {
		logger.Warn("usage ledger corrupt, starting empty", observability.Error(err))
	}
	if saveErr := store.Save(ctx, ledger.Document()); saveErr != nil {
		logger.Warn("failed to write empty usage ledger", observability.Error(saveErr))
	}
	return ledger, true
}

// recoverable reports whether a load error may be answered by overwriting the store.
func recoverable(err error) bool {
	return err == nil || errors.Is(err, ErrLedgerNotFound) || errors.Is(err, ErrLedgerCorrupt)
}

// UsageService owns the ledger and its persistence.
type UsageService struct {
	ledger  *UsageLedger
	store   LedgerStore
	metrics MetricsRecorder

	// synced is false while the stored ledger could not be read. Saves are
	// held back until a reload succeeds, so stored history is never replaced
	// by a partial in-memory ledger.
	synced bool

	// mu keeps mutation and the following save in one step, so the store
	// never receives documents out of order.
	mu sync.Mutex
}

// NewUsageService loads the ledger from the store (DI constructor).
func NewUsageService(store LedgerStore, metrics MetricsRecorder) *UsageService {
	ledger, synced := loadLedger(context.Background(), store)
	return &UsageService{
		ledger:  ledger,
		store:   store,
		metrics: metrics,
		synced:  synced,
	}
}

// Record appends a completed transformation and persists the ledger.
// A failed save is logged and does not undo the in-memory append.
func (s *UsageService) Record(ctx context.Context, record UsageRecord) LedgerTotals {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.Append(record)
	s.persistLocked(ctx)
	totals := s.ledger.Totals()

	if s.metrics != nil {
		s.metrics.RecordUsage(record.Model, record.Pricing.Currency,
			record.InputTokens, record.OutputTokens, record.Cost().InexactFloat64())
	}

	return totals
}

// Reset clears the ledger and persists the empty state.
func (s *UsageService) Reset(ctx context.Context) LedgerTotals {
	s.mu.Lock()
	defer s.mu.Unlock()

	// An explicit reset is the one case where unread history may be discarded.
	totals := s.ledger.Reset()
	s.synced = true
	s.persistLocked(ctx)

	observability.FromContext(ctx).Info("usage totals reset")
	return totals
}

// Totals returns the current aggregates.
func (s *UsageService) Totals() LedgerTotals {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.Totals()
}

// Entries returns the recorded usage in chronological order.
func (s *UsageService) Entries() []UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.Entries()
}

func (s *UsageService) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	if !s.synced && !s.reconcileLocked(ctx) {
		return
	}
	if err := s.store.Save(ctx, s.ledger.Document()); err != nil {
		observability.FromContext(ctx).Warn("failed to persist usage ledger", observability.Error(err))
	}
}

// reconcileLocked retries the load and prepends the stored entries to those
// recorded since startup. It reports whether saving is now safe.
func (s *UsageService) reconcileLocked(ctx context.Context) bool {
	logger := observability.FromContext(ctx)

	doc, err := s.store.Load(ctx)
	if !recoverable(err) {
		logger.Warn("usage ledger still unavailable, save deferred", observability.Error(err))
		return false
	}

	if err == nil && doc != nil {
		s.ledger = NewUsageLedgerFromEntries(slices.Concat(doc.Entries, s.ledger.Entries()))
		logger.Info("usage ledger reconciled", observability.Int("stored_entries", len(doc.Entries)))
	}

	s.synced = true
	return true
}
