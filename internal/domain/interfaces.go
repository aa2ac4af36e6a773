package domain

import (
	"context"

	"github.com/google/uuid"
)

// TokenCounter counts the input tokens a request would consume.
type TokenCounter interface {
	// CountInputTokens returns the input token count for the request.
	CountInputTokens(ctx context.Context, req EstimationRequest) (int, error)
}

// Transformer runs a transformation against the language model.
type Transformer interface {
	// Transform returns the model output together with actual token usage.
	Transform(ctx context.Context, req EstimationRequest) (*TransformResult, error)
}

// SecretProvider exposes the API credential. Callers only test for its presence;
// the value must never be logged, displayed or persisted.
type SecretProvider interface {
	// CurrentCredential returns the credential and whether one is configured.
	CurrentCredential(ctx context.Context) (string, bool)
}

// LedgerStore persists the usage ledger as a single document.
type LedgerStore interface {
	// Load returns the stored ledger, or an error wrapping ErrLedgerNotFound
	// when none exists or ErrLedgerCorrupt when it cannot be decoded.
	Load(ctx context.Context) (*LedgerDocument, error)

	// Save replaces the stored ledger.
	Save(ctx context.Context, doc *LedgerDocument) error
}

// TemplateSource is the read contract of the template library.
type TemplateSource interface {
	// Template returns the template with the given ID.
	Template(ctx context.Context, id uuid.UUID) (Template, error)

	// DefaultTemplate returns the default template for a mode.
	DefaultTemplate(ctx context.Context, mode DraftMode) (Template, error)
}

// EstimateSink receives live estimate results.
// Publish is called while the scheduler holds its lock, so it must not block
// or call back into the scheduler.
type EstimateSink interface {
	Publish(result EstimationResult)
}

// MetricsRecorder receives accounting counters.
type MetricsRecorder interface {
	EstimateOutcome(outcome string)
	TransformOutcome(model, outcome string)
	RecordUsage(model, currency string, inputTokens, outputTokens int, cost float64)
}
