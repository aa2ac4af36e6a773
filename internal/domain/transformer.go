package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidbz/draftlock/internal/observability"
)

var (
	// ErrMissingCredential indicates no API credential is configured.
	ErrMissingCredential = errors.New("API key is not configured")

	// ErrEmptyInput indicates there is no text to transform.
	ErrEmptyInput = errors.New("input is empty")

	// ErrTransformInFlight indicates another transformation is still running.
	ErrTransformInFlight = errors.New("a transformation is already running")
)

// TransformOutcome is the result of a recorded transformation.
type TransformOutcome struct {
	Output string          `json:"output"`
	Record UsageRecord     `json:"record"`
	Cost   decimal.Decimal `json:"cost"`
	Totals LedgerTotals    `json:"totals"`
}

// TransformService runs transformations and records their usage.
type TransformService struct {
	transformer Transformer
	secrets     SecretProvider
	templates   TemplateSource
	calculator  *CostCalculator
	usage       *UsageService
	scheduler   *EstimationScheduler
	metrics     MetricsRecorder

	running atomic.Bool
}

// NewTransformService creates a new transform service (DI constructor).
// The scheduler may be nil when no live estimate is displayed.
func NewTransformService(
	transformer Transformer,
	secrets SecretProvider,
	templates TemplateSource,
	calculator *CostCalculator,
	usage *UsageService,
	scheduler *EstimationScheduler,
	metrics MetricsRecorder,
) *TransformService {
	return &TransformService{
		transformer: transformer,
		secrets:     secrets,
		templates:   templates,
		calculator:  calculator,
		usage:       usage,
		scheduler:   scheduler,
		metrics:     metrics,
	}
}

// Run transforms the draft, records actual usage in the ledger and publishes
// the actual cost to the live estimate. Errors are returned to the caller;
// nothing is retried.
func (s *TransformService) Run(ctx context.Context, input DraftInput) (*TransformOutcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrTransformInFlight
	}
	defer s.running.Store(false)

	ctx = observability.WithModel(ctx, input.Model)
	logger := observability.FromContext(ctx)

	outcome, err := s.run(ctx, input)
	if err != nil {
		logger.Warn("transformation failed", observability.Error(err))
		s.recordOutcome(input.Model, "failed")
		return nil, err
	}

	logger.Info("transformation recorded",
		observability.Int("input_tokens", outcome.Record.InputTokens),
		observability.Int("output_tokens", outcome.Record.OutputTokens),
		observability.Stringer("cost", outcome.Cost))
	s.recordOutcome(input.Model, "succeeded")

	return outcome, nil
}

func (s *TransformService) run(ctx context.Context, input DraftInput) (*TransformOutcome, error) {
	if s.secrets == nil {
		return nil, ErrMissingCredential
	}
	if _, ok := s.secrets.CurrentCredential(ctx); !ok {
		return nil, ErrMissingCredential
	}

	tmpl, err := SelectTemplate(ctx, s.templates, input.TemplateID, input.Mode)
	if err != nil {
		return nil, fmt.Errorf("template unavailable: %w", err)
	}

	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrEmptyInput
	}

	// Resolve before calling out: a run whose cost cannot be recorded is refused.
	applied, err := s.calculator.Rate(input.Model)
	if err != nil {
		return nil, fmt.Errorf("pricing unavailable: %w", err)
	}

	res, err := s.transformer.Transform(ctx, BuildRequest(input.Model, tmpl, input.Text))
	if err != nil {
		return nil, fmt.Errorf("transformation failed: %w", err)
	}

	templateID := tmpl.ID
	record := UsageRecord{
		ID:           uuid.New(),
		Date:         time.Now().UTC(),
		TemplateID:   &templateID,
		Model:        input.Model,
		Mode:         input.Mode,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
		Pricing:      applied,
	}

	totals := s.usage.Record(ctx, record)
	cost := record.Cost()

	if s.scheduler != nil {
		s.scheduler.PublishActual(EstimationResult{
			Available:   true,
			InputTokens: res.InputTokens,
			Cost:        cost,
			Currency:    applied.Currency,
			Actual:      true,
		})
	}

	return &TransformOutcome{
		Output: res.Output,
		Record: record,
		Cost:   cost,
		Totals: totals,
	}, nil
}

func (s *TransformService) recordOutcome(model, outcome string) {
	if s.metrics != nil {
		s.metrics.TransformOutcome(model, outcome)
	}
}
