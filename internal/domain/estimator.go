package domain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/davidbz/draftlock/internal/observability"
)

// DefaultQuietPeriod is how long input must stay unchanged before a count query is issued.
const DefaultQuietPeriod = 350 * time.Millisecond

// Estimate outcomes reported to metrics.
const (
	OutcomeCompleted  = "completed"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

// EstimatorState is the phase of the live-estimate session.
type EstimatorState int

const (
	StateIdle EstimatorState = iota
	StateDebouncing
	StateInFlight
	StateCompleted
	StateFailed
	StateSuperseded
)

func (s EstimatorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateInFlight:
		return "in_flight"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// EstimationScheduler turns a stream of draft changes into debounced token
// count queries. Every change cancels whatever is pending; only the result of
// the most recently issued query is ever published.
type EstimationScheduler struct {
	counter    TokenCounter
	secrets    SecretProvider
	templates  TemplateSource
	calculator *CostCalculator
	sink       EstimateSink
	metrics    MetricsRecorder
	quiet      time.Duration

	mu         sync.Mutex
	generation uint64
	state      EstimatorState
	timer      *time.Timer
	cancel     context.CancelFunc
	closed     bool
}

// NewEstimationScheduler creates a scheduler. A non-positive quiet period
// selects DefaultQuietPeriod.
func NewEstimationScheduler(
	counter TokenCounter,
	secrets SecretProvider,
	templates TemplateSource,
	calculator *CostCalculator,
	sink EstimateSink,
	metrics MetricsRecorder,
	quiet time.Duration,
) *EstimationScheduler {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}

	return &EstimationScheduler{
		counter:    counter,
		secrets:    secrets,
		templates:  templates,
		calculator: calculator,
		sink:       sink,
		metrics:    metrics,
		quiet:      quiet,
		state:      StateIdle,
	}
}

// Update records a change to the draft and restarts the quiet period.
// Context values are kept for logging; its cancellation is not, because the
// query outlives the call that triggered it.
func (s *EstimationScheduler) Update(ctx context.Context, input DraftInput) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.supersedeLocked()

	s.generation++
	gen := s.generation
	s.state = StateDebouncing

	detached := context.WithoutCancel(ctx)
	s.timer = time.AfterFunc(s.quiet, func() {
		s.fire(detached, gen, input)
	})
}

// PublishActual publishes the actual usage of a completed run. A pending or
// in-flight estimate for a newer draft keeps running and replaces it.
func (s *EstimationScheduler) PublishActual(result EstimationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.state != StateDebouncing && s.state != StateInFlight {
		s.state = StateCompleted
	}
	s.publishLocked(result)
}

// State returns the current phase.
func (s *EstimationScheduler) State() EstimatorState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Close cancels pending work. Later updates are ignored.
func (s *EstimationScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.supersedeLocked()
	s.generation++
	s.closed = true
	s.state = StateIdle
}

// EstimateNow runs one estimate synchronously, without debouncing.
func (s *EstimationScheduler) EstimateNow(ctx context.Context, input DraftInput) EstimationResult {
	req, applied, reason := s.prepare(ctx, input)
	if reason != "" {
		return Unavailable(reason)
	}
	return s.query(ctx, req, applied)
}

// supersedeLocked stops the pending timer and abandons any in-flight query.
func (s *EstimationScheduler) supersedeLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if s.state == StateInFlight {
		s.state = StateSuperseded
		s.recordOutcome(OutcomeSuperseded)
	}
}

func (s *EstimationScheduler) fire(ctx context.Context, gen uint64, input DraftInput) {
	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	queryCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateInFlight
	s.mu.Unlock()

	defer cancel()

	var result EstimationResult
	req, applied, reason := s.prepare(queryCtx, input)
	if reason != "" {
		result = Unavailable(reason)
	} else {
		result = s.query(queryCtx, req, applied)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.closed {
		observability.FromContext(ctx).Debug("dropping superseded estimate",
			observability.Uint64("generation", gen))
		return
	}

	s.cancel = nil
	if result.Available {
		s.state = StateCompleted
		s.recordOutcome(OutcomeCompleted)
	} else {
		s.state = StateFailed
		s.recordOutcome(OutcomeFailed)
	}
	s.publishLocked(result)
}

// prepare checks everything that can short-circuit before a network round trip.
func (s *EstimationScheduler) prepare(ctx context.Context, input DraftInput) (EstimationRequest, AppliedRate, string) {
	if strings.TrimSpace(input.Text) == "" {
		return EstimationRequest{}, AppliedRate{}, "empty input"
	}

	if s.secrets == nil {
		return EstimationRequest{}, AppliedRate{}, "missing credential"
	}
	if _, ok := s.secrets.CurrentCredential(ctx); !ok {
		return EstimationRequest{}, AppliedRate{}, "missing credential"
	}

	tmpl, err := SelectTemplate(ctx, s.templates, input.TemplateID, input.Mode)
	if err != nil {
		return EstimationRequest{}, AppliedRate{}, "no template: " + err.Error()
	}

	applied, err := s.calculator.Rate(input.Model)
	if err != nil {
		return EstimationRequest{}, AppliedRate{}, "pricing: " + err.Error()
	}

	return BuildRequest(input.Model, tmpl, input.Text), applied, ""
}

func (s *EstimationScheduler) query(ctx context.Context, req EstimationRequest, applied AppliedRate) EstimationResult {
	logger := observability.FromContext(ctx)

	tokens, err := s.counter.CountInputTokens(ctx, req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Debug("token count failed", observability.Error(err))
		}
		return Unavailable("count failed: " + err.Error())
	}

	// Output size is unknown before the run, so the estimate prices input only.
	return EstimationResult{
		Available:   true,
		InputTokens: tokens,
		Cost:        applied.Cost(tokens, 0),
		Currency:    applied.Currency,
	}
}

func (s *EstimationScheduler) publishLocked(result EstimationResult) {
	if s.sink != nil {
		s.sink.Publish(result)
	}
}

func (s *EstimationScheduler) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.EstimateOutcome(outcome)
	}
}
