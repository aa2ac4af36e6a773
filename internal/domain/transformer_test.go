package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/draftlock/internal/domain"
)

type transformFixture struct {
	transformer *fakeTransformer
	store       *fakeStore
	sink        *recordingSink
	metrics     *fakeMetrics
	usage       *domain.UsageService
	scheduler   *domain.EstimationScheduler
	service     *domain.TransformService
}

func newTransformFixture(t *testing.T, secrets fakeSecrets) *transformFixture {
	t.Helper()

	f := &transformFixture{
		transformer: &fakeTransformer{},
		store:       &fakeStore{},
		sink:        &recordingSink{},
		metrics:     &fakeMetrics{},
	}
	calculator := newTestCalculator()
	templates := newFakeTemplates()

	f.usage = domain.NewUsageService(f.store, f.metrics)
	f.scheduler = domain.NewEstimationScheduler(&fakeCounter{}, secrets, templates, calculator,
		f.sink, f.metrics, time.Hour)
	t.Cleanup(f.scheduler.Close)

	f.service = domain.NewTransformService(f.transformer, secrets, templates, calculator,
		f.usage, f.scheduler, f.metrics)
	return f
}

func TestTransformService_Run(t *testing.T) {
	f := newTransformFixture(t, fakeSecrets{key: "sk-test"})
	id := mailTemplateID

	outcome, err := f.service.Run(context.Background(), domain.DraftInput{
		Model:      "gpt-4o",
		Mode:       domain.ModeMail,
		TemplateID: &id,
		Text:       "quarterly results",
	})

	require.NoError(t, err)
	require.Equal(t, "rewritten", outcome.Output)

	record := outcome.Record
	require.NotEqual(t, uuid.Nil, record.ID)
	require.Equal(t, time.UTC, record.Date.Location())
	require.Equal(t, "gpt-4o", record.Model)
	require.Equal(t, domain.ModeMail, record.Mode)
	require.Equal(t, &id, record.TemplateID)
	require.Equal(t, 1000, record.InputTokens)
	require.Equal(t, 500, record.OutputTokens)
	require.Equal(t, "test-2025-01", record.Pricing.PricingID)

	require.True(t, decimal.RequireFromString("0.0075").Equal(outcome.Cost))
	require.Equal(t, 1, outcome.Totals.Entries)
	require.True(t, outcome.Totals.Cost.Equal(outcome.Cost))
	require.Len(t, f.store.doc.Entries, 1)

	published := f.sink.Results()
	require.Len(t, published, 1)
	require.True(t, published[0].Actual)
	require.True(t, published[0].Cost.Equal(outcome.Cost))

	require.Equal(t, []string{"succeeded"}, f.metrics.Outcomes())
}

func TestTransformService_RunFailures(t *testing.T) {
	tests := []struct {
		name          string
		secrets       fakeSecrets
		input         domain.DraftInput
		transformErr  error
		expectedErr   error
		expectedCalls int
	}{
		{
			name:        "missing credential",
			secrets:     fakeSecrets{},
			input:       draft("hello"),
			expectedErr: domain.ErrMissingCredential,
		},
		{
			name:        "empty input",
			secrets:     fakeSecrets{key: "sk-test"},
			input:       draft("  "),
			expectedErr: domain.ErrEmptyInput,
		},
		{
			name:    "no template for mode",
			secrets: fakeSecrets{key: "sk-test"},
			input: domain.DraftInput{
				Model: "gpt-4o",
				Mode:  domain.ModeNotion,
				Text:  "hello",
			},
			expectedErr: domain.ErrTemplateNotFound,
		},
		{
			name:    "unpriced model is refused before calling out",
			secrets: fakeSecrets{key: "sk-test"},
			input: domain.DraftInput{
				Model: "no-such-model",
				Mode:  domain.ModeChat,
				Text:  "hello",
			},
			expectedErr: domain.ErrModelNotFound,
		},
		{
			name:          "provider failure records nothing",
			secrets:       fakeSecrets{key: "sk-test"},
			input:         draft("hello"),
			transformErr:  errors.New("503 service unavailable"),
			expectedCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTransformFixture(t, tt.secrets)
			if tt.transformErr != nil {
				f.transformer.transformFunc = func(context.Context, domain.EstimationRequest) (*domain.TransformResult, error) {
					return nil, tt.transformErr
				}
			}

			outcome, err := f.service.Run(context.Background(), tt.input)

			require.Error(t, err)
			require.Nil(t, outcome)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.ErrorIs(t, err, tt.transformErr)
			}
			require.Equal(t, tt.expectedCalls, f.transformer.Calls())
			require.Equal(t, 0, f.usage.Totals().Entries)
			require.Empty(t, f.sink.Results())
			require.Equal(t, []string{"failed"}, f.metrics.Outcomes())
		})
	}
}

func TestTransformService_RejectsConcurrentRuns(t *testing.T) {
	f := newTransformFixture(t, fakeSecrets{key: "sk-test"})

	started := make(chan struct{})
	release := make(chan struct{})
	f.transformer.transformFunc = func(context.Context, domain.EstimationRequest) (*domain.TransformResult, error) {
		close(started)
		<-release
		return &domain.TransformResult{Output: "done", InputTokens: 1, OutputTokens: 1}, nil
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := f.service.Run(context.Background(), draft("first"))
		errCh <- err
	}()
	<-started

	_, err := f.service.Run(context.Background(), draft("second"))
	require.ErrorIs(t, err, domain.ErrTransformInFlight)

	close(release)
	require.NoError(t, <-errCh)
	require.Equal(t, 1, f.usage.Totals().Entries)
}
