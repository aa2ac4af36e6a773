package domain_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/observability"
)

func TestMain(m *testing.M) {
	observability.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

const testSnapshotJSON = `{
  "schema_version": 1,
  "pricing_id": "test-2025-01",
  "effective_date": "2025-01-01",
  "currency": "USD",
  "unit": "per_1m_tokens",
  "source": "unit test",
  "models": [
    {
      "id": "gpt-4o",
      "aliases": ["gpt-4o-latest"],
      "input_per_1m_tokens": "2.50",
      "cached_input_per_1m_tokens": "1.25",
      "output_per_1m_tokens": "10.00"
    },
    {
      "id": "gpt-4o-mini",
      "aliases": [],
      "input_per_1m_tokens": "0.15",
      "output_per_1m_tokens": "0.60"
    },
    {
      "id": "claude-sonnet-4-2025-05-14",
      "aliases": ["sonnet-4-2025-05-14"],
      "input_per_1m_tokens": "3",
      "output_per_1m_tokens": "15"
    }
  ]
}`

//nolint:gochecknoglobals // shared fixtures
var (
	chatTemplateID = uuid.MustParse("7b0c3c7e-8c8f-4f43-9e0a-0f4f3d2c1a01")
	mailTemplateID = uuid.MustParse("7b0c3c7e-8c8f-4f43-9e0a-0f4f3d2c1a02")

	chatTemplate = domain.Template{
		ID:        chatTemplateID,
		Name:      "Chat: conclusion first",
		Mode:      domain.ModeChat,
		Body:      "Rewrite for a chat message.",
		IsDefault: true,
		Version:   1,
	}
	mailTemplate = domain.Template{
		ID:           mailTemplateID,
		Name:         "Mail: subject and body",
		Mode:         domain.ModeMail,
		SystemPrompt: "You write business email.",
		Body:         "Write an email about:\n{{input}}",
		Version:      1,
	}
)

func staticSource(data string) domain.PricingSource {
	return func() ([]byte, error) {
		return []byte(data), nil
	}
}

func newTestCatalog() *domain.PricingCatalog {
	return domain.NewPricingCatalog(staticSource(testSnapshotJSON))
}

func newTestCalculator() *domain.CostCalculator {
	return domain.NewCostCalculator(newTestCatalog())
}

func draft(text string) domain.DraftInput {
	return domain.DraftInput{
		Model: "gpt-4o-mini",
		Mode:  domain.ModeChat,
		Text:  text,
	}
}

// fakeSecrets is a SecretProvider with a fixed credential.
type fakeSecrets struct {
	key string
}

func (f fakeSecrets) CurrentCredential(_ context.Context) (string, bool) {
	return f.key, f.key != ""
}

// fakeTemplates is an in-memory TemplateSource.
type fakeTemplates struct {
	templates []domain.Template
}

func newFakeTemplates() *fakeTemplates {
	return &fakeTemplates{templates: []domain.Template{chatTemplate, mailTemplate}}
}

func (f *fakeTemplates) Template(_ context.Context, id uuid.UUID) (domain.Template, error) {
	for _, tmpl := range f.templates {
		if tmpl.ID == id {
			return tmpl, nil
		}
	}
	return domain.Template{}, domain.ErrTemplateNotFound
}

func (f *fakeTemplates) DefaultTemplate(_ context.Context, mode domain.DraftMode) (domain.Template, error) {
	for _, tmpl := range f.templates {
		if tmpl.Mode == mode {
			return tmpl, nil
		}
	}
	return domain.Template{}, domain.ErrTemplateNotFound
}

// fakeCounter is a TokenCounter that records every request.
type fakeCounter struct {
	mu        sync.Mutex
	calls     []domain.EstimationRequest
	countFunc func(ctx context.Context, req domain.EstimationRequest) (int, error)
}

func (f *fakeCounter) CountInputTokens(ctx context.Context, req domain.EstimationRequest) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	countFunc := f.countFunc
	f.mu.Unlock()

	if countFunc != nil {
		return countFunc(ctx, req)
	}
	return 1000, nil
}

func (f *fakeCounter) Calls() []domain.EstimationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.EstimationRequest, len(f.calls))
	copy(out, f.calls)
	return out
}

// recordingSink is an EstimateSink that keeps every published result.
type recordingSink struct {
	mu      sync.Mutex
	results []domain.EstimationResult
}

func (r *recordingSink) Publish(result domain.EstimationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingSink) Results() []domain.EstimationResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.EstimationResult, len(r.results))
	copy(out, r.results)
	return out
}

// fakeStore is an in-memory LedgerStore.
type fakeStore struct {
	mu      sync.Mutex
	doc     *domain.LedgerDocument
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Load(_ context.Context) (*domain.LedgerDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.doc == nil {
		return nil, domain.ErrLedgerNotFound
	}
	return f.doc, nil
}

func (f *fakeStore) Save(_ context.Context, doc *domain.LedgerDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.doc = doc
	return nil
}

func (f *fakeStore) SetLoadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
}

func (f *fakeStore) Saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// fakeTransformer is a Transformer backed by a func.
type fakeTransformer struct {
	mu            sync.Mutex
	calls         int
	transformFunc func(ctx context.Context, req domain.EstimationRequest) (*domain.TransformResult, error)
}

func (f *fakeTransformer) Transform(ctx context.Context, req domain.EstimationRequest) (*domain.TransformResult, error) {
	f.mu.Lock()
	f.calls++
	transformFunc := f.transformFunc
	f.mu.Unlock()

	if transformFunc != nil {
		return transformFunc(ctx, req)
	}
	return &domain.TransformResult{
		Output:       "rewritten",
		InputTokens:  1000,
		OutputTokens: 500,
	}, nil
}

func (f *fakeTransformer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
