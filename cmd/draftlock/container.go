package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/dig"

	"github.com/davidbz/draftlock/internal/config"
	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/httpserver"
	"github.com/davidbz/draftlock/internal/httpserver/middleware"
	"github.com/davidbz/draftlock/internal/observability"
	"github.com/davidbz/draftlock/internal/pricing"
	"github.com/davidbz/draftlock/internal/provider/echo"
	"github.com/davidbz/draftlock/internal/provider/openai"
	"github.com/davidbz/draftlock/internal/provider/registry"
	"github.com/davidbz/draftlock/internal/secrets"
	"github.com/davidbz/draftlock/internal/storage"
	"github.com/davidbz/draftlock/internal/templates"
)

// lifecycle collects the release funcs of constructed resources so only
// what a command actually built gets closed.
type lifecycle struct {
	mu      sync.Mutex
	closers []func() error
}

func (l *lifecycle) onClose(fn func() error) {
	l.mu.Lock()
	l.closers = append(l.closers, fn)
	l.mu.Unlock()
}

// close runs the release funcs in reverse construction order.
func (l *lifecycle) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		errs = append(errs, l.closers[i]())
	}
	l.closers = nil
	return errors.Join(errs...)
}

func buildContainer(cfg *config.Config, life *lifecycle) (*dig.Container, error) {
	container := dig.New()

	providers := []struct {
		name        string
		constructor any
	}{
		// Configuration
		{"config", func() *config.Config { return cfg }},
		{"config dependencies", config.ParseDependenciesConfig},
		{"lifecycle", func() *lifecycle { return life }},

		// Observability
		{"logger", observability.InitLogger},
		{"metrics", observability.NewMetrics},
		{"metrics recorder", func(m *observability.Metrics) domain.MetricsRecorder { return m }},

		// Credentials
		{"secret provider", provideSecrets},
		{"secret interface", func(p *secrets.Provider) domain.SecretProvider { return p }},

		// Language model backends
		{"backend registry", provideRegistry},
		{"backend", provideBackend},
		{"token counter", func(b registry.Backend) domain.TokenCounter { return b }},
		{"transformer", func(b registry.Backend) domain.Transformer { return b }},

		// Pricing and templates
		{"pricing catalog", pricing.NewCatalog},
		{"cost calculator", domain.NewCostCalculator},
		{"template library", templates.New},
		{"template source", func(l *templates.Library) domain.TemplateSource { return l }},
		{"template lister", func(l *templates.Library) httpserver.TemplateLister { return l }},

		// Usage ledger
		{"ledger store", provideLedgerStore},
		{"usage service", domain.NewUsageService},

		// Live estimate
		{"estimate feed", domain.NewEstimateFeed},
		{"estimate sink", func(f *domain.EstimateFeed) domain.EstimateSink { return f }},
		{"estimation scheduler", provideScheduler},

		// Domain Services
		{"transform service", domain.NewTransformService},

		// HTTP Layer
		{"middleware", middleware.BuildMiddlewareChain},
		{"HTTP handler", httpserver.NewHandler},
		{"HTTP server", httpserver.NewServer},
	}

	for _, p := range providers {
		if err := container.Provide(p.constructor); err != nil {
			return nil, fmt.Errorf("failed to provide %s: %w", p.name, err)
		}
	}

	return container, nil
}

func provideSecrets(cfg *secrets.Config, life *lifecycle) (*secrets.Provider, error) {
	provider, err := secrets.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	life.onClose(provider.Close)
	return provider, nil
}

func provideRegistry(
	openaiCfg *openai.Config,
	echoCfg *echo.Config,
	secretProvider domain.SecretProvider,
) (*registry.Registry, error) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	openaiProvider, err := openai.NewProvider(openaiCfg, secretProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI provider: %w", err)
	}
	if err := reg.Register(ctx, openaiProvider); err != nil {
		return nil, fmt.Errorf("failed to register OpenAI provider: %w", err)
	}

	if err := reg.Register(ctx, echo.NewProvider(echoCfg)); err != nil {
		return nil, fmt.Errorf("failed to register echo provider: %w", err)
	}

	return reg, nil
}

func provideBackend(reg *registry.Registry, cfg *registry.Config) (registry.Backend, error) {
	ctx := context.Background()

	backend, err := reg.Get(ctx, cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, reg.List(ctx))
	}

	observability.FromContext(ctx).Debug("language model backend selected",
		observability.String("backend", backend.Name()))
	return backend, nil
}

func provideLedgerStore(cfg *storage.Config, life *lifecycle) (domain.LedgerStore, error) {
	store, release, err := storage.NewLedgerStore(cfg)
	if err != nil {
		return nil, err
	}
	life.onClose(release)
	return store, nil
}

func provideScheduler(
	counter domain.TokenCounter,
	secretProvider domain.SecretProvider,
	source domain.TemplateSource,
	calculator *domain.CostCalculator,
	sink domain.EstimateSink,
	metrics domain.MetricsRecorder,
	cfg *config.EstimateConfig,
	life *lifecycle,
) *domain.EstimationScheduler {
	scheduler := domain.NewEstimationScheduler(counter, secretProvider, source, calculator, sink, metrics, cfg.Debounce)
	life.onClose(func() error {
		scheduler.Close()
		return nil
	})
	return scheduler
}
