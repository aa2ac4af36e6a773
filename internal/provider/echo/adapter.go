// Package echo provides an offline backend that echoes requests back.
// It implements domain.TokenCounter and domain.Transformer without making
// external API calls, providing deterministic results for development and
// demos without network access. A credential must still be configured,
// since estimation and transformation check for one before calling any backend.
package echo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/observability"
)

const providerName = "echo"

// Config tunes the echo backend.
type Config struct {
	// Latency is added to every call to mimic a remote API.
	Latency time.Duration `env:"ECHO_LATENCY" envDefault:"0s"`
}

// Provider implements the echo backend.
type Provider struct {
	name    string
	latency time.Duration
}

// NewProvider creates a new echo provider.
func NewProvider(cfg *Config) *Provider {
	p := &Provider{name: providerName}
	if cfg != nil {
		p.latency = cfg.Latency
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// CountInputTokens counts words across instructions and input.
func (p *Provider) CountInputTokens(ctx context.Context, req domain.EstimationRequest) (int, error) {
	if err := p.wait(ctx); err != nil {
		return 0, err
	}

	tokens := countTokens(req.Instructions) + countTokens(req.Input)
	observability.FromContext(ctx).Debug("echo token count",
		observability.Int("input_tokens", tokens))

	return tokens, nil
}

// Transform echoes the request back as the output.
func (p *Provider) Transform(ctx context.Context, req domain.EstimationRequest) (*domain.TransformResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	output := buildEchoContent(req)
	result := &domain.TransformResult{
		Output:       output,
		InputTokens:  countTokens(req.Instructions) + countTokens(req.Input),
		OutputTokens: countTokens(output),
	}

	observability.FromContext(ctx).Debug("echo completed",
		observability.Int("input_tokens", result.InputTokens),
		observability.Int("output_tokens", result.OutputTokens),
	)

	return result, nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// buildEchoContent constructs the echo output from the request.
func buildEchoContent(req domain.EstimationRequest) string {
	if req.Input == "" {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("[%s]: %s\n", req.Model, req.Input))
	return builder.String()
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
