// Package openai provides an adapter for the OpenAI Responses API using the
// official SDK. It implements domain.TokenCounter and domain.Transformer and
// converts between domain types and SDK types.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/observability"
)

const inputTokensPath = "responses/input_tokens"

// inputTokensRequest is the body of POST /responses/input_tokens. It mirrors
// the fields of a Responses request that affect the input token count.
type inputTokensRequest struct {
	Model        string `json:"model"`
	Instructions string `json:"instructions,omitempty"`
	Input        string `json:"input"`
}

type inputTokensResponse struct {
	Object      string `json:"object"`
	InputTokens int    `json:"input_tokens"`
}

// Provider implements domain.TokenCounter and domain.Transformer for OpenAI.
type Provider struct {
	client          openai.Client
	secrets         domain.SecretProvider
	maxOutputTokens int64
	name            string
}

// NewProvider creates a new OpenAI provider.
func NewProvider(config *Config, secrets domain.SecretProvider) (*Provider, error) {
	if secrets == nil {
		return nil, errors.New("secret provider is required")
	}

	var opts []option.RequestOption

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	if config.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	return &Provider{
		client:          openai.NewClient(opts...),
		secrets:         secrets,
		maxOutputTokens: int64(config.MaxOutputTokens),
		name:            "openai",
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// CountInputTokens asks the API how many input tokens the request would use.
func (p *Provider) CountInputTokens(ctx context.Context, req domain.EstimationRequest) (int, error) {
	key, err := p.credential(ctx)
	if err != nil {
		return 0, err
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI input token count")

	body := inputTokensRequest{
		Model:        req.Model,
		Instructions: req.Instructions,
		Input:        req.Input,
	}

	var out inputTokensResponse
	if err := p.client.Post(ctx, inputTokensPath, body, &out, option.WithAPIKey(key)); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("OpenAI input token count failed", observability.Error(err))
		}
		return 0, fmt.Errorf("OpenAI input token count failed: %w", err)
	}

	logger.Debug("OpenAI input token count succeeded",
		observability.Int("input_tokens", out.InputTokens))

	return out.InputTokens, nil
}

// Transform runs the request through the Responses API.
func (p *Provider) Transform(ctx context.Context, req domain.EstimationRequest) (*domain.TransformResult, error) {
	key, err := p.credential(ctx)
	if err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI Responses API")

	resp, err := p.client.Responses.New(ctx, p.toSDKParams(req), option.WithAPIKey(key))
	if err != nil {
		logger.Error("OpenAI API call failed", observability.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int("input_tokens", int(resp.Usage.InputTokens)),
		observability.Int("output_tokens", int(resp.Usage.OutputTokens)),
	)

	return toDomainResult(resp), nil
}

func (p *Provider) credential(ctx context.Context) (string, error) {
	key, ok := p.secrets.CurrentCredential(ctx)
	if !ok {
		return "", domain.ErrMissingCredential
	}
	return key, nil
}

// toSDKParams converts a domain request to SDK ResponseNewParams.
func (p *Provider) toSDKParams(req domain.EstimationRequest) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model: req.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.Input),
		},
	}

	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}

	if p.maxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(p.maxOutputTokens)
	}

	return params
}

// toDomainResult converts an SDK response to a domain result.
func toDomainResult(resp *responses.Response) *domain.TransformResult {
	return &domain.TransformResult{
		Output:       resp.OutputText(),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
}
