package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrTemplateNotFound indicates the template library has no matching template.
var ErrTemplateNotFound = errors.New("template not found")

const (
	inputPlaceholder = "{{input}}"
	inputHeader      = "Target text:\n\n"

	fallbackInstructions = "Follow the template to process the input and produce a helpful, concise result."
	guidance             = "Guidance:\nUse the template above to transform the provided input."
)

// Template is a prompt template. Body is mandatory; SystemPrompt is optional.
// Body may embed the user's text with the {{input}} placeholder.
type Template struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Mode         DraftMode `json:"mode"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Body         string    `json:"body"`
	IsDefault    bool      `json:"is_default"`
	Version      int       `json:"version"`
}

// Render substitutes the input into the template body.
func (t Template) Render(input string) string {
	return strings.ReplaceAll(t.Body, inputPlaceholder, input)
}

// Instructions builds the instructions sent alongside the input.
func (t Template) Instructions(input string) string {
	system := strings.TrimSpace(t.SystemPrompt)
	body := strings.TrimSpace(t.Render(input))

	if system == "" && body == "" {
		return fallbackInstructions
	}

	components := make([]string, 0, 3)
	if system != "" {
		components = append(components, "System:\n"+system)
	}
	if body != "" {
		components = append(components, "Template:\n"+body)
	}
	components = append(components, guidance)

	return strings.Join(components, "\n\n")
}

// RenderInput wraps the trimmed user text the way it is sent to the model.
func RenderInput(text string) string {
	return inputHeader + strings.TrimSpace(text)
}

// BuildRequest assembles the request for a model, template and user text.
func BuildRequest(model string, tmpl Template, text string) EstimationRequest {
	trimmed := strings.TrimSpace(text)
	return EstimationRequest{
		Model:        model,
		Instructions: tmpl.Instructions(trimmed),
		Input:        RenderInput(trimmed),
	}
}

// SelectTemplate returns the explicitly selected template when it exists,
// otherwise the default template for the mode.
func SelectTemplate(ctx context.Context, source TemplateSource, id *uuid.UUID, mode DraftMode) (Template, error) {
	if source == nil {
		return Template{}, ErrTemplateNotFound
	}

	if id != nil {
		tmpl, err := source.Template(ctx, *id)
		if err == nil {
			return tmpl, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return Template{}, fmt.Errorf("failed to look up template: %w", err)
		}
	}

	return source.DefaultTemplate(ctx, mode)
}
