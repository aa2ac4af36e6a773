package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/draftlock/internal/domain"
)

func TestTemplate_Instructions(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     domain.Template
		input    string
		expected string
	}{
		{
			name:  "body only",
			tmpl:  domain.Template{Body: "Rewrite for a chat message."},
			input: "hello",
			expected: "Template:\nRewrite for a chat message.\n\n" +
				"Guidance:\nUse the template above to transform the provided input.",
		},
		{
			name:  "system prompt and body with placeholder",
			tmpl:  mailTemplate,
			input: "quarterly results",
			expected: "System:\nYou write business email.\n\n" +
				"Template:\nWrite an email about:\nquarterly results\n\n" +
				"Guidance:\nUse the template above to transform the provided input.",
		},
		{
			name:     "blank template falls back",
			tmpl:     domain.Template{SystemPrompt: "  ", Body: "\n"},
			input:    "hello",
			expected: "Follow the template to process the input and produce a helpful, concise result.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.tmpl.Instructions(tt.input))
		})
	}
}

func TestTemplate_Render(t *testing.T) {
	tmpl := domain.Template{Body: "{{input}} / {{input}}"}

	require.Equal(t, "a / a", tmpl.Render("a"))
	require.Equal(t, "no placeholder", domain.Template{Body: "no placeholder"}.Render("a"))
}

func TestBuildRequest(t *testing.T) {
	req := domain.BuildRequest("gpt-4o", chatTemplate, "  hello world \n")

	require.Equal(t, "gpt-4o", req.Model)
	require.Equal(t, "Target text:\n\nhello world", req.Input)
	require.Contains(t, req.Instructions, "Rewrite for a chat message.")
}

func TestSelectTemplate(t *testing.T) {
	ctx := context.Background()
	templates := newFakeTemplates()

	t.Run("explicit template", func(t *testing.T) {
		id := mailTemplateID
		tmpl, err := domain.SelectTemplate(ctx, templates, &id, domain.ModeChat)

		require.NoError(t, err)
		require.Equal(t, mailTemplateID, tmpl.ID)
	})

	t.Run("unknown template falls back to the mode default", func(t *testing.T) {
		id := uuid.New()
		tmpl, err := domain.SelectTemplate(ctx, templates, &id, domain.ModeChat)

		require.NoError(t, err)
		require.Equal(t, chatTemplateID, tmpl.ID)
	})

	t.Run("no template for mode", func(t *testing.T) {
		_, err := domain.SelectTemplate(ctx, templates, nil, domain.ModeNotion)

		require.ErrorIs(t, err, domain.ErrTemplateNotFound)
	})

	t.Run("no source", func(t *testing.T) {
		_, err := domain.SelectTemplate(ctx, nil, nil, domain.ModeChat)

		require.ErrorIs(t, err, domain.ErrTemplateNotFound)
	})

	t.Run("lookup failure is not masked", func(t *testing.T) {
		id := uuid.New()
		_, err := domain.SelectTemplate(ctx, failingTemplates{}, &id, domain.ModeChat)

		require.Error(t, err)
		require.NotErrorIs(t, err, domain.ErrTemplateNotFound)
	})
}

type failingTemplates struct{}

func (failingTemplates) Template(context.Context, uuid.UUID) (domain.Template, error) {
	return domain.Template{}, errors.New("library unavailable")
}

func (failingTemplates) DefaultTemplate(context.Context, domain.DraftMode) (domain.Template, error) {
	return domain.Template{}, errors.New("library unavailable")
}

func TestParseDraftMode(t *testing.T) {
	for _, mode := range domain.DraftModes() {
		parsed, err := domain.ParseDraftMode(string(mode))
		require.NoError(t, err)
		require.Equal(t, mode, parsed)
		require.NotEmpty(t, mode.DisplayName())
	}

	_, err := domain.ParseDraftMode("tweet")
	require.Error(t, err)
}
