package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DraftMode is the kind of document a transformation targets.
type DraftMode string

const (
	ModeChat   DraftMode = "chat"
	ModeDoc    DraftMode = "doc"
	ModePR     DraftMode = "pr"
	ModeNotion DraftMode = "notion"
	ModeMail   DraftMode = "mail"
)

// DraftModes lists every supported mode in display order.
func DraftModes() []DraftMode {
	return []DraftMode{ModeChat, ModeDoc, ModePR, ModeNotion, ModeMail}
}

// ParseDraftMode validates a mode tag.
func ParseDraftMode(s string) (DraftMode, error) {
	for _, mode := range DraftModes() {
		if string(mode) == s {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unknown draft mode: %q", s)
}

// DisplayName returns the human-readable mode name.
func (m DraftMode) DisplayName() string {
	switch m {
	case ModeChat:
		return "Chat"
	case ModeDoc:
		return "Doc"
	case ModePR:
		return "PR"
	case ModeNotion:
		return "Notion"
	case ModeMail:
		return "Mail"
	default:
		return string(m)
	}
}

// DraftInput is the user-controlled state that drives estimation and transformation.
type DraftInput struct {
	Model      string     `json:"model"`
	Mode       DraftMode  `json:"mode"`
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
	Text       string     `json:"text"`
}

// EstimationRequest is exactly what is sent to the provider for counting or transforming.
type EstimationRequest struct {
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
	Input        string `json:"input"`
}

// EstimationResult is either a priced token count or an explicit "unavailable" state.
type EstimationResult struct {
	Available   bool            `json:"available"`
	InputTokens int             `json:"input_tokens,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	Currency    string          `json:"currency"`

	// Actual marks results built from a completed run rather than a count query.
	Actual bool `json:"actual,omitempty"`

	// Reason explains an unavailable result. It is for logs, not for display.
	Reason string `json:"-"`
}

// Unavailable builds the result delivered when no estimate can be produced.
func Unavailable(reason string) EstimationResult {
	return EstimationResult{
		Available: false,
		Currency:  PricingCurrency,
		Reason:    reason,
	}
}

// TransformResult is the provider's answer to a transformation request.
type TransformResult struct {
	Output       string `json:"output"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}
