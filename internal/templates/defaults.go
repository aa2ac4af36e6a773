package templates

import "github.com/davidbz/draftlock/internal/domain"

// Defaults returns the built-in templates, one default per mode.
func Defaults() []domain.Template {
	return []domain.Template{
		{
			Name: "Chat: conclusion first, short",
			Mode: domain.ModeChat,
			Body: `You are an editing assistant for team chat posts.

Rules:
- Put the conclusion on the first line
- Keep sentences short
- At most two sentences of background
- Remove emotional wording, self-justification and excessive politeness
- Use bullet points when they help readability`,
			IsDefault: true,
		},
		{
			Name: "Doc: background / issue / decision / next",
			Mode: domain.ModeDoc,
			Body: `Organize the following text into these sections:

- Background
- Issue
- Decision
- Next Action

Rules:
- Separate facts from opinions
- Remove vague wording
- Prefer bullet points`,
			IsDefault: true,
		},
		{
			Name: "PR: What / Why / How / Risk / Test",
			Mode: domain.ModePR,
			Body: `Turn the following change description into a pull request body in Markdown.

Required sections:
- What
- Why
- How
- Risk
- Test

Rules:
- Do not guess at anything you cannot state with certainty
- Be specific enough that the change is clear
- Prefer bullet points`,
			IsDefault: true,
		},
		{
			Name: "Notion: ready to paste",
			Mode: domain.ModeNotion,
			Body: `Organize the following text so it can be pasted into Notion (headings and bullet points).

Rules:
- Most important first, details after
- Briefly explain terms on first use
- Remove vague wording`,
			IsDefault: true,
		},
		{
			Name: "Mail: subject and body",
			Mode: domain.ModeMail,
			Body: `Write a business email covering the following request.

Output format:
- Subject:
- Body:

Rules:
- State the purpose at the start
- Keep paragraphs short
- Stay matter-of-fact`,
			IsDefault: true,
		},
	}
}
