// Package templates holds the prompt template library.
package templates

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/davidbz/draftlock/internal/domain"
)

// idNamespace derives stable IDs for templates that do not declare one.
//
//nolint:gochecknoglobals // constant namespace
var idNamespace = uuid.MustParse("6f1d6c1e-2f1b-5b7e-9a55-0d2b7f6f4a10")

// Config locates the template file.
type Config struct {
	// Path is a YAML template file. Empty selects the built-in templates.
	Path string `env:"TEMPLATES_PATH"`
}

// Library implements domain.TemplateSource over an immutable template list.
type Library struct {
	templates []domain.Template
	byID      map[uuid.UUID]int
}

// NewLibrary validates the templates and builds a library.
func NewLibrary(templates []domain.Template) (*Library, error) {
	l := &Library{
		templates: make([]domain.Template, 0, len(templates)),
		byID:      make(map[uuid.UUID]int, len(templates)),
	}

	for i, tmpl := range templates {
		if _, err := domain.ParseDraftMode(string(tmpl.Mode)); err != nil {
			return nil, fmt.Errorf("template %d (%q): %w", i, tmpl.Name, err)
		}
		if strings.TrimSpace(tmpl.Body) == "" {
			return nil, fmt.Errorf("template %d (%q): body is required", i, tmpl.Name)
		}
		if tmpl.ID == uuid.Nil {
			tmpl.ID = deriveID(tmpl)
		}
		if tmpl.Version <= 0 {
			tmpl.Version = 1
		}
		if _, dup := l.byID[tmpl.ID]; dup {
			return nil, fmt.Errorf("template %d (%q): duplicate id %s", i, tmpl.Name, tmpl.ID)
		}

		l.byID[tmpl.ID] = len(l.templates)
		l.templates = append(l.templates, tmpl)
	}

	return l, nil
}

// New builds the library from the configured file or the built-in templates
// (DI constructor).
func New(cfg *Config) (*Library, error) {
	if cfg == nil || cfg.Path == "" {
		return NewLibrary(Defaults())
	}

	templates, err := Load(cfg.Path)
	if err != nil {
		return nil, err
	}
	return NewLibrary(templates)
}

// Template returns the template with the given ID.
func (l *Library) Template(_ context.Context, id uuid.UUID) (domain.Template, error) {
	idx, ok := l.byID[id]
	if !ok {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	return l.templates[idx], nil
}

// DefaultTemplate returns the template flagged as default for the mode, or
// the first template of that mode.
func (l *Library) DefaultTemplate(_ context.Context, mode domain.DraftMode) (domain.Template, error) {
	var first *domain.Template
	for i := range l.templates {
		tmpl := &l.templates[i]
		if tmpl.Mode != mode {
			continue
		}
		if tmpl.IsDefault {
			return *tmpl, nil
		}
		if first == nil {
			first = tmpl
		}
	}

	if first == nil {
		return domain.Template{}, fmt.Errorf("%w: no template for mode %s", domain.ErrTemplateNotFound, mode)
	}
	return *first, nil
}

// List returns the templates for a mode, or all templates when mode is empty.
func (l *Library) List(mode domain.DraftMode) []domain.Template {
	out := make([]domain.Template, 0, len(l.templates))
	for _, tmpl := range l.templates {
		if mode == "" || tmpl.Mode == mode {
			out = append(out, tmpl)
		}
	}
	return out
}

func deriveID(tmpl domain.Template) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(string(tmpl.Mode)+"/"+tmpl.Name))
}

// templateFile is the YAML layout of a template file.
type templateFile struct {
	Templates []templateEntry `yaml:"templates"`
}

type templateEntry struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Mode         string `yaml:"mode"`
	SystemPrompt string `yaml:"system_prompt"`
	Body         string `yaml:"body"`
	Default      bool   `yaml:"default"`
	Version      int    `yaml:"version"`
}

// Load reads templates from a YAML file.
func Load(path string) ([]domain.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %q: %w", path, err)
	}

	templates, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file %q: %w", path, err)
	}
	return templates, nil
}

// Parse decodes templates from YAML.
func Parse(data []byte) ([]domain.Template, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	templates := make([]domain.Template, 0, len(file.Templates))
	for i, entry := range file.Templates {
		var id uuid.UUID
		if entry.ID != "" {
			parsed, err := uuid.Parse(entry.ID)
			if err != nil {
				return nil, fmt.Errorf("templates[%d]: invalid id: %w", i, err)
			}
			id = parsed
		}

		templates = append(templates, domain.Template{
			ID:           id,
			Name:         entry.Name,
			Mode:         domain.DraftMode(entry.Mode),
			SystemPrompt: entry.SystemPrompt,
			Body:         entry.Body,
			IsDefault:    entry.Default,
			Version:      entry.Version,
		})
	}

	return templates, nil
}
