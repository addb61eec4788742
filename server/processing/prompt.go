package processing

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/teilomillet/kotoba/config"
)

// Template names accepted in processing.request_templates.
const (
	TemplateToEnglish  = "to_english"
	TemplateToJapanese = "to_japanese"
	TemplateQuestion   = "question"
)

var defaultTemplates = map[string]string{
	TemplateToEnglish:  `rewrite this "{{.Text}}" in english, without adding anything else`,
	TemplateToJapanese: `rewrite this "{{.Text}}" in japanese, without adding anything else`,
	TemplateQuestion:   `do this: "{{.Text}}". Respond only with the answer and without "`,
}

// promptData is the value every template is executed with.
type promptData struct {
	Text string
}

// PromptBuilder renders the instruction sent to the completion API.
// Templates are compiled once so an invalid override fails at start.
type PromptBuilder struct {
	templates map[string]*template.Template
}

// NewPromptBuilder compiles the built-in templates, replacing those
// overridden in cfg. A nil cfg keeps the defaults.
func NewPromptBuilder(cfg *config.ProcessingConfig) (*PromptBuilder, error) {
	sources := make(map[string]string, len(defaultTemplates))
	for name, src := range defaultTemplates {
		sources[name] = src
	}
	if cfg != nil {
		for name, src := range cfg.RequestTemplates {
			if _, ok := defaultTemplates[name]; !ok {
				return nil, fmt.Errorf("unknown template %q", name)
			}
			sources[name] = src
		}
	}

	templates := make(map[string]*template.Template, len(sources))
	for name, src := range sources {
		t, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = t
	}

	return &PromptBuilder{templates: templates}, nil
}

// Build renders the prompt for a use case.
func (b *PromptBuilder) Build(useCase UseCase, text string) (string, error) {
	switch useCase {
	case UseCaseAutoRewrite:
		return b.Rewrite(text)
	case UseCaseQuestion:
		return b.Question(text)
	}
	return "", fmt.Errorf("no prompt for use case %q", useCase)
}

// Rewrite asks for an English version of mostly Japanese text and a
// Japanese version of anything else.
func (b *PromptBuilder) Rewrite(text string) (string, error) {
	name := TemplateToJapanese
	if IsMostlyJapanese(text) {
		name = TemplateToEnglish
	}
	return b.render(name, text)
}

// Question strips the "/q" command and asks for the answer only.
func (b *PromptBuilder) Question(text string) (string, error) {
	return b.render(TemplateQuestion, ExtractQuestion(text))
}

func (b *PromptBuilder) render(name, text string) (string, error) {
	var buf bytes.Buffer
	if err := b.templates[name].Execute(&buf, promptData{Text: text}); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return buf.String(), nil
}

// ExtractQuestion removes the two-character "/q" prefix and surrounding
// whitespace: "/q   what is 2+2?" becomes "what is 2+2?".
func ExtractQuestion(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, questionPrefix))
}
