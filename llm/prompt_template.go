package llm

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches {{name}} markers. Names may contain any
// character except a closing brace pair, which keeps the substitution
// rules trivial and language-agnostic.
var placeholderPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// PromptTemplate is a prompt body with {{name}} placeholders plus the
// default values to substitute for them. Templates are value-like:
// Render never mutates the template, and Clone produces an independent
// copy safe to edit.
type PromptTemplate struct {
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description,omitempty"`
	Template    string            `json:"template" validate:"required"`
	Variables   map[string]string `json:"variables,omitempty"`
}

type PromptTemplateOption func(*PromptTemplate)

func NewPromptTemplate(name, description, template string, opts ...PromptTemplateOption) *PromptTemplate {
	pt := &PromptTemplate{
		Name:        name,
		Description: description,
		Template:    template,
		Variables:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(pt)
	}
	return pt
}

// WithPromptOptions sets default values substituted for placeholders
// the caller does not supply at render time.
func WithPromptOptions(variables map[string]string) PromptTemplateOption {
	return func(pt *PromptTemplate) {
		for k, v := range variables {
			pt.Variables[k] = v
		}
	}
}

// Render substitutes placeholder markers with the given values, falling
// back to the template defaults. A placeholder with no value in either
// map is an error: silently leaving markers in an outgoing prompt has
// caused too many confusing generations.
func (pt *PromptTemplate) Render(vars map[string]string) (string, error) {
	out := pt.Template
	for _, name := range pt.Placeholders() {
		value, ok := vars[name]
		if !ok {
			value, ok = pt.Variables[name]
		}
		if !ok {
			return "", fmt.Errorf("template %q: no value for placeholder {{%s}}", pt.Name, name)
		}
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out, nil
}

// Placeholders returns the distinct placeholder names in template
// order.
func (pt *PromptTemplate) Placeholders() []string {
	matches := placeholderPattern.FindAllStringSubmatch(pt.Template, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Clone returns an independent copy.
func (pt *PromptTemplate) Clone() *PromptTemplate {
	vars := make(map[string]string, len(pt.Variables))
	for k, v := range pt.Variables {
		vars[k] = v
	}
	return &PromptTemplate{
		Name:        pt.Name,
		Description: pt.Description,
		Template:    pt.Template,
		Variables:   vars,
	}
}

// WithText returns a copy carrying a replacement body. Candidate
// generation uses this to derive variants without touching the
// original.
func (pt *PromptTemplate) WithText(template string) *PromptTemplate {
	clone := pt.Clone()
	clone.Template = template
	return clone
}
