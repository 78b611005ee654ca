package docgen

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// Request describes one document to render.
type Request struct {
	Title    string                 `json:"title"`
	Data     map[string]interface{} `json:"data"`
	Template string                 `json:"template"`
}

// Generator renders a document for a case. The rendered bytes are handed to
// the storage layer by the caller.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// TemplateGenerator renders documents from a fixed set of named templates.
type TemplateGenerator struct {
	templates *template.Template
}

func NewTemplateGenerator(templates *template.Template) *TemplateGenerator {
	return &TemplateGenerator{templates: templates}
}

func (g *TemplateGenerator) Generate(_ context.Context, req Request) ([]byte, error) {
	tmpl := g.templates.Lookup(req.Template)
	if tmpl == nil {
		return nil, fmt.Errorf("unknown document template %q", req.Template)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]interface{}{
		"Title": req.Title,
		"Data":  req.Data,
	}); err != nil {
		return nil, fmt.Errorf("failed to render %q: %w", req.Template, err)
	}
	return buf.Bytes(), nil
}
