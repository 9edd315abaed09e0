// Package service is the caller-facing API of layoutkit: parse layouts
// and screenshots into templates, validate them, apply them to a
// workspace and export a workspace back into a template.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rcliao/layoutkit/internal/builder"
	"github.com/rcliao/layoutkit/internal/model"
	"github.com/rcliao/layoutkit/internal/ocr"
	"github.com/rcliao/layoutkit/internal/parser"
	"github.com/rcliao/layoutkit/internal/workspace"
)

// Option configures a Service.
type Option func(*Service)

// WithAnalyzer sets the screenshot analyzer. Without one AnalyzeImage
// always returns the starter template.
func WithAnalyzer(a *ocr.Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithParser replaces the layout parser.
func WithParser(p *parser.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithLogger sets the logger passed down to the builder.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithConcurrency sets the per-category channel create concurrency.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

// Service holds no per-call state and is safe for concurrent use.
type Service struct {
	parser      *parser.Parser
	analyzer    *ocr.Analyzer
	log         zerolog.Logger
	concurrency int
}

// New returns a Service.
func New(opts ...Option) *Service {
	s := &Service{log: zerolog.Nop(), concurrency: 1}
	for _, o := range opts {
		o(s)
	}
	if s.parser == nil {
		s.parser = parser.New()
	}
	if s.analyzer == nil {
		s.analyzer = ocr.NewAnalyzer(nil, ocr.WithLogger(s.log))
	}
	return s
}

// ParseLayout parses free-form layout text. Check model.Degraded on the
// result to detect that nothing usable was found.
func (s *Service) ParseLayout(text string) model.Template {
	return s.parser.Parse(text)
}

// AnalyzeImage builds a template from the screenshot at url. It never
// fails; problems yield the starter template.
func (s *Service) AnalyzeImage(ctx context.Context, url string) model.Template {
	return s.analyzer.Analyze(ctx, url)
}

// ValidateTemplate checks t against the platform ceilings.
func (s *Service) ValidateTemplate(t model.Template) error {
	return builder.Validate(t)
}

// ApplyTemplate validates t and materializes it into ws. The returned
// result is non-nil whenever materialization started.
func (s *Service) ApplyTemplate(ctx context.Context, t model.Template, ws workspace.Workspace) (*builder.Result, error) {
	if err := builder.Validate(t); err != nil {
		return nil, err
	}
	return builder.Materialize(ctx, t, ws,
		builder.WithLogger(s.log),
		builder.WithConcurrency(s.concurrency),
		builder.WithReason("layoutkit template build"),
	)
}

// ExportTemplate reads ws back into a template.
func (s *Service) ExportTemplate(ctx context.Context, ws workspace.Workspace) (model.Template, error) {
	return builder.Extract(ctx, ws)
}

// ImportRoles creates the roles of t in ws without touching channels.
func (s *Service) ImportRoles(ctx context.Context, t model.Template, ws workspace.Workspace) ([]string, error) {
	if n := len(t.Roles); n > model.MaxRoles {
		return nil, &builder.InvalidError{Reason: fmt.Sprintf("%d roles exceeds the limit of %d", n, model.MaxRoles)}
	}
	return builder.CreateRoles(ctx, t.Roles, ws,
		builder.WithLogger(s.log),
		builder.WithReason("layoutkit role import"),
	)
}

// Preview limits.
const (
	previewCategories = 4
	previewChannels   = 3
)

// Preview renders a short human summary of t.
func Preview(t model.Template) string {
	var b strings.Builder

	summary := t.Summary
	if summary == "" {
		summary = model.Summarize(t)
	}
	b.WriteString(summary)
	b.WriteString("\n")

	if len(t.Categories) == 0 {
		b.WriteString("No categories detected.\n")
	}
	for i, c := range t.Categories {
		if i == previewCategories {
			fmt.Fprintf(&b, "  ... %d more\n", len(t.Categories)-previewCategories)
			break
		}
		names := make([]string, 0, previewChannels)
		for j, ch := range c.Channels {
			if j == previewChannels {
				break
			}
			names = append(names, ch.Name)
		}
		line := fmt.Sprintf("  %s (%d ch) %s", c.Name, len(c.Channels), strings.Join(names, ", "))
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}

	if len(t.Roles) > 0 {
		fmt.Fprintf(&b, "Roles detected: %d role definition(s) found.\n", len(t.Roles))
	}
	return b.String()
}
