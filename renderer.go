package mathdown

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/alnah/go-mathdown/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.LLMPreprocessor)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.CSSInjector          = (*pipeline.CSSInjection)(nil)
)

// DefaultTableClasses matches the embedded stylesheet.
var DefaultTableClasses = TableClasses(pipeline.DefaultTableClasses)

// Option configures a Renderer.
type Option func(*Renderer)

// rendererConfig holds the settings options can change.
type rendererConfig struct {
	skipNormalizeMarkup  bool
	skipCanonicalizeMath bool
	tables               TableClasses
}

// WithLogger sets the logger receiving diagnostics. Defaults to discarding.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithoutMarkupNormalization keeps orphaned bold markers as written.
func WithoutMarkupNormalization() Option {
	return func(r *Renderer) {
		r.cfg.skipNormalizeMarkup = true
	}
}

// WithoutMathCanonicalization leaves ad hoc math notation unconverted.
func WithoutMathCanonicalization() Option {
	return func(r *Renderer) {
		r.cfg.skipCanonicalizeMath = true
	}
}

// WithTableClasses overrides the classes added to tables. Empty fields keep
// their default.
func WithTableClasses(c TableClasses) Option {
	return func(r *Renderer) {
		r.cfg.tables = mergeTableClasses(r.cfg.tables, c)
	}
}

// Renderer runs the text-to-safe-HTML pipeline. It holds no per-render
// state and is safe for concurrent use.
type Renderer struct {
	cfg           rendererConfig
	logger        *slog.Logger
	preprocessor  pipeline.MarkdownPreprocessor
	htmlConverter pipeline.HTMLConverter
	tableStyler   *pipeline.TableStyler
	sanitizer     *pipeline.Sanitizer
}

// NewRenderer creates a Renderer with default configuration.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		cfg:           rendererConfig{tables: DefaultTableClasses},
		logger:        slog.New(slog.DiscardHandler),
		htmlConverter: pipeline.NewGoldmarkConverter(),
		sanitizer:     pipeline.NewSanitizer(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.preprocessor = &pipeline.LLMPreprocessor{
		SkipNormalizeMarkup:  r.cfg.skipNormalizeMarkup,
		SkipCanonicalizeMath: r.cfg.skipCanonicalizeMath,
	}
	r.tableStyler = pipeline.NewTableStyler(pipeline.TableClasses(r.cfg.tables))
	return r
}

// Render runs every stage on input and returns the sanitized fragment.
// Conversion failures are reported as diagnostics, never as errors: the
// only errors are ErrEmptyMarkdown, context cancellation and recovered
// panics. The fragment is sanitized on every path that returns one.
func (r *Renderer) Render(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, fmt.Errorf("internal error: %v", rec)
		}
	}()

	if strings.TrimSpace(input.Markdown) == "" {
		return nil, ErrEmptyMarkdown
	}

	res := &Result{}

	text := r.preprocessor.PreprocessMarkdown(ctx, input.Markdown)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	protected, reg := pipeline.Protect(text)
	protected = pipeline.ConvertHighlights(protected)

	htmlContent, err := r.htmlConverter.ToHTML(ctx, protected)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("markdown conversion failed, showing text", slog.Any("error", err))
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    DiagParseFailure,
			Message: "markdown conversion failed, showing escaped text",
			Err:     err,
		})
		htmlContent = "<p>" + html.EscapeString(protected) + "</p>"
	}

	htmlContent = r.tableStyler.StyleTables(htmlContent)
	htmlContent = pipeline.ConvertMarkPlaceholders(htmlContent)

	htmlContent, restored := pipeline.Restore(htmlContent, reg)
	if restored != reg.Len() {
		r.logger.Warn("math spans lost during conversion",
			slog.Int("protected", reg.Len()),
			slog.Int("restored", restored))
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    DiagPlaceholderMismatch,
			Message: fmt.Sprintf("restored %d of %d math spans", restored, reg.Len()),
		})
	}
	htmlContent = pipeline.StripPlaceholders(htmlContent)

	res.HTML = r.sanitizer.Sanitize(htmlContent)
	res.Math = restored
	return res, nil
}

func mergeTableClasses(base, over TableClasses) TableClasses {
	if over.Table != "" {
		base.Table = over.Table
	}
	if over.Head != "" {
		base.Head = over.Head
	}
	if over.Body != "" {
		base.Body = over.Body
	}
	if over.Row != "" {
		base.Row = over.Row
	}
	if over.Cell != "" {
		base.Cell = over.Cell
	}
	return base
}
