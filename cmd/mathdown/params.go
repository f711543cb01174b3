package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	mathdown "github.com/alnah/go-mathdown"
	"github.com/alnah/go-mathdown/internal/config"
	"github.com/alnah/go-mathdown/internal/fileutil"
	"github.com/alnah/go-mathdown/internal/hints"
)

// conversionParams groups everything shared by the files of one run.
type conversionParams struct {
	format   string
	title    string // empty = derive from file name
	css      string
	workers  int
	timeout  time.Duration
	page     *mathdown.PageSettings
	renderer *mathdown.Renderer
	engine   mathdown.Engine // nil when typesetting is disabled
	logger   *slog.Logger
}

// loadConfig returns the config named by the --config flag, or defaults.
func loadConfig(name string) (*config.Config, error) {
	if name == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(name)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !fileutil.IsFilePath(name) {
			return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags copies explicitly set flags over the config (CLI wins).
func mergeFlags(f *cliFlags, cfg *config.Config) {
	if f.format != "" {
		cfg.Output.Format = f.format
	}
	if f.title != "" {
		cfg.Output.Title = f.title
	}
	if f.style != "" {
		cfg.CSS.Style = f.style
	}
	if f.assetPath != "" {
		cfg.Assets.BasePath = f.assetPath
	}
	if f.workers != 0 {
		cfg.Workers = f.workers
	}
	if f.noTypeset {
		cfg.Typeset.Disabled = true
	}
	if f.noNormalize {
		cfg.Normalize.DisableMarkup = true
	}
	if f.noCanonicalize {
		cfg.Normalize.DisableMath = true
	}
	if f.page.size != "" {
		cfg.Page.Size = f.page.size
	}
	if f.page.orientation != "" {
		cfg.Page.Orientation = f.page.orientation
	}
	if f.page.margin != 0 {
		cfg.Page.Margin = f.page.margin
	}
}

// buildParams validates the merged configuration and prepares the shared
// renderer, engine and stylesheet.
func buildParams(f *cliFlags, cfg *config.Config, logger *slog.Logger) (*conversionParams, error) {
	mergeFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateWorkers(cfg.Workers); err != nil {
		return nil, err
	}

	timeout, err := parseTimeout(f.timeout)
	if err != nil {
		return nil, err
	}

	p := &conversionParams{
		format:  strings.ToLower(cfg.Output.Format),
		title:   cfg.Output.Title,
		workers: cfg.Workers,
		timeout: timeout,
		page:    buildPageSettings(cfg.Page),
		logger:  logger,
	}
	if p.format == "" {
		p.format = config.FormatHTML
	}

	if p.format != config.FormatFragment && !f.noStyle {
		p.css, err = resolveCSS(cfg.CSS.Style, cfg.Assets.BasePath)
		if err != nil {
			return nil, err
		}
	}

	if p.format == config.FormatPDF {
		if err := p.page.Validate(); err != nil {
			return nil, err
		}
	}

	opts := []mathdown.Option{
		mathdown.WithLogger(logger),
		mathdown.WithTableClasses(mathdown.TableClasses(cfg.Tables)),
	}
	if cfg.Normalize.DisableMarkup {
		opts = append(opts, mathdown.WithoutMarkupNormalization())
	}
	if cfg.Normalize.DisableMath {
		opts = append(opts, mathdown.WithoutMathCanonicalization())
	}
	p.renderer = mathdown.NewRenderer(opts...)

	if !cfg.Typeset.Disabled {
		p.engine = mathdown.NewMathMLEngine(cfg.Typeset.Macros)
	}
	return p, nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > mathdown.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, mathdown.MaxPoolSize)
	}
	return nil
}

// parseTimeout parses the --timeout flag; empty means the exporter default.
func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimeout, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidTimeout, s)
	}
	return d, nil
}

// buildPageSettings fills unset page fields with defaults.
func buildPageSettings(pc config.PageConfig) *mathdown.PageSettings {
	page := mathdown.DefaultPageSettings()
	if pc.Size != "" {
		page.Size = strings.ToLower(pc.Size)
	}
	if pc.Orientation != "" {
		page.Orientation = strings.ToLower(pc.Orientation)
	}
	if pc.Margin != 0 {
		page.Margin = pc.Margin
	}
	return page
}

// resolveCSS returns the stylesheet named by style: a file path is read
// as is, a name is looked up in basePath then in the embedded styles.
func resolveCSS(style, basePath string) (string, error) {
	if fileutil.IsFilePath(style) {
		data, err := os.ReadFile(style) // #nosec G304 -- user-provided stylesheet
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrReadCSS, err)
		}
		return string(data), nil
	}

	css, err := mathdown.LoadStyle(style, basePath)
	if err != nil {
		if errors.Is(err, mathdown.ErrStyleNotFound) {
			return "", fmt.Errorf("%w%s", err, hints.ForStyleNotFound(mathdown.Styles()))
		}
		return "", err
	}
	return css, nil
}

// outputExt returns the file extension written for format.
func outputExt(format string) string {
	if format == config.FormatPDF {
		return ".pdf"
	}
	return ".html"
}
