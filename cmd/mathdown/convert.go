package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	mathdown "github.com/alnah/go-mathdown"
	"github.com/alnah/go-mathdown/internal/config"
	"github.com/alnah/go-mathdown/internal/hints"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Sentinel errors for CLI operations.
var (
	ErrUsage              = errors.New("invalid usage")
	ErrNoInput            = errors.New("no input specified")
	ErrNoMarkdownFiles    = errors.New("no markdown files found")
	ErrReadCSS            = errors.New("failed to read CSS file")
	ErrReadMarkdown       = errors.New("failed to read markdown file")
	ErrWriteOutput        = errors.New("failed to write output file")
	ErrInvalidExtension   = errors.New("file must have .md or .markdown extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidTimeout     = errors.New("invalid timeout")
	ErrConversionFailed   = errors.New("conversion failed")
)

// Exporter prints an HTML document to PDF.
type Exporter interface {
	ExportPDF(ctx context.Context, document string) ([]byte, error)
}

// Compile-time interface implementation check.
var _ Exporter = (*mathdown.Exporter)(nil)

// Pool abstracts exporter pool operations for testability.
type Pool interface {
	Acquire() (Exporter, error)
	Release(Exporter)
	Size() int
}

// exporterPool adapts mathdown.ExporterPool to Pool.
type exporterPool struct {
	pool *mathdown.ExporterPool
}

var _ Pool = (*exporterPool)(nil)

func (p *exporterPool) Acquire() (Exporter, error) {
	exp, err := p.pool.Acquire()
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func (p *exporterPool) Release(e Exporter) {
	if exp, ok := e.(*mathdown.Exporter); ok {
		p.pool.Release(exp)
	}
}

func (p *exporterPool) Size() int {
	return p.pool.Size()
}

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath   string
	OutputPath  string
	Err         error
	Duration    time.Duration
	Math        int
	Diagnostics []mathdown.Diagnostic
}

// renderOutput turns one Markdown text into the bytes of the requested
// format. exp is only used for PDF.
func renderOutput(ctx context.Context, p *conversionParams, markdown, title string, exp Exporter) ([]byte, *mathdown.Result, error) {
	res, err := p.renderer.RenderStatic(ctx, mathdown.Input{Markdown: markdown, Title: title}, p.engine)
	if err != nil {
		return nil, nil, err
	}

	switch p.format {
	case config.FormatFragment:
		return []byte(res.HTML), res, nil
	case config.FormatPDF:
		if exp == nil {
			return nil, nil, fmt.Errorf("%w: no PDF exporter", ErrConversionFailed)
		}
		pdf, err := exp.ExportPDF(ctx, mathdown.Document(title, res.HTML, p.css))
		if err != nil {
			if errors.Is(err, mathdown.ErrBrowserConnect) {
				return nil, nil, fmt.Errorf("%w%s", err, hints.ForBrowserConnect())
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mathdown.ErrPageLoad) {
				return nil, nil, fmt.Errorf("%w%s", err, hints.ForTimeout())
			}
			return nil, nil, err
		}
		return pdf, res, nil
	default:
		return []byte(mathdown.Document(title, res.HTML, p.css)), res, nil
	}
}

// convertBatch processes files concurrently. With a nil pool (HTML
// output) workers run without an exporter.
func convertBatch(ctx context.Context, pool Pool, files []FileToConvert, p *conversionParams) []ConversionResult {
	if len(files) == 0 {
		return nil
	}

	concurrency := mathdown.ResolvePoolSize(p.workers)
	if pool != nil {
		concurrency = pool.Size()
	}
	if concurrency > len(files) {
		concurrency = len(files)
	}

	results := make([]ConversionResult, len(files))
	var wg sync.WaitGroup
	jobs := make(chan int, len(files))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var exp Exporter
			if pool != nil {
				var err error
				exp, err = pool.Acquire()
				if err != nil {
					// Exporter creation failed, mark remaining jobs as failed
					for idx := range jobs {
						results[idx] = ConversionResult{InputPath: files[idx].InputPath, Err: err}
					}
					return
				}
				defer pool.Release(exp)
			}

			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = ConversionResult{InputPath: files[idx].InputPath, Err: err}
					continue
				}
				results[idx] = convertFile(ctx, exp, files[idx], p)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertFile processes a single file and returns the result.
func convertFile(ctx context.Context, exp Exporter, f FileToConvert, p *conversionParams) ConversionResult {
	start := time.Now()
	result := ConversionResult{
		InputPath:  f.InputPath,
		OutputPath: f.OutputPath,
	}
	done := func(err error) ConversionResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	content, err := os.ReadFile(f.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		return done(fmt.Errorf("%w: %v", ErrReadMarkdown, err))
	}

	title := p.title
	if title == "" {
		title = titleFromPath(f.InputPath)
	}

	out, res, err := renderOutput(ctx, p, string(content), title, exp)
	if err != nil {
		return done(err)
	}
	result.Math = res.Math
	result.Diagnostics = res.Diagnostics

	if err := os.MkdirAll(filepath.Dir(f.OutputPath), dirPermissions); err != nil {
		return done(fmt.Errorf("%w: creating output directory: %v%s", ErrWriteOutput, err, hints.ForOutputDirectory()))
	}
	// #nosec G306 -- outputs are meant to be readable
	if err := os.WriteFile(f.OutputPath, out, filePermissions); err != nil {
		return done(fmt.Errorf("%w: %v", ErrWriteOutput, err))
	}
	return done(nil)
}

// logDiagnostics reports recoverable failures and returns how many were
// rejected math expressions.
func logDiagnostics(logger *slog.Logger, source string, diags []mathdown.Diagnostic, typesetDisabled bool) int {
	expressions := 0
	for _, d := range diags {
		if d.Kind == mathdown.DiagTypesetUnavailable && typesetDisabled {
			continue
		}
		if d.Kind == mathdown.DiagTypesetExpression {
			expressions++
		}
		attrs := []any{slog.String("file", source), slog.String("kind", d.Kind.String())}
		if d.Err != nil {
			attrs = append(attrs, slog.Any("error", d.Err))
		}
		logger.Warn(d.Message, attrs...)
	}
	return expressions
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded   int
	Failed      int
	Expressions int // math expressions left as source
}

// printResults outputs conversion results and returns the summary.
func printResults(results []ConversionResult, f *cliFlags, p *conversionParams, env *Environment) ResultSummary {
	var summary ResultSummary

	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			// A lone failure is returned to main, which prints it.
			if len(results) > 1 {
				fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			}
			continue
		}
		summary.Succeeded++
		summary.Expressions += logDiagnostics(p.logger, r.InputPath, r.Diagnostics, p.engine == nil)

		if f.quiet {
			continue
		}
		if f.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d math, %v)\n", r.InputPath, r.OutputPath, r.Math, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !f.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}
	return summary
}
