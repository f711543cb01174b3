package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	mathdown "github.com/alnah/go-mathdown"
	"github.com/alnah/go-mathdown/internal/config"
	"github.com/alnah/go-mathdown/internal/hints"
)

// defaultStdinTitle is the document title for stdin input without --title.
const defaultStdinTitle = "Document"

// run executes one CLI invocation.
func run(ctx context.Context, args []string, f *cliFlags, env *Environment) error {
	logger := newLogger(env.Stderr, f)

	cfg, err := loadConfig(f.config)
	if err != nil {
		return err
	}

	p, err := buildParams(f, cfg, logger)
	if err != nil {
		return err
	}

	inputPath, err := resolveInputPath(args, cfg)
	if err != nil {
		return err
	}

	var pool *mathdown.ExporterPool
	newPool := func(size int) Pool {
		opts := []mathdown.ExporterOption{mathdown.WithPageSettings(p.page)}
		if p.timeout > 0 {
			opts = append(opts, mathdown.WithExportTimeout(p.timeout))
		}
		pool = mathdown.NewExporterPool(size, opts...)
		return &exporterPool{pool: pool}
	}
	defer func() {
		if pool != nil {
			if err := pool.Close(); err != nil {
				logger.Warn("closing browser", slog.Any("error", err))
			}
		}
	}()

	if inputPath == "" {
		return runStdin(ctx, f, p, env, newPool)
	}
	return runFiles(ctx, inputPath, f, p, cfg, env, newPool)
}

// newLogger builds the stderr logger. --quiet keeps errors only, --verbose
// adds debug records.
func newLogger(w io.Writer, f *cliFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case f.quiet:
		level = slog.LevelError
	case f.verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveInputPath returns the positional input, the configured default
// directory, or "" for stdin.
func resolveInputPath(args []string, cfg *config.Config) (string, error) {
	switch len(args) {
	case 0:
		return cfg.Input.DefaultDir, nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("%w: expected one input, got %d", ErrUsage, len(args))
	}
}

// runStdin converts stdin to --output, or to stdout.
func runStdin(ctx context.Context, f *cliFlags, p *conversionParams, env *Environment, newPool func(int) Pool) error {
	if env.StdinIsTerminal != nil && env.StdinIsTerminal() {
		return fmt.Errorf("%w%s", ErrNoInput, hints.ForNoInput())
	}

	start := time.Now()
	content, err := io.ReadAll(env.Stdin)
	if err != nil {
		return fmt.Errorf("%w: stdin: %v", ErrReadMarkdown, err)
	}

	var exp Exporter
	if p.format == config.FormatPDF {
		pool := newPool(1)
		exp, err = pool.Acquire()
		if err != nil {
			return err
		}
		defer pool.Release(exp)
	}

	title := p.title
	if title == "" {
		title = defaultStdinTitle
	}

	out, res, err := renderOutput(ctx, p, string(content), title, exp)
	if err != nil {
		return err
	}

	if n := logDiagnostics(p.logger, "stdin", res.Diagnostics, p.engine == nil); n > 0 && !f.quiet {
		fmt.Fprintln(env.Stderr, strings.TrimPrefix(hints.ForMathExpression(), "\n"))
	}

	if f.output == "" {
		if _, err := env.Stdout.Write(out); err != nil {
			return fmt.Errorf("%w: stdout: %v", ErrWriteOutput, err)
		}
		return nil
	}

	// #nosec G306 -- outputs are meant to be readable
	if err := os.WriteFile(f.output, out, filePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	p.logger.Debug("converted", slog.String("output", f.output), slog.Int("math", res.Math), slog.Duration("took", time.Since(start)))
	return nil
}

// runFiles converts a Markdown file or every Markdown file under a directory.
func runFiles(ctx context.Context, inputPath string, f *cliFlags, p *conversionParams, cfg *config.Config, env *Environment, newPool func(int) Pool) error {
	outputDir := f.output
	if outputDir == "" {
		outputDir = cfg.Output.DefaultDir
	}

	files, err := discoverFiles(inputPath, outputDir, outputExt(p.format))
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w in %s", ErrNoMarkdownFiles, inputPath)
	}

	var pool Pool
	if p.format == config.FormatPDF {
		size := mathdown.ResolvePoolSize(p.workers)
		if size > len(files) {
			size = len(files)
		}
		pool = newPool(size)
		p.logger.Debug("exporter pool", slog.Int("size", size))
	}

	results := convertBatch(ctx, pool, files, p)
	summary := printResults(results, f, p, env)

	if summary.Expressions > 0 && !f.quiet {
		fmt.Fprintln(env.Stderr, strings.TrimPrefix(hints.ForMathExpression(), "\n"))
	}

	if summary.Failed > 0 {
		// Single file: surface its own error so the exit code matches it.
		if len(results) == 1 {
			return results[0].Err
		}
		return fmt.Errorf("%w: %d of %d files", ErrConversionFailed, summary.Failed, len(results))
	}
	return nil
}
