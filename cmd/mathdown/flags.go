package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// pageFlags holds page layout flags.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
}

// cliFlags holds every command-line flag.
type cliFlags struct {
	config    string
	output    string
	format    string
	title     string
	style     string
	assetPath string
	noStyle   bool
	workers   int
	timeout   string

	noTypeset      bool
	noNormalize    bool
	noCanonicalize bool

	page pageFlags

	quiet   bool
	verbose bool
	version bool
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: letter, a4, legal")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in inches (0.25-3.0)")
}

// parseFlags parses args (without the program name) and returns the
// positional arguments.
func parseFlags(args []string, stderr io.Writer) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("mathdown", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &cliFlags{}

	// I/O flags
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.StringVarP(&f.format, "format", "f", "", "output format: fragment, html, pdf (default html)")
	fs.StringVar(&f.title, "title", "", "document title (default: file name)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "PDF page load timeout (e.g., 30s, 2m)")

	// Styling
	fs.StringVarP(&f.style, "style", "s", "", "CSS style name or file path")
	fs.StringVar(&f.assetPath, "asset-path", "", "directory with styles/NAME.css overrides")
	fs.BoolVar(&f.noStyle, "no-style", false, "disable CSS styling")

	// Pipeline switches
	fs.BoolVar(&f.noTypeset, "no-typeset", false, "leave math as TeX source")
	fs.BoolVar(&f.noNormalize, "no-normalize", false, "keep stray ** markers")
	fs.BoolVar(&f.noCanonicalize, "no-canonicalize", false, "keep sqrt(x), a^b and a/b as written")

	addPageFlags(fs, &f.page)

	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timings")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: mathdown [flags] [FILE.md | DIR]")
		fmt.Fprintln(stderr, "\nRenders model output (Markdown with TeX math) to safe HTML or PDF.")
		fmt.Fprintln(stderr, "Reads stdin when no input is given.\n\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if f.quiet && f.verbose {
		return nil, nil, fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", ErrUsage)
	}

	return f, fs.Args(), nil
}
