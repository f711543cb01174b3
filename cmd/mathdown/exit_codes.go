package main

import (
	"errors"
	"os"

	mathdown "github.com/alnah/go-mathdown"
	"github.com/alnah/go-mathdown/internal/config"
	flag "github.com/spf13/pflag"
)

// Exit codes for the mathdown CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful conversion
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, mathdown.ErrBrowserConnect) ||
		errors.Is(err, mathdown.ErrPageCreate) ||
		errors.Is(err, mathdown.ErrPageLoad) ||
		errors.Is(err, mathdown.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrReadCSS) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, flag.ErrHelp) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, ErrNoMarkdownFiles) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, mathdown.ErrEmptyMarkdown) ||
		errors.Is(err, mathdown.ErrInvalidPageSize) ||
		errors.Is(err, mathdown.ErrInvalidOrientation) ||
		errors.Is(err, mathdown.ErrInvalidMargin) ||
		errors.Is(err, mathdown.ErrStyleNotFound) ||
		errors.Is(err, mathdown.ErrInvalidStyleName) {
		return ExitUsage
	}

	return ExitGeneral
}
