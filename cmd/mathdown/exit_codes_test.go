package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	mathdown "github.com/alnah/go-mathdown"
	"github.com/alnah/go-mathdown/internal/config"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"browser connect", mathdown.ErrBrowserConnect, ExitBrowser},
		{"wrapped PDF generation", fmt.Errorf("file.md: %w", mathdown.ErrPDFGeneration), ExitBrowser},
		{"not exist", os.ErrNotExist, ExitIO},
		{"read markdown", fmt.Errorf("%w: boom", ErrReadMarkdown), ExitIO},
		{"no input", ErrNoInput, ExitIO},
		{"write output", ErrWriteOutput, ExitIO},
		{"usage", ErrUsage, ExitUsage},
		{"config parse", fmt.Errorf("loading config: %w", config.ErrConfigParse), ExitUsage},
		{"config value", config.ErrInvalidValue, ExitUsage},
		{"empty markdown", mathdown.ErrEmptyMarkdown, ExitUsage},
		{"style not found", mathdown.ErrStyleNotFound, ExitUsage},
		{"invalid margin", mathdown.ErrInvalidMargin, ExitUsage},
		{"bad timeout", ErrInvalidTimeout, ExitUsage},
		{"batch failure", ErrConversionFailed, ExitGeneral},
		{"unknown", errors.New("unexpected"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
