package mathdown

import (
	"fmt"
	"strings"

	"github.com/alnah/go-mathdown/internal/clock"
	"github.com/alnah/go-mathdown/internal/dom"
	"github.com/alnah/go-mathdown/internal/typeset"
)

// Input is the text handed over by the model service.
type Input struct {
	Markdown string // model output (required)
	Title    string // document title for Document and PDF output
}

// DiagnosticKind classifies a recoverable failure.
type DiagnosticKind int

// Diagnostic kinds. None of them stop the content from being displayed.
const (
	// DiagParseFailure: Markdown conversion failed and the text was shown
	// escaped instead.
	DiagParseFailure DiagnosticKind = iota
	// DiagPlaceholderMismatch: fewer math spans came back than were protected.
	DiagPlaceholderMismatch
	// DiagTypesetUnavailable: the engine never became available; math stays
	// as source text.
	DiagTypesetUnavailable
	// DiagTypesetExpression: one expression could not be typeset.
	DiagTypesetExpression
	// DiagClipboardWrite: a copy control could not write to the clipboard.
	DiagClipboardWrite
)

// String returns a human-readable name for the kind.
func (k DiagnosticKind) String() string {
	switch k {
	case DiagParseFailure:
		return "parse-failure"
	case DiagPlaceholderMismatch:
		return "placeholder-mismatch"
	case DiagTypesetUnavailable:
		return "typeset-unavailable"
	case DiagTypesetExpression:
		return "typeset-expression"
	case DiagClipboardWrite:
		return "clipboard-write"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", int(k))
	}
}

// Diagnostic reports a failure that was handled locally.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Err     error
}

func (d Diagnostic) String() string {
	if d.Err == nil {
		return d.Kind.String() + ": " + d.Message
	}
	return d.Kind.String() + ": " + d.Message + ": " + d.Err.Error()
}

// Result is the outcome of one render.
type Result struct {
	HTML        string       // sanitized fragment
	Math        int          // math spans restored
	Diagnostics []Diagnostic // recoverable failures, in order
}

// TableClasses are the class names added to table markup.
type TableClasses struct {
	Table string
	Head  string
	Body  string
	Row   string
	Cell  string
}

// Typesetting types, re-exported so callers can supply their own engine,
// clock or clipboard.
type (
	Engine          = typeset.Engine
	EngineProbe     = typeset.Probe
	MathMLEngine    = typeset.MathMLEngine
	Delimiter       = typeset.Delimiter
	Report          = typeset.Report
	TypesetState    = typeset.State
	Clock           = clock.Clock
	Timer           = clock.Timer
	Clipboard       = dom.Clipboard
	SystemClipboard = dom.SystemClipboard
)

// Typesetting states.
const (
	TypesetIdle     = typeset.Idle
	TypesetPolling  = typeset.Polling
	TypesetReady    = typeset.Ready
	TypesetTimedOut = typeset.TimedOut
)

// NewMathMLEngine returns the treeblood-backed engine. macros maps TeX
// command names to their expansion.
func NewMathMLEngine(macros map[string]string) *MathMLEngine {
	return typeset.NewMathMLEngine(macros)
}

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in inches.
const (
	MinMargin     = 0.25
	MaxMargin     = 3.0
	DefaultMargin = 0.5
)

// PageSettings configures PDF page dimensions.
type PageSettings struct {
	Size        string  // "letter", "a4", "legal"
	Orientation string  // "portrait", "landscape"
	Margin      float64 // inches, applied to all sides
}

// DefaultPageSettings returns page settings with default values.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:        PageSizeLetter,
		Orientation: OrientationPortrait,
		Margin:      DefaultMargin,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}

	if !isValidPageSize(p.Size) {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}

	if !isValidOrientation(p.Orientation) {
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}

	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}

	return nil
}

func isValidPageSize(size string) bool {
	switch strings.ToLower(size) {
	case PageSizeLetter, PageSizeA4, PageSizeLegal:
		return true
	}
	return false
}

func isValidOrientation(orientation string) bool {
	switch strings.ToLower(orientation) {
	case OrientationPortrait, OrientationLandscape:
		return true
	}
	return false
}
