package mathdown

import (
	"errors"

	"github.com/alnah/go-mathdown/internal/assets"
	"github.com/alnah/go-mathdown/internal/dom"
	"github.com/alnah/go-mathdown/internal/pipeline"
	"github.com/alnah/go-mathdown/internal/typeset"
)

// Sentinel errors for library operations.
var (
	ErrEmptyMarkdown  = errors.New("markdown content cannot be empty")
	ErrStaleRender    = errors.New("render superseded by newer content")
	ErrViewUnmounted  = errors.New("view is unmounted")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPoolClosed     = errors.New("exporter pool closed")

	// Stage errors, shared with the internal packages so errors.Is works
	// on anything a diagnostic carries.
	ErrHTMLConversion     = pipeline.ErrHTMLConversion
	ErrTypesetUnavailable = typeset.ErrUnavailable
	ErrTypesetExpression  = typeset.ErrExpression
	ErrClipboardWrite     = dom.ErrClipboardWrite
	ErrCodeBlockNotFound  = dom.ErrBlockNotFound
	ErrStyleNotFound      = assets.ErrStyleNotFound
	ErrInvalidStyleName   = assets.ErrInvalidAssetName

	// Page settings validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")
)
