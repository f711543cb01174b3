package pipeline

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Highlight placeholders use Unicode Private Use Area characters.
// They pass through Goldmark unchanged (no WithUnsafe needed) and are
// converted to <mark> tags after HTML generation.
const (
	MarkStartPlaceholder = "\uE000" // U+E000: Private Use Area start
	MarkEndPlaceholder   = "\uE001" // U+E001: Private Use Area end
)

// Precompiled regex patterns for performance.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Compress multiple blank lines to max 2
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)

	// Highlight syntax ==text==
	highlightPattern = regexp.MustCompile(`==([^=\n]+?)==`)

	// Fenced code block delimiter (backticks or tildes)
	fencedCodeBlock = regexp.MustCompile("^\\s*(```|~~~)")
)

// MarkdownPreprocessor defines the contract for markdown preprocessing.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string) string
}

// LLMPreprocessor cleans model output before protection and conversion.
// The zero value applies every step; the Skip fields turn steps off.
type LLMPreprocessor struct {
	SkipNormalizeMarkup  bool
	SkipCanonicalizeMath bool
}

// PreprocessMarkdown applies all transformations to prepare model output
// for conversion. Order matters: line endings and Unicode form first so the
// later patterns see canonical input, markup cleanup before math rewriting
// so stray markers do not split expressions.
func (p *LLMPreprocessor) PreprocessMarkdown(ctx context.Context, content string) string {
	if ctx.Err() != nil {
		return content
	}

	content = normalizeLineEndings(content)
	content = norm.NFC.String(content)
	if !p.SkipNormalizeMarkup {
		content = NormalizeMarkup(content)
	}
	if !p.SkipCanonicalizeMath {
		content = CanonicalizeMath(content)
	}
	content = compressBlankLines(content)
	return content
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// compressBlankLines limits consecutive blank lines to 2 maximum.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// ConvertHighlights transforms ==text== to placeholder markers, skipping
// fenced code. It runs on protected text so math such as $a==b$ is never
// split. The placeholders become <mark> tags after Goldmark via
// ConvertMarkPlaceholders.
func ConvertHighlights(content string) string {
	return mapOutsideFences(content, func(line string) string {
		return highlightPattern.ReplaceAllString(line, MarkStartPlaceholder+"$1"+MarkEndPlaceholder)
	})
}

// ConvertMarkPlaceholders converts placeholder markers to <mark> tags.
// Called after Goldmark HTML conversion and before sanitization, which
// keeps <mark> (it is part of the UGC policy).
func ConvertMarkPlaceholders(content string) string {
	return strings.ReplaceAll(
		strings.ReplaceAll(content, MarkStartPlaceholder, "<mark>"),
		MarkEndPlaceholder, "</mark>",
	)
}

// mapOutsideFences applies fn to every line that is not inside a fenced
// code block. Fence lines themselves are left untouched.
func mapOutsideFences(content string, fn func(line string) string) string {
	lines := strings.Split(content, "\n")
	inCodeBlock := false
	for i, line := range lines {
		if fencedCodeBlock.MatchString(line) {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		lines[i] = fn(line)
	}
	return strings.Join(lines, "\n")
}
