package pipeline

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// MathClass identifies the delimiter style of a math span.
type MathClass int

// Delimiter classes in protection priority order. Block dollars must be
// scanned before inline dollars: the inline pattern would otherwise pair
// the two halves of a "$$" delimiter.
const (
	DollarBlock   MathClass = iota // $$…$$
	DollarInline                   // $…$
	BracketBlock                   // \[…\]
	BracketInline                  // \(…\)
)

// String returns a human-readable name for the class.
func (c MathClass) String() string {
	switch c {
	case DollarBlock:
		return "dollar-block"
	case DollarInline:
		return "dollar-inline"
	case BracketBlock:
		return "bracket-block"
	case BracketInline:
		return "bracket-inline"
	default:
		return fmt.Sprintf("MathClass(%d)", int(c))
	}
}

// Display reports whether the class denotes display (block) math.
func (c MathClass) Display() bool {
	return c == DollarBlock || c == BracketBlock
}

// code is the single ASCII letter identifying the class in a placeholder.
func (c MathClass) code() byte {
	return 'A' + byte(c)
}

// Placeholder markers use Private Use Area characters, like the highlight
// markers, so Goldmark passes them through as plain text.
const (
	mathOpen  = "\uE010"
	mathClose = "\uE011"
)

var mathPatterns = []struct {
	class MathClass
	re    *regexp.Regexp
}{
	{DollarBlock, regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)},
	{DollarInline, regexp.MustCompile(`\$([^$\n]+?)\$`)},
	{BracketBlock, regexp.MustCompile(`(?s)\\\[(.+?)\\\]`)},
	{BracketInline, regexp.MustCompile(`(?s)\\\((.+?)\\\)`)},
}

// Fenced code blocks and inline code spans. Math delimiters inside them are
// code, not math, and highlighting would split placeholders across tokens.
var codeRegion = regexp.MustCompile("(?ms)^[ \\t]*(?:```|~~~)[^\\n]*\\n.*?^[ \\t]*(?:```|~~~)[ \\t]*$|`[^`\\n]+`")

// Link destinations, autolinks and bare URLs. Dollars and carets there
// belong to the address, and goldmark percent-encodes destinations so a
// placeholder inside one could not be restored. The first group holds the
// destination of an inline link; "\](" after a backslash closes math.
var linkRegion = regexp.MustCompile(`(?:^|[^\\])\]\((<[^>\n]*>|[^)\s]*)|<[A-Za-z][A-Za-z0-9+.-]{1,31}:[^<>\s]*>|\b(?:https?|ftp)://[^\s<>()\[\]]+|\bwww\.[^\s<>()\[\]]+`)

// Any placeholder-shaped token from either namespace, raw or in the
// percent-encoded spelling goldmark writes into URLs.
var anyPlaceholder = regexp.MustCompile(`[\x{E010}\x{E020}][0-9A-Za-z]*[\x{E011}\x{E021}]|(?i:%EE%80%[9A]0[0-9A-Za-z]*?%EE%80%[9A]1)`)

// mathTextEscaper encodes the characters the HTML parser would interpret,
// so the restored span reads back as exactly its source text.
var mathTextEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// MathSpan is one protected math expression. Source includes delimiters.
type MathSpan struct {
	Class  MathClass
	Index  int
	Source string
}

// MathRegistry holds the spans extracted by Protect, in extraction order.
// A span found inside a later one of another class is nested: its text is
// part of the outer source and it is neither listed nor counted.
type MathRegistry struct {
	spans  []MathSpan
	nested map[int]bool
	marker string
}

// Len returns the number of protected top-level spans.
func (r *MathRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.spans) - len(r.nested)
}

// Spans returns a copy of the protected top-level spans.
func (r *MathRegistry) Spans() []MathSpan {
	if r == nil {
		return nil
	}
	out := make([]MathSpan, 0, r.Len())
	for _, s := range r.spans {
		if !r.nested[s.Index] {
			out = append(out, s)
		}
	}
	return out
}

// Placeholder returns the token standing in for span i.
func (r *MathRegistry) Placeholder(i int) string {
	s := r.spans[i]
	return r.marker + string(s.Class.code()) + strconv.Itoa(s.Index) + mathClose
}

func (r *MathRegistry) add(class MathClass, source string) string {
	source = r.absorb(source)
	r.spans = append(r.spans, MathSpan{Class: class, Index: len(r.spans), Source: source})
	return r.Placeholder(len(r.spans) - 1)
}

// absorb expands placeholders of earlier spans inside source, marking those
// spans nested. \[ x + $y$ \] keeps its full text this way.
func (r *MathRegistry) absorb(source string) string {
	if !strings.Contains(source, r.marker) {
		return source
	}
	re := r.pattern()
	return re.ReplaceAllStringFunc(source, func(m string) string {
		idx, err := strconv.Atoi(re.FindStringSubmatch(m)[2])
		if err != nil || idx >= len(r.spans) {
			return m
		}
		if r.nested == nil {
			r.nested = make(map[int]bool)
		}
		r.nested[idx] = true
		return r.spans[idx].Source
	})
}

// pattern matches this registry's placeholders with any class code.
func (r *MathRegistry) pattern() *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(r.marker) + `([A-D])(\d+)` + regexp.QuoteMeta(mathClose))
}

// Protect replaces every math span outside code and link addresses with a
// placeholder and returns the protected text with the registry needed to
// restore it. Classes are scanned in priority order over the whole text.
func Protect(content string) (string, *MathRegistry) {
	reg := &MathRegistry{marker: pickMarker(content, mathOpen)}
	segments := splitVerbatim(content)

	for _, p := range mathPatterns {
		for i := range segments {
			if segments[i].verbatim {
				continue
			}
			segments[i].text = p.re.ReplaceAllStringFunc(segments[i].text, func(m string) string {
				return reg.add(p.class, m)
			})
		}
	}

	return joinSegments(segments), reg
}

// Restore substitutes each placeholder with its span source. The class
// code is not checked: the index alone identifies the span, so a
// placeholder whose tag was altered downstream still resolves.
// Returns the restored HTML and the number of distinct spans restored.
func Restore(htmlContent string, reg *MathRegistry) (string, int) {
	if reg.Len() == 0 {
		return htmlContent, 0
	}

	re := reg.pattern()
	seen := make(map[int]bool, len(reg.spans))
	out := re.ReplaceAllStringFunc(htmlContent, func(m string) string {
		sub := re.FindStringSubmatch(m)
		idx, err := strconv.Atoi(sub[2])
		if err != nil || idx >= len(reg.spans) {
			return m
		}
		if !reg.nested[idx] {
			seen[idx] = true
		}
		return mathTextEscaper.Replace(reg.spans[idx].Source)
	})
	return out, len(seen)
}

// StripPlaceholders removes any leftover placeholder token, from either
// the math or the canonicalization namespace, including percent-encoded
// tokens in attribute URLs.
func StripPlaceholders(content string) string {
	return anyPlaceholder.ReplaceAllString(content, "")
}

// pickMarker returns open, extended with a nonce when the content already
// contains it, so no placeholder can collide with input text.
func pickMarker(content, open string) string {
	marker := open
	for n := 0; strings.Contains(content, marker); n++ {
		marker = open + "n" + strconv.Itoa(n)
	}
	return marker
}

type segment struct {
	text     string
	verbatim bool
}

// splitVerbatim cuts content into prose and verbatim segments. Verbatim
// segments are code and link addresses, where delimiters are not math.
func splitVerbatim(content string) []segment {
	var segments []segment
	last := 0
	for _, r := range verbatimRegions(content) {
		if r[0] > last {
			segments = append(segments, segment{text: content[last:r[0]]})
		}
		segments = append(segments, segment{text: content[r[0]:r[1]], verbatim: true})
		last = r[1]
	}
	if last < len(content) || len(segments) == 0 {
		segments = append(segments, segment{text: content[last:]})
	}
	return segments
}

// verbatimRegions returns sorted, disjoint code and link regions. Code wins
// where the two overlap.
func verbatimRegions(content string) [][2]int {
	var regions [][2]int
	for _, loc := range codeRegion.FindAllStringIndex(content, -1) {
		regions = append(regions, [2]int{loc[0], loc[1]})
	}
	code := len(regions)
	for _, loc := range linkRegion.FindAllStringSubmatchIndex(content, -1) {
		r := [2]int{loc[0], loc[1]}
		if loc[2] >= 0 {
			r = [2]int{loc[2], loc[3]}
		}
		if r[0] == r[1] || overlapsAny(regions[:code], r) {
			continue
		}
		regions = append(regions, r)
	}
	slices.SortFunc(regions, func(a, b [2]int) int { return cmp.Compare(a[0], b[0]) })
	return regions
}

func overlapsAny(regions [][2]int, r [2]int) bool {
	for _, o := range regions {
		if r[0] < o[1] && o[0] < r[1] {
			return true
		}
	}
	return false
}

func joinSegments(segments []segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.text)
	}
	return b.String()
}
