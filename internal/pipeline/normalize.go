package pipeline

import (
	"regexp"
	"strings"
)

const boldMarker = "**"

var (
	// A line holding nothing but a bold marker.
	boldOnlyLine = regexp.MustCompile(`^[ \t]*\*\*[ \t]*$`)

	// List bullet or ordinal that may precede a leading marker.
	listItemPrefix = regexp.MustCompile(`^[ \t]*(?:[-+*]|\d+[.)])[ \t]+`)
)

// markupPasses run in this order. Earlier passes remove degenerate cases
// (marker-only lines, whitespace-isolated markers) that would otherwise
// make the single-marker checks of the later passes miscount.
var markupPasses = []func(string) string{
	dropBoldOnlyLine,
	dropIsolatedMarkers,
	dropLeadingOrphan,
	dropTrailingOrphan,
}

// NormalizeMarkup removes orphaned bold markers from model output.
// Fenced code blocks, inline code spans and delimited math are left
// untouched: "$x ** 2$" keeps its operator.
// The passes only ever delete characters, so repeating them until nothing
// changes terminates and makes the function idempotent.
func NormalizeMarkup(content string) string {
	if !strings.Contains(content, boldMarker) {
		return content
	}
	c := &canonicalizer{marker: pickMarker(content, stashOpen)}
	content = c.stashMath(content)
	for {
		next := mapOutsideFences(content, normalizeLine)
		if next == content {
			return c.restore(next)
		}
		content = next
	}
}

// normalizeLine applies every markup pass to a single line once.
func normalizeLine(line string) string {
	if !strings.Contains(line, boldMarker) {
		return line
	}
	for _, pass := range markupPasses {
		line = pass(line)
	}
	return line
}

// dropBoldOnlyLine blanks a line that contains only a bold marker.
func dropBoldOnlyLine(line string) string {
	if boldOnlyLine.MatchString(line) {
		return ""
	}
	return line
}

// dropIsolatedMarkers removes markers with whitespace or a line edge on
// both sides ("a ** b" becomes "a b"). Inline code spans are kept.
func dropIsolatedMarkers(line string) string {
	return mapOutsideCodeSpans(line, func(seg string) string {
		var b strings.Builder
		i := 0
		for {
			j := strings.Index(seg[i:], boldMarker)
			if j < 0 {
				b.WriteString(seg[i:])
				return b.String()
			}
			j += i
			end := j + len(boldMarker)
			leftFree := j == 0 || isBlank(seg[j-1])
			rightFree := end == len(seg) || isBlank(seg[end])
			if !leftFree || !rightFree {
				b.WriteString(seg[i:end])
				i = end
				continue
			}
			b.WriteString(seg[i:j])
			if j > 0 && end < len(seg) {
				end++ // collapse the double gap
			}
			i = end
		}
	})
}

// dropLeadingOrphan removes a marker that opens the line (after an optional
// list bullet) when it is the only marker on the line.
func dropLeadingOrphan(line string) string {
	if countMarkers(line) != 1 {
		return line
	}
	prefix := listItemPrefix.FindString(line)
	rest := line[len(prefix):]
	if !strings.HasPrefix(rest, boldMarker) {
		return line
	}
	return prefix + rest[len(boldMarker):]
}

// dropTrailingOrphan removes a marker that closes the line when it is the
// only marker on the line. Trailing whitespace (hard breaks) is preserved.
func dropTrailingOrphan(line string) string {
	if countMarkers(line) != 1 {
		return line
	}
	trimmed := strings.TrimRight(line, " \t")
	if !strings.HasSuffix(trimmed, boldMarker) {
		return line
	}
	return trimmed[:len(trimmed)-len(boldMarker)] + line[len(trimmed):]
}

// countMarkers counts bold markers outside inline code spans.
func countMarkers(line string) int {
	n := 0
	mapOutsideCodeSpans(line, func(seg string) string {
		n += strings.Count(seg, boldMarker)
		return seg
	})
	return n
}

// mapOutsideCodeSpans applies fn to the parts of line that are not inside
// backtick code spans. With an unbalanced backtick count the whole line is
// treated as prose, matching how CommonMark renders it.
func mapOutsideCodeSpans(line string, fn func(string) string) string {
	if strings.Count(line, "`")%2 != 0 {
		return fn(line)
	}
	parts := strings.Split(line, "`")
	for i := 0; i < len(parts); i += 2 {
		parts[i] = fn(parts[i])
	}
	return strings.Join(parts, "`")
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
