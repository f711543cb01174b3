package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// The canonicalizer stashes spans in its own placeholder namespace so it
// never collides with the registry built later by Protect.
const (
	stashOpen  = "\uE020"
	stashClose = "\uE021"
)

// Fraction heuristic bounds. A bare a/b becomes \frac{a}{b} only when the
// numerator exceeds maxDateMonth or the denominator exceeds maxDateDay.
// Anything smaller could be a day/month or month/day date, so 7/3 and
// 12/25 stay untouched while 13/2 and 1/32 convert. The rule is biased
// towards false negatives on purpose.
const (
	maxDateMonth = 12
	maxDateDay   = 31
)

var (
	// sqrt(x) written as a function call.
	sqrtCall = regexp.MustCompile(`\bsqrt\(([^()]+)\)`)

	// Coefficient before a radical sign: 2√3, 3√(x+1).
	coefRadical = regexp.MustCompile(`(\d+(?:\.\d+)?)√(\d+(?:\.\d+)?|[A-Za-z]\w*|\([^()]+\))`)

	// Bare radical sign: √2, √x, √(x+1).
	bareRadical = regexp.MustCompile(`√(\d+(?:\.\d+)?|[A-Za-z]\w*|\([^()]+\))`)

	// Power: x^2, 2^10, e^(i*pi), a^{n+1}.
	power = regexp.MustCompile(`\b([A-Za-z0-9]+(?:\.\d+)?)\^(\{[^{}]+\}|\([^()]+\)|-?[A-Za-z0-9]+(?:\.\d+)?)`)

	// Integer fraction candidate; neighbours are checked in code since RE2
	// has no look-around.
	intFraction = regexp.MustCompile(`(\d+)/(\d+)`)
)

// CanonicalizeMath rewrites ad hoc math notation into LaTeX wrapped in
// single-dollar delimiters. Existing math spans, code and URLs are stashed
// first so correct LaTeX is never processed twice, and every rewrite is
// stashed as soon as it is produced so later passes cannot match inside it.
func CanonicalizeMath(content string) string {
	c := &canonicalizer{marker: pickMarker(content, stashOpen)}

	content = c.stashExisting(content)
	content = c.rewrite(content, sqrtCall, func(m []string) (string, bool) {
		return `$\sqrt{` + m[1] + `}$`, true
	})
	content = c.rewrite(content, coefRadical, func(m []string) (string, bool) {
		return "$" + m[1] + `\sqrt{` + unparen(m[2]) + `}$`, true
	})
	content = c.rewrite(content, bareRadical, func(m []string) (string, bool) {
		return `$\sqrt{` + unparen(m[1]) + `}$`, true
	})
	content = c.rewrite(content, power, func(m []string) (string, bool) {
		return "$" + m[1] + "^{" + unbrace(unparen(m[2])) + "}$", true
	})
	content = c.rewriteFractions(content)

	return c.restore(content)
}

// canonicalizer keeps stashed spans for one call. NormalizeMarkup uses it
// too, to keep markers inside math.
type canonicalizer struct {
	marker string
	stash  []string
}

func (c *canonicalizer) put(s string) string {
	c.stash = append(c.stash, s)
	return c.marker + strconv.Itoa(len(c.stash)-1) + stashClose
}

// stashExisting hides code, link addresses and already-delimited math.
func (c *canonicalizer) stashExisting(content string) string {
	segments := splitVerbatim(content)
	for i := range segments {
		if segments[i].verbatim {
			segments[i].text = c.put(segments[i].text)
		}
	}
	return c.stashMath(joinSegments(segments))
}

// stashMath hides delimited math outside verbatim regions.
func (c *canonicalizer) stashMath(content string) string {
	segments := splitVerbatim(content)
	for _, p := range mathPatterns {
		for i := range segments {
			if segments[i].verbatim {
				continue
			}
			segments[i].text = p.re.ReplaceAllStringFunc(segments[i].text, c.put)
		}
	}
	return joinSegments(segments)
}

// rewrite replaces each match of re with the stashed output of fn.
// fn may decline a match by returning false.
func (c *canonicalizer) rewrite(content string, re *regexp.Regexp, fn func(m []string) (string, bool)) string {
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringSubmatchIndex(content, -1) {
		m := submatches(content, loc)
		out, ok := fn(m)
		if !ok {
			continue
		}
		b.WriteString(content[last:loc[0]])
		b.WriteString(c.put(out))
		last = loc[1]
	}
	b.WriteString(content[last:])
	return b.String()
}

// rewriteFractions applies the date-safe fraction heuristic.
func (c *canonicalizer) rewriteFractions(content string) string {
	var b strings.Builder
	last := 0
	for _, loc := range intFraction.FindAllStringSubmatchIndex(content, -1) {
		if !standaloneFraction(content, loc[0], loc[1]) {
			continue
		}
		num, errN := strconv.Atoi(content[loc[2]:loc[3]])
		den, errD := strconv.Atoi(content[loc[4]:loc[5]])
		if errN != nil || errD != nil || !isLikelyFraction(num, den) {
			continue
		}
		b.WriteString(content[last:loc[0]])
		b.WriteString(c.put(`$\frac{` + content[loc[2]:loc[3]] + "}{" + content[loc[4]:loc[5]] + "}$"))
		last = loc[1]
	}
	b.WriteString(content[last:])
	return b.String()
}

// isLikelyFraction reports whether num/den should be typeset as a
// fraction rather than left alone as a possible date.
func isLikelyFraction(num, den int) bool {
	return num > maxDateMonth || den > maxDateDay
}

// standaloneFraction rejects candidates that are part of a longer token:
// 12/25/2024, v1/2, /api/13/40, 13/2.5.
func standaloneFraction(s string, start, end int) bool {
	if start > 0 {
		switch prev := s[start-1]; {
		case prev == '/', prev == '.', isAlnum(prev):
			return false
		}
	}
	if end < len(s) {
		next := s[end]
		if next == '/' || isAlnum(next) {
			return false
		}
		if next == '.' && end+1 < len(s) && isDigit(s[end+1]) {
			return false
		}
	}
	return true
}

// restore expands stash placeholders. Stashed text may itself contain
// placeholders (a rewrite around stashed code), so it repeats until stable.
func (c *canonicalizer) restore(content string) string {
	if len(c.stash) == 0 {
		return content
	}
	re := regexp.MustCompile(regexp.QuoteMeta(c.marker) + `(\d+)` + regexp.QuoteMeta(stashClose))
	for range len(c.stash) + 1 {
		next := re.ReplaceAllStringFunc(content, func(m string) string {
			idx, err := strconv.Atoi(re.FindStringSubmatch(m)[1])
			if err != nil || idx >= len(c.stash) {
				return m
			}
			return c.stash[idx]
		})
		if next == content {
			break
		}
		content = next
	}
	return content
}

func submatches(s string, loc []int) []string {
	m := make([]string, len(loc)/2)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return m
}

func unparen(s string) string {
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		return s[1 : len(s)-1]
	}
	return s
}

func unbrace(s string) string {
	if len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}' {
		return s[1 : len(s)-1]
	}
	return s
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
