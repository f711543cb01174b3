package pipeline

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// MathMLNamespace is the only xmlns value accepted on <math>.
const MathMLNamespace = "http://www.w3.org/1998/Math/MathML"

// MathElements are the tags the typesetting engine emits. They are allowed
// even though they never appear in converter output: the engine injects
// them after sanitization and the policy must already accept its markup
// if the result is ever sanitized again.
var MathElements = []string{
	"span", "annotation", "semantics", "mtext", "mn", "mo", "mi",
	"mspace", "mrow", "msqrt", "mtable", "mtr", "mtd", "math",
}

// mathStyleProperties are the CSS properties kept in style attributes.
// They cover table styling and the inline metrics typesetting engines use.
var mathStyleProperties = []string{
	"border-collapse", "width", "height", "min-width", "max-width",
	"text-align", "vertical-align", "position", "top", "left",
	"margin-left", "margin-right", "padding-left", "padding-right",
	"display", "font-size", "font-style", "font-weight", "color",
	"border-bottom-width", "border-top-width",
}

var ariaHiddenValue = regexp.MustCompile(`^(?:true|false)$`)

// Sanitizer applies a default-deny HTML policy extended for math markup.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer from bluemonday's UGC policy plus the
// math allowlist. Script elements, event handler attributes and
// script-scheme URLs stay denied.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: newMathPolicy()}
}

func newMathPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements(MathElements...)
	p.AllowElements("mark")
	// bluemonday drops an element left without attributes unless told
	// otherwise; MathML nests bare <mrow>, <mi> and <mo>. span keeps the
	// default treatment.
	p.AllowNoAttrs().OnElements(append(mathNoAttrElements(), "mark")...)

	// Classes drive table styling, chroma highlighting and engine output
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()
	p.AllowAttrs("aria-hidden").Matching(ariaHiddenValue).Globally()
	p.AllowAttrs("xmlns").Matching(regexp.MustCompile(`^` + regexp.QuoteMeta(MathMLNamespace) + `$`)).OnElements("math")
	p.AllowStyles(mathStyleProperties...).Globally()

	return p
}

// mathNoAttrElements is MathElements without span.
func mathNoAttrElements() []string {
	els := make([]string, 0, len(MathElements))
	for _, el := range MathElements {
		if el != "span" {
			els = append(els, el)
		}
	}
	return els
}

// Sanitize returns htmlContent with everything outside the policy removed.
func (s *Sanitizer) Sanitize(htmlContent string) string {
	return s.policy.Sanitize(htmlContent)
}
