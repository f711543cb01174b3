// Package mathdown turns model-generated Markdown with embedded LaTeX into
// sanitized, typeset HTML.
//
// # Quick Start
//
// Render once and use the sanitized fragment:
//
//	r := mathdown.NewRenderer()
//	res, err := r.Render(ctx, mathdown.Input{Markdown: answer})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.HTML)
//
// Or keep a View, which commits each new version of the content into a
// container, typesets the math once the engine is available and attaches
// copy controls to code blocks:
//
//	v := mathdown.NewView(mathdown.WithEngine(mathdown.NewMathMLEngine(nil)))
//	defer v.Unmount()
//	if _, err := v.Update(ctx, answer); err != nil {
//	    log.Fatal(err)
//	}
//
// # Pipeline
//
// Each render runs these stages in order and to completion:
//
//  1. Markup normalization (orphaned bold markers, line endings, NFC)
//  2. Math canonicalization (sqrt(x), a^b, n√m, large fractions)
//  3. Math protection into a registry of placeholders
//  4. Markdown to HTML via Goldmark (GFM, footnotes, highlighting)
//  5. Table styling
//  6. Math restoration from the registry
//  7. Sanitization with bluemonday, extended for MathML
//
// Sanitization always runs, even when conversion fails. Failures never
// reach the caller as errors: they degrade the output and are reported as
// Diagnostics. Only empty input, cancellation and stale renders are errors.
//
// # Typesetting
//
// The typesetting engine is optional. A View given WithEngine typesets as
// soon as content is committed; one given WithEngineProbe polls every 200ms
// for up to 10s before giving up and leaving math as source text.
//
// # Output Documents
//
// Document wraps a fragment in a standalone HTML page with the default
// stylesheet, and Exporter prints such a page to PDF through headless
// Chrome (go-rod). ExporterPool shares browsers across parallel exports.
package mathdown
