// Package pipeline implements the text-to-safe-HTML stages of the renderer.
//
// The stages run in a fixed order and each one is a plain function or a
// small type with a single method, so the root package can compose them:
//   - Markup normalization (orphaned bold markers, line endings, NFC)
//   - Math canonicalization (sqrt(x), a^b, n√m, large fractions to LaTeX)
//   - Math protection into a tagged registry before Markdown conversion
//   - Markdown to HTML conversion via Goldmark
//   - Table styling by literal tag substitution
//   - Math restoration from the registry
//   - Sanitization with a bluemonday policy extended for math markup
//
// Styling must happen before sanitization: the attributes it injects are
// only trusted because the sanitizer validates them afterwards.
// Typesetting and DOM augmentation happen later, on the committed HTML, and
// live in the typeset and dom packages.
package pipeline
