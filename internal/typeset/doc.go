// Package typeset coordinates the math typesetting engine with the
// rendered container.
//
// A Waiter decides when the engine may run: it either holds an engine
// resolved at construction, or polls a probe on a fixed interval under a
// guard timeout, then settles briefly and typesets the target. The
// MathMLEngine converts delimited TeX in DOM text nodes to MathML with
// treeblood, isolating failures per expression.
package typeset
