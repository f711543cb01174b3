package typeset

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wyatt915/treeblood"
	"golang.org/x/net/html"
)

// Engine typesets the math found in the text of a DOM subtree.
type Engine interface {
	Typeset(ctx context.Context, root *html.Node, delims []Delimiter) (Report, error)
}

// Failure records one expression the engine could not convert.
// Source includes the delimiters and is left in the DOM as plain text.
type Failure struct {
	Source  string
	Display bool
	Err     error
}

// Report summarizes one Typeset call.
type Report struct {
	Converted int
	Failures  []Failure
}

// skipTags hold text that is never math.
var skipTags = map[string]bool{
	"pre":      true,
	"code":     true,
	"script":   true,
	"style":    true,
	"textarea": true,
	"math":     true,
}

// MathMLEngine converts delimited TeX to MathML elements in place.
type MathMLEngine struct {
	mu      sync.Mutex // treeblood documents keep macro state
	doc     *treeblood.Pitziil
	convert func(tex string, display bool) (string, error)
}

// Compile-time interface check.
var _ Engine = (*MathMLEngine)(nil)

// NewMathMLEngine creates an engine with optional TeX macros
// (name to expansion, e.g. "RR": `\mathbb{R}`).
func NewMathMLEngine(macros map[string]string) *MathMLEngine {
	e := &MathMLEngine{doc: treeblood.NewDocument(macros, false)}
	e.convert = e.toMathML
	return e
}

// Typeset replaces every delimited expression in the text nodes under root
// with MathML. Text inside pre, code, script, style, textarea and existing
// math elements is left alone. A malformed expression keeps its source text
// and is reported; the rest of the tree is still processed.
func (e *MathMLEngine) Typeset(ctx context.Context, root *html.Node, delims []Delimiter) (Report, error) {
	if len(delims) == 0 {
		delims = DefaultDelimiters
	}

	var report Report
	for _, n := range collectText(root) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		e.typesetNode(n, delims, &report)
	}
	return report, nil
}

func (e *MathMLEngine) toMathML(tex string, display bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if display {
		return e.doc.DisplayStyle(tex)
	}
	return e.doc.TextStyle(tex)
}

// typesetNode splices MathML in place of the math pieces of text node n.
func (e *MathMLEngine) typesetNode(n *html.Node, delims []Delimiter, r *Report) {
	pieces := splitMath(n.Data, delims)
	if !hasMath(pieces) {
		return
	}

	parent := n.Parent
	for _, p := range pieces {
		if !p.math {
			parent.InsertBefore(textNode(p.text), n)
			continue
		}
		nodes, err := e.render(p.tex, p.delim.Display, parent)
		if err != nil {
			r.Failures = append(r.Failures, Failure{Source: p.text, Display: p.delim.Display, Err: err})
			parent.InsertBefore(textNode(p.text), n)
			continue
		}
		for _, m := range nodes {
			parent.InsertBefore(m, n)
		}
		r.Converted++
	}
	parent.RemoveChild(n)
}

// render converts one expression and parses the MathML into detached nodes.
func (e *MathMLEngine) render(tex string, display bool, parent *html.Node) (nodes []*html.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			nodes, err = nil, fmt.Errorf("%w: %v", ErrExpression, r)
		}
	}()

	mml, err := e.convert(tex, display)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExpression, err)
	}

	var ctxNode *html.Node
	if parent != nil && parent.Type == html.ElementNode {
		ctxNode = parent
	}
	nodes, err = html.ParseFragment(strings.NewReader(mml), ctxNode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExpression, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: empty output for %q", ErrExpression, tex)
	}
	return nodes, nil
}

// collectText returns the text nodes under root that may hold math.
// Collection happens before any mutation so splicing is safe.
func collectText(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if strings.ContainsAny(c.Data, `$\`) {
					out = append(out, c)
				}
			case html.ElementNode:
				if !skipTags[c.Data] {
					walk(c)
				}
			}
		}
	}
	walk(root)
	return out
}

type piece struct {
	text  string // verbatim source, delimiters included
	tex   string
	delim Delimiter
	math  bool
}

// splitMath cuts s into alternating prose and math pieces.
func splitMath(s string, delims []Delimiter) []piece {
	var out []piece
	last := 0
	for i := 0; i < len(s); {
		d, body, end, ok := matchAt(s, i, delims)
		if !ok {
			i++
			continue
		}
		if i > last {
			out = append(out, piece{text: s[last:i]})
		}
		out = append(out, piece{text: s[i:end], tex: body, delim: d, math: true})
		i, last = end, end
	}
	if last < len(s) {
		out = append(out, piece{text: s[last:]})
	}
	return out
}

// matchAt reports the first delimiter opening at s[i] that also closes.
// An escaped dollar never opens, and inline math never spans lines.
func matchAt(s string, i int, delims []Delimiter) (Delimiter, string, int, bool) {
	if s[i] == '$' && i > 0 && s[i-1] == '\\' {
		return Delimiter{}, "", 0, false
	}
	for _, d := range delims {
		if !strings.HasPrefix(s[i:], d.Left) {
			continue
		}
		start := i + len(d.Left)
		j := strings.Index(s[start:], d.Right)
		if j < 0 {
			continue
		}
		body := s[start : start+j]
		if strings.TrimSpace(body) == "" {
			continue
		}
		if !d.Display && strings.Contains(body, "\n") {
			continue
		}
		return d, body, start + j + len(d.Right), true
	}
	return Delimiter{}, "", 0, false
}

func hasMath(pieces []piece) bool {
	for _, p := range pieces {
		if p.math {
			return true
		}
	}
	return false
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
