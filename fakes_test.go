package mathdown

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/alnah/go-mathdown/internal/typeset"
	"golang.org/x/net/html"
)

// fakePDFRenderer records the files it is asked to print.
type fakePDFRenderer struct {
	mu       sync.Mutex
	pdf      []byte
	err      error
	html     []string
	pages    []*PageSettings
	closed   int
	closeErr error
}

func (f *fakePDFRenderer) RenderFromFile(ctx context.Context, path string, page *PageSettings) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- test temp file
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.html = append(f.html, string(data))
	f.pages = append(f.pages, page)
	if f.err != nil {
		return nil, f.err
	}
	return f.pdf, nil
}

func (f *fakePDFRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

// upperEngine "typesets" by replacing every $...$ text span with a <b>
// element holding the upper-cased source. Sources containing "bad" fail.
type upperEngine struct {
	calls int
}

var errBadExpression = errors.New("undefined control sequence")

func (e *upperEngine) Typeset(ctx context.Context, root *html.Node, _ []Delimiter) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	e.calls++

	var r Report
	var texts []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && strings.Count(n.Data, "$") >= 2 {
			texts = append(texts, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for len(texts) > 0 {
		n := texts[0]
		texts = texts[1:]

		start := strings.Index(n.Data, "$")
		end := strings.Index(n.Data[start+1:], "$") + start + 1
		src := n.Data[start+1 : end]
		if strings.Contains(src, "bad") {
			r.Failures = append(r.Failures, typeset.Failure{Source: src, Err: errBadExpression})
			rest := &html.Node{Type: html.TextNode, Data: n.Data[end+1:]}
			n.Data = n.Data[:end+1]
			n.Parent.InsertBefore(rest, n.NextSibling)
			if strings.Count(rest.Data, "$") >= 2 {
				texts = append(texts, rest)
			}
			continue
		}

		b := &html.Node{Type: html.ElementNode, Data: "b"}
		b.AppendChild(&html.Node{Type: html.TextNode, Data: strings.ToUpper(src)})
		after := &html.Node{Type: html.TextNode, Data: n.Data[end+1:]}
		n.Parent.InsertBefore(b, n.NextSibling)
		n.Parent.InsertBefore(after, b.NextSibling)
		n.Data = n.Data[:start]
		r.Converted++
		if strings.Count(after.Data, "$") >= 2 {
			texts = append(texts, after)
		}
	}
	return r, nil
}

// failingEngine returns err for every call.
type failingEngine struct {
	err error
}

func (e failingEngine) Typeset(context.Context, *html.Node, []Delimiter) (Report, error) {
	return Report{}, e.err
}

// fakeClipboard stores the last text written, or fails with err.
type fakeClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

func (c *fakeClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}
