// Package dom owns the rendered container and the augmentations applied to
// it after typesetting.
package dom

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Container is a mutable HTML fragment guarded by a mutex. It is the
// document region a View renders into; every mutation, from a commit, the
// typesetting engine or a copy control, goes through Mutate.
type Container struct {
	mu   sync.Mutex
	root *html.Node
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{root: newRoot()}
}

func newRoot() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}

// Replace parses fragment and swaps it in as the container's content.
func (c *Container) Replace(fragment string) error {
	root := newRoot()
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	c.mu.Lock()
	c.root = root
	c.mu.Unlock()
	return nil
}

// Mutate runs fn with exclusive access to the container root.
func (c *Container) Mutate(fn func(root *html.Node) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return fn(c.root)
}

// HTML serializes the current content.
func (c *Container) HTML() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	for n := c.root.FirstChild; n != nil; n = n.NextSibling {
		// Rendering into a strings.Builder cannot fail on I/O.
		_ = html.Render(&b, n)
	}
	return b.String()
}
