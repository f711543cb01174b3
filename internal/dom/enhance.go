package dom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/alnah/go-mathdown/internal/clock"
	"github.com/atotto/clipboard"
	htmldom "github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// Markup produced by Enhance.
const (
	CopyButtonClass = "copy-code-button"
	AttachedAttr    = "data-copy-attached"
	BlockIDAttr     = "data-copy-id"
)

// Default copy control settings.
const (
	DefaultCopyLabel   = "Copy"
	DefaultCopiedLabel = "Copied!"
	DefaultRevertAfter = 2 * time.Second
)

// Sentinel errors for DOM augmentation.
var (
	ErrClipboardWrite = errors.New("clipboard write failed")
	ErrBlockNotFound  = errors.New("code block not found")
)

// Clipboard receives copied text.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

// Compile-time interface checks.
var (
	_ Clipboard = SystemClipboard{}
	_ Mutator   = (*Container)(nil)
)

// WriteAll copies text with atotto/clipboard.
func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Mutator gives exclusive access to a DOM root.
type Mutator interface {
	Mutate(fn func(root *html.Node) error) error
}

// EnhancerOption configures an Enhancer.
type EnhancerOption func(*Enhancer)

// WithClock sets the timer source for label reverts.
func WithClock(c clock.Clock) EnhancerOption {
	return func(e *Enhancer) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) EnhancerOption {
	return func(e *Enhancer) {
		if c != nil {
			e.clipboard = c
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) EnhancerOption {
	return func(e *Enhancer) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLabels sets the idle and confirmation labels of the copy control.
func WithLabels(copyLabel, copiedLabel string) EnhancerOption {
	return func(e *Enhancer) {
		if copyLabel != "" {
			e.label = copyLabel
		}
		if copiedLabel != "" {
			e.copiedLabel = copiedLabel
		}
	}
}

// WithRevertAfter sets how long the confirmation label stays.
func WithRevertAfter(d time.Duration) EnhancerOption {
	return func(e *Enhancer) {
		if d > 0 {
			e.revertAfter = d
		}
	}
}

// Enhancer adds copy controls to code blocks.
type Enhancer struct {
	clock       clock.Clock
	clipboard   Clipboard
	logger      *slog.Logger
	label       string
	copiedLabel string
	revertAfter time.Duration

	mu      sync.Mutex
	seq     int
	pending map[string]*revert
}

type revert struct {
	timer clock.Timer
}

// NewEnhancer creates an Enhancer writing to the system clipboard.
func NewEnhancer(opts ...EnhancerOption) *Enhancer {
	e := &Enhancer{
		clock:       clock.Real{},
		clipboard:   SystemClipboard{},
		logger:      slog.New(slog.DiscardHandler),
		label:       DefaultCopyLabel,
		copiedLabel: DefaultCopiedLabel,
		revertAfter: DefaultRevertAfter,
		pending:     make(map[string]*revert),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enhance inserts a copy button before every <pre> under root that does not
// carry the attached marker yet, and returns the number of buttons added.
// Running it again on the same tree adds nothing.
func (e *Enhancer) Enhance(root *html.Node) int {
	added := 0
	for _, pre := range htmldom.GetElementsByTagName(root, "pre") {
		if pre.Parent == nil || htmldom.GetAttribute(pre, AttachedAttr) == "true" {
			continue
		}

		id := e.nextID()
		htmldom.SetAttribute(pre, AttachedAttr, "true")
		htmldom.SetAttribute(pre, BlockIDAttr, id)

		btn := htmldom.CreateElement("button")
		htmldom.SetAttribute(btn, "type", "button")
		htmldom.SetAttribute(btn, "class", CopyButtonClass)
		htmldom.SetAttribute(btn, BlockIDAttr, id)
		htmldom.SetTextContent(btn, e.label)

		pre.Parent.InsertBefore(btn, pre)
		added++
	}
	return added
}

// Activate copies the text of block id to the clipboard and shows the
// confirmation label until the revert delay elapses. On clipboard failure
// the label is left unchanged and the error is returned.
func (e *Enhancer) Activate(ctx context.Context, m Mutator, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return m.Mutate(func(root *html.Node) error {
		btn, pre := findBlock(root, id)
		if btn == nil || pre == nil {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
		}

		if err := e.clipboard.WriteAll(htmldom.TextContent(pre)); err != nil {
			err = fmt.Errorf("%w: %v", ErrClipboardWrite, err)
			e.logger.Warn("copy failed", slog.String("block", id), slog.Any("error", err))
			return err
		}

		htmldom.SetTextContent(btn, e.copiedLabel)
		e.scheduleRevert(m, id)
		return nil
	})
}

// Stop cancels every pending label revert.
func (e *Enhancer) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, r := range e.pending {
		r.timer.Stop()
		delete(e.pending, id)
	}
}

// scheduleRevert restarts the revert timer of block id.
// Called with the container locked. The callback releases e.mu before it
// locks the container.
func (e *Enhancer) scheduleRevert(m Mutator, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.pending[id]; ok {
		old.timer.Stop()
	}

	r := &revert{}
	r.timer = e.clock.AfterFunc(e.revertAfter, func() {
		e.mu.Lock()
		current := e.pending[id] == r
		if current {
			delete(e.pending, id)
		}
		e.mu.Unlock()
		if !current {
			return
		}

		_ = m.Mutate(func(root *html.Node) error {
			if btn, _ := findBlock(root, id); btn != nil {
				htmldom.SetTextContent(btn, e.label)
			}
			return nil
		})
	})
	e.pending[id] = r
}

func (e *Enhancer) nextID() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	return "code-" + strconv.Itoa(e.seq)
}

// findBlock returns the button and the <pre> sharing block id.
func findBlock(root *html.Node, id string) (btn, pre *html.Node) {
	for _, n := range htmldom.GetElementsByTagName(root, "button") {
		if htmldom.GetAttribute(n, BlockIDAttr) == id {
			btn = n
			break
		}
	}
	for _, n := range htmldom.GetElementsByTagName(root, "pre") {
		if htmldom.GetAttribute(n, BlockIDAttr) == id {
			pre = n
			break
		}
	}
	return btn, pre
}
