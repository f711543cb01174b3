package mathdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-mathdown/internal/dom"
	"github.com/alnah/go-mathdown/internal/typeset"
	"golang.org/x/net/html"
)

// ViewOption configures a View.
type ViewOption func(*viewConfig)

type viewConfig struct {
	renderer     *Renderer
	logger       *slog.Logger
	engine       Engine
	probe        EngineProbe
	clock        Clock
	clipboard    Clipboard
	delims       []Delimiter
	pollInterval time.Duration
	timeout      time.Duration
	settleDelay  time.Duration
	copyLabel    string
	copiedLabel  string
	revertAfter  time.Duration
}

// WithRenderer sets the renderer. Defaults to NewRenderer().
func WithRenderer(r *Renderer) ViewOption {
	return func(c *viewConfig) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithViewLogger sets the logger for typesetting and copy diagnostics.
func WithViewLogger(l *slog.Logger) ViewOption {
	return func(c *viewConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEngine supplies a typesetting engine available from the start.
// No polling happens: each commit is typeset after the settle delay.
func WithEngine(e Engine) ViewOption {
	return func(c *viewConfig) {
		c.engine = e
	}
}

// WithEngineProbe makes the view poll p after each commit until it yields
// an engine or the typesetting timeout expires. Ignored when WithEngine is
// also given.
func WithEngineProbe(p EngineProbe) ViewOption {
	return func(c *viewConfig) {
		c.probe = p
	}
}

// WithClock sets the timer source for typesetting and copy labels.
func WithClock(clk Clock) ViewOption {
	return func(c *viewConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(cb Clipboard) ViewOption {
	return func(c *viewConfig) {
		if cb != nil {
			c.clipboard = cb
		}
	}
}

// WithDelimiters sets the math delimiters the engine recognizes.
func WithDelimiters(d []Delimiter) ViewOption {
	return func(c *viewConfig) {
		c.delims = d
	}
}

// WithTypesetTiming overrides the probe interval, the total wait and the
// settle delay. Zero values keep the defaults.
func WithTypesetTiming(pollInterval, timeout, settleDelay time.Duration) ViewOption {
	return func(c *viewConfig) {
		c.pollInterval = pollInterval
		c.timeout = timeout
		c.settleDelay = settleDelay
	}
}

// WithCopyLabels sets the copy control labels and how long the
// confirmation label stays. Empty or zero values keep the defaults.
func WithCopyLabels(copyLabel, copiedLabel string, revertAfter time.Duration) ViewOption {
	return func(c *viewConfig) {
		c.copyLabel = copyLabel
		c.copiedLabel = copiedLabel
		c.revertAfter = revertAfter
	}
}

// View owns a container and keeps it in sync with the latest content.
// Every Update renders, commits, then typesets and adds copy controls once
// the engine is available. A render overtaken by a newer Update is
// discarded, never committed.
type View struct {
	renderer  *Renderer
	logger    *slog.Logger
	container *dom.Container
	waiter    *typeset.Waiter
	enhancer  *dom.Enhancer

	// commitMu serializes commits. Lock order: commitMu, container, mu.
	commitMu sync.Mutex

	mu          sync.Mutex
	gen         uint64
	cancel      context.CancelFunc
	unmounted   bool
	committed   string
	isCommitted bool
	diagnostics []Diagnostic
}

// NewView creates a mounted, empty view.
func NewView(opts ...ViewOption) *View {
	cfg := viewConfig{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.renderer == nil {
		cfg.renderer = NewRenderer(WithLogger(cfg.logger))
	}

	v := &View{
		renderer:  cfg.renderer,
		logger:    cfg.logger,
		container: dom.NewContainer(),
	}

	v.enhancer = dom.NewEnhancer(
		dom.WithClock(cfg.clock),
		dom.WithClipboard(cfg.clipboard),
		dom.WithLogger(cfg.logger),
		dom.WithLabels(cfg.copyLabel, cfg.copiedLabel),
		dom.WithRevertAfter(cfg.revertAfter),
	)

	waiterOpts := []typeset.Option{
		typeset.WithClock(cfg.clock),
		typeset.WithLogger(cfg.logger),
		typeset.WithPollInterval(cfg.pollInterval),
		typeset.WithTimeout(cfg.timeout),
		typeset.WithDelimiters(cfg.delims),
		typeset.OnTypeset(v.afterTypeset),
		typeset.OnTimeout(v.typesetUnavailable),
	}
	if cfg.settleDelay > 0 {
		waiterOpts = append(waiterOpts, typeset.WithSettleDelay(cfg.settleDelay))
	}
	if cfg.engine != nil {
		waiterOpts = append(waiterOpts, typeset.WithEngine(cfg.engine))
	} else if cfg.probe != nil {
		waiterOpts = append(waiterOpts, typeset.WithProbe(cfg.probe))
	}
	v.waiter = typeset.NewWaiter(waiterOpts...)

	return v
}

// Update renders content and commits it unless a newer Update started in
// the meantime, in which case it returns ErrStaleRender. Blank content
// clears the container. The previous content's typesetting wait and copy
// label timers are cancelled on commit.
func (v *View) Update(ctx context.Context, content string) (*Result, error) {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return nil, ErrViewUnmounted
	}
	v.gen++
	gen := v.gen
	if v.cancel != nil {
		v.cancel()
	}
	renderCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()

	res, err := v.render(renderCtx, content)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			if v.isUnmounted() {
				return nil, ErrViewUnmounted
			}
			if v.superseded(gen) {
				return nil, ErrStaleRender
			}
		}
		return nil, err
	}

	if err := v.commit(gen, content, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (v *View) render(ctx context.Context, content string) (*Result, error) {
	if strings.TrimSpace(content) == "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}
	return v.renderer.Render(ctx, Input{Markdown: content})
}

func (v *View) superseded(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return gen != v.gen
}

// commit swaps in res.HTML and restarts typesetting for it.
func (v *View) commit(gen uint64, content string, res *Result) error {
	v.commitMu.Lock()
	defer v.commitMu.Unlock()

	v.mu.Lock()
	switch {
	case v.unmounted:
		v.mu.Unlock()
		return ErrViewUnmounted
	case gen != v.gen:
		v.mu.Unlock()
		return ErrStaleRender
	}
	v.mu.Unlock()

	// The old wait must be cancelled before the root changes, or its
	// engine could run on the new content.
	v.waiter.Stop()
	v.enhancer.Stop()

	if err := v.container.Replace(res.HTML); err != nil {
		return fmt.Errorf("committing render: %w", err)
	}

	v.mu.Lock()
	v.committed = content
	v.isCommitted = true
	v.diagnostics = append([]Diagnostic(nil), res.Diagnostics...)
	v.mu.Unlock()

	if res.HTML == "" {
		return nil
	}
	// Start may call typesetUnavailable synchronously, which takes v.mu.
	v.waiter.Start(v.container)
	return nil
}

// afterTypeset runs inside the container lock, right after the engine.
func (v *View) afterTypeset(root *html.Node, r Report) {
	added := v.enhancer.Enhance(root)
	v.logger.Debug("copy controls attached", slog.Int("added", added))

	if diags := expressionDiagnostics(r); len(diags) > 0 {
		v.mu.Lock()
		v.diagnostics = append(v.diagnostics, diags...)
		v.mu.Unlock()
	}
}

func (v *View) typesetUnavailable(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.diagnostics = append(v.diagnostics, Diagnostic{
		Kind:    DiagTypesetUnavailable,
		Message: "typesetting engine unavailable, math left as source text",
		Err:     err,
	})
}

// Copy copies code block id to the clipboard and shows the confirmation
// label. Clipboard failures are returned and recorded as diagnostics; the
// container is left as it was.
func (v *View) Copy(ctx context.Context, id string) error {
	if v.isUnmounted() {
		return ErrViewUnmounted
	}

	err := v.enhancer.Activate(ctx, v.container, id)
	if errors.Is(err, ErrClipboardWrite) {
		v.mu.Lock()
		v.diagnostics = append(v.diagnostics, Diagnostic{
			Kind:    DiagClipboardWrite,
			Message: fmt.Sprintf("copying block %s failed", id),
			Err:     err,
		})
		v.mu.Unlock()
	}
	return err
}

// Unmount cancels any in-flight render and every pending timer. Later
// calls to Update and Copy return ErrViewUnmounted.
func (v *View) Unmount() {
	v.commitMu.Lock()
	defer v.commitMu.Unlock()

	v.mu.Lock()
	v.unmounted = true
	v.gen++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.mu.Unlock()

	v.waiter.Stop()
	v.enhancer.Stop()
}

func (v *View) isUnmounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.unmounted
}

// HTML serializes the container as it is now, including typeset math and
// copy controls.
func (v *View) HTML() string {
	return v.container.HTML()
}

// Committed returns the last committed content. The boolean is false
// before the first commit.
func (v *View) Committed() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.committed, v.isCommitted
}

// State returns the typesetting state of the committed content.
func (v *View) State() TypesetState {
	return v.waiter.State()
}

// Diagnostics returns the diagnostics of the committed content, including
// the ones raised after the commit by typesetting and copy controls.
func (v *View) Diagnostics() []Diagnostic {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]Diagnostic(nil), v.diagnostics...)
}
