package typeset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alnah/go-mathdown/internal/clock"
	"golang.org/x/net/html"
)

// Default timings.
const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultTimeout      = 10 * time.Second
	DefaultSettleDelay  = 50 * time.Millisecond
)

// Target is the container the engine runs on. Mutate must give fn
// exclusive access to the root for its whole duration.
type Target interface {
	Mutate(fn func(root *html.Node) error) error
}

// Probe reports whether the engine has become available.
type Probe func() (Engine, bool)

// capability is how the waiter obtains its engine.
type capability int

const (
	capUnavailable capability = iota // no engine, no probe
	capStatic                        // engine known at construction
	capProbe                         // engine discovered by polling
)

// Option configures a Waiter.
type Option func(*Waiter)

// WithClock sets the timer source. Defaults to clock.Real.
func WithClock(c clock.Clock) Option {
	return func(w *Waiter) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Waiter) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithPollInterval sets the delay between probes.
func WithPollInterval(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithTimeout bounds how long the waiter polls.
func WithTimeout(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithSettleDelay sets the pause between readiness and typesetting.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Waiter) {
		if d >= 0 {
			w.settleDelay = d
		}
	}
}

// WithDelimiters overrides DefaultDelimiters.
func WithDelimiters(d []Delimiter) Option {
	return func(w *Waiter) {
		if len(d) > 0 {
			w.delims = d
		}
	}
}

// WithEngine supplies an engine that is available up front. Polling is
// skipped and Start goes straight to Ready.
func WithEngine(e Engine) Option {
	return func(w *Waiter) {
		if e != nil {
			w.engine = e
			w.capability = capStatic
		}
	}
}

// WithProbe makes the waiter poll p until it yields an engine or the
// timeout expires. Ignored when WithEngine is also given.
func WithProbe(p Probe) Option {
	return func(w *Waiter) {
		if p != nil && w.capability != capStatic {
			w.probe = p
			w.capability = capProbe
		}
	}
}

// OnTypeset registers a hook run on the target root right after the
// engine, inside the same Mutate call.
func OnTypeset(fn func(root *html.Node, r Report)) Option {
	return func(w *Waiter) {
		w.onTypeset = fn
	}
}

// OnTimeout registers a hook called once each time a wait gives up.
func OnTimeout(fn func(err error)) Option {
	return func(w *Waiter) {
		w.onTimeout = fn
	}
}

// Waiter runs the typesetting engine on a target once it is available.
// Each Start supersedes the previous one: its timers are stopped and its
// pending callbacks become no-ops.
type Waiter struct {
	clock        clock.Clock
	logger       *slog.Logger
	pollInterval time.Duration
	timeout      time.Duration
	settleDelay  time.Duration
	delims       []Delimiter
	capability   capability
	engine       Engine
	probe        Probe
	onTypeset    func(root *html.Node, r Report)
	onTimeout    func(err error)

	mu       sync.Mutex
	gen      uint64
	state    State
	target   Target
	ctx      context.Context
	cancel   context.CancelFunc
	interval clock.Timer
	guard    clock.Timer
	settle   clock.Timer
}

// NewWaiter creates an idle Waiter.
func NewWaiter(opts ...Option) *Waiter {
	w := &Waiter{
		clock:        clock.Real{},
		logger:       slog.New(slog.DiscardHandler),
		pollInterval: DefaultPollInterval,
		timeout:      DefaultTimeout,
		settleDelay:  DefaultSettleDelay,
		delims:       DefaultDelimiters,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current state.
func (w *Waiter) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// Start begins waiting for the engine on target, cancelling any wait in
// progress. The first probe runs before Start returns.
func (w *Waiter) Start(target Target) {
	w.mu.Lock()
	w.stopLocked()
	w.gen++
	gen := w.gen
	w.target = target
	w.ctx, w.cancel = context.WithCancel(context.Background())

	switch w.capability {
	case capStatic:
		w.readyLocked(gen, w.engine)
		w.mu.Unlock()
		return
	case capUnavailable:
		w.state = TimedOut
		w.mu.Unlock()
		w.giveUp(fmt.Errorf("%w: no engine configured", ErrUnavailable))
		return
	}

	w.state = Polling
	w.guard = w.clock.AfterFunc(w.timeout, func() { w.expire(gen) })
	w.mu.Unlock()

	w.poll(gen)
}

// Stop cancels every timer and returns the waiter to Idle.
func (w *Waiter) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()
	w.gen++
	w.state = Idle
	w.target = nil
}

func (w *Waiter) poll(gen uint64) {
	eng, ok := w.probe()

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen || w.state != Polling {
		return
	}
	if ok && eng != nil {
		w.readyLocked(gen, eng)
		return
	}
	w.interval = w.clock.AfterFunc(w.pollInterval, func() { w.poll(gen) })
}

// readyLocked stops the interval and the guard together and schedules the
// engine after the settle delay.
func (w *Waiter) readyLocked(gen uint64, eng Engine) {
	w.state = Ready
	stopTimer(&w.interval)
	stopTimer(&w.guard)
	w.settle = w.clock.AfterFunc(w.settleDelay, func() { w.typeset(gen, eng) })
}

func (w *Waiter) expire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.state != Polling {
		w.mu.Unlock()
		return
	}
	w.state = TimedOut
	w.guard = nil
	stopTimer(&w.interval)
	w.mu.Unlock()

	w.giveUp(fmt.Errorf("%w: not loaded after %s", ErrUnavailable, w.timeout))
}

func (w *Waiter) giveUp(err error) {
	w.logger.Warn("math left as source text", slog.Any("error", err))
	if w.onTimeout != nil {
		w.onTimeout(err)
	}
}

func (w *Waiter) typeset(gen uint64, eng Engine) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.settle = nil
	target, ctx := w.target, w.ctx
	w.mu.Unlock()

	if target == nil {
		return
	}

	var report Report
	err := target.Mutate(func(root *html.Node) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := eng.Typeset(ctx, root, w.delims)
		report = r
		if err != nil {
			return err
		}
		if w.onTypeset != nil {
			w.onTypeset(root, r)
		}
		return nil
	})

	for _, f := range report.Failures {
		w.logger.Warn("math expression not typeset",
			slog.String("source", f.Source),
			slog.Any("error", f.Err))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("typesetting failed", slog.Any("error", err))
		return
	}
	w.logger.Debug("typeset", slog.Int("converted", report.Converted), slog.Int("failed", len(report.Failures)))
}

func (w *Waiter) stopLocked() {
	stopTimer(&w.interval)
	stopTimer(&w.guard)
	stopTimer(&w.settle)
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
