package engines

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
)

// Config selects and configures the engines a Dispatcher runs.
type Config struct {
	Engines         []Tag // enabled engines, in configuration order
	Priority        []Tag // engines reported first, in this order
	SauceNaoKey     string
	SauceNaoResults int
	Timeout         time.Duration
	EnrichCaptions  bool
	UserAgent       string
}

// Outcome is one engine's contribution to a search.
type Outcome struct {
	Engine   Tag             `json:"engine"`
	Name     string          `json:"name"`
	Color    color.Attribute `json:"-"`
	Priority bool            `json:"priority"`
	Result   *SearchResult   `json:"result"`
	Elapsed  time.Duration   `json:"elapsed"`
}

// Failed reports whether the engine fell back to its baseline result.
func (o Outcome) Failed() bool {
	return o.Result == nil || o.Result.Fallback
}

// Dispatcher runs a search on every registered engine and collects the
// results in priority order.
type Dispatcher struct {
	engines  []Engine
	priority []Tag
	timeout  time.Duration
}

// NewDispatcher creates an empty dispatcher. Each engine invocation gets
// its own timeout.
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{timeout: timeout}
}

// New builds a dispatcher with an engine for every enabled tag.
func New(cfg Config) (*Dispatcher, error) {
	if len(cfg.Engines) == 0 {
		return nil, ErrNoEngines
	}

	d := NewDispatcher(cfg.Timeout)
	for _, tag := range cfg.Engines {
		e, err := NewEngine(tag, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.EnrichCaptions {
			e = WithCaptions(e, newHTTPClient(cfg.Timeout))
		}
		d.Register(e)
	}

	if err := d.SetPriority(cfg.Priority); err != nil {
		return nil, err
	}
	return d, nil
}

// NewEngine instantiates the engine for a single tag.
func NewEngine(tag Tag, cfg Config) (Engine, error) {
	switch tag {
	case SauceNao:
		e, err := NewSauceNaoEngine(cfg.SauceNaoKey, cfg.SauceNaoResults, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		e.UserAgent = cfg.UserAgent
		return e, nil
	case TraceMoe:
		e := NewTraceMoeEngine(cfg.Timeout)
		e.UserAgent = cfg.UserAgent
		return e, nil
	case Iqdb:
		e := NewIqdbEngine(cfg.Timeout)
		e.UserAgent = cfg.UserAgent
		return e, nil
	case GoogleImages:
		return NewGoogleImages(), nil
	case TinEye:
		return NewTinEye(), nil
	case Yandex:
		return NewYandex(), nil
	case Bing:
		return NewBing(), nil
	case ImgOps:
		return NewImgOps(), nil
	case KarmaDecay:
		return NewKarmaDecay(), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s (available: %s)", tag, TagNames())
	}
}

// Register adds an engine. Engines run and are reported in registration
// order unless prioritized; registering a tag twice replaces the first.
func (d *Dispatcher) Register(e Engine) {
	for i, existing := range d.engines {
		if existing.Tag() == e.Tag() {
			d.engines[i] = e
			return
		}
	}
	d.engines = append(d.engines, e)
}

// SetPriority sets the engines whose results are reported first.
func (d *Dispatcher) SetPriority(tags []Tag) error {
	priority := make([]Tag, 0, len(tags))
	for _, tag := range tags {
		if _, ok := d.engine(tag); !ok {
			return fmt.Errorf("priority engine %s is not enabled (enabled: %s)", tag, d.enabledNames())
		}
		priority = append(priority, tag)
	}
	d.priority = priority
	return nil
}

// Engines returns the registered engines in configuration order.
func (d *Dispatcher) Engines() []Engine {
	return append([]Engine(nil), d.engines...)
}

// Run searches ref on every engine concurrently and returns one outcome per
// engine. Engine failures are reported inside the outcomes; the only error
// is a dispatcher with no engines.
func (d *Dispatcher) Run(ctx context.Context, ref string) ([]Outcome, error) {
	if len(d.engines) == 0 {
		return nil, ErrNoEngines
	}

	slog.Debug("starting search", "image", ref, "engines", len(d.engines))

	outcomes := make([]Outcome, len(d.engines))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range d.engines {
		i, e := i, e
		g.Go(func() error {
			outcomes[i] = d.invoke(gctx, e, ref)
			return nil
		})
	}
	_ = g.Wait()

	return d.order(outcomes), nil
}

// invoke runs one engine under its own deadline. A hung engine is
// abandoned when the deadline passes and replaced by its baseline result.
func (d *Dispatcher) invoke(ctx context.Context, e Engine, ref string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan *SearchResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r := baseline(e, ref)
				r.Fail("%s: engine panicked: %v", e.Name(), p)
				done <- r
			}
		}()
		done <- e.Search(ctx, ref)
	}()

	var r *SearchResult
	select {
	case r = <-done:
	case <-ctx.Done():
		r = baseline(e, ref)
		r.Fail("%s: search timed out after %s", e.Name(), d.timeout)
	}

	if r == nil {
		r = baseline(e, ref)
		r.Fail("%s: engine returned no result", e.Name())
	}
	if r.Engine == None {
		r.Engine = e.Tag()
	}
	if !r.HasURL() && len(r.Diagnostics) == 0 {
		r.Fail("%s: no result URL", e.Name())
	}

	elapsed := time.Since(start)
	slog.Debug("engine finished", "engine", e.Name(), "elapsed", elapsed, "fallback", r.Fallback)

	return Outcome{
		Engine:  e.Tag(),
		Name:    e.Name(),
		Color:   e.Color(),
		Result:  r,
		Elapsed: elapsed,
	}
}

// order puts priority engines first, in priority order, followed by the
// remaining engines in configuration order.
func (d *Dispatcher) order(outcomes []Outcome) []Outcome {
	ordered := make([]Outcome, 0, len(outcomes))
	var placed Tag
	for _, tag := range d.priority {
		for _, o := range outcomes {
			if o.Engine == tag && placed&tag == 0 {
				o.Priority = true
				ordered = append(ordered, o)
				placed |= tag
			}
		}
	}
	for _, o := range outcomes {
		if placed&o.Engine == 0 {
			ordered = append(ordered, o)
		}
	}
	return ordered
}

func (d *Dispatcher) engine(tag Tag) (Engine, bool) {
	for _, e := range d.engines {
		if e.Tag() == tag {
			return e, true
		}
	}
	return nil, false
}

func (d *Dispatcher) enabledNames() string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Tag().String()
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// baseline returns e's redirect result, or an empty result when e has no
// baseline.
func baseline(e Engine, ref string) *SearchResult {
	if b, ok := e.(Baseliner); ok {
		return b.Baseline(ref)
	}
	return NewResult(e.Tag(), "")
}
