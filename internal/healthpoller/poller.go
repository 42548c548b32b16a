package healthpoller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/clipboard"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/dom"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/metrics"
)

// HealthPath is the root liveness path, the same one a load balancer polls.
const HealthPath = "/healthz/"

var ErrClipboard = errors.New("clipboard write failed")

// Phase is the coarse state of the panel.
type Phase int

const (
	PhasePending Phase = iota
	PhaseHealthy
	PhaseUnhealthy
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseHealthy:
		return "healthy"
	case PhaseUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// PollState mirrors what the panel currently shows.
type PollState struct {
	Phase Phase
	// Status is the HTTP status behind an unhealthy phase, 0 if none arrived.
	Status int
}

// CopyResult is the outcome of a clipboard copy.
type CopyResult struct {
	OK   bool
	Text string
	Kind ErrorKind
	Err  error
}

type Options struct {
	// BaseURL is the origin of the service; HealthPath is resolved against it.
	BaseURL   string
	Timeout   time.Duration
	Clipboard clipboard.Clipboard
	Collector *metrics.Collector
}

// Poller fetches the health report and renders it into a page.
type Poller struct {
	doc       *dom.Document
	fetcher   *Fetcher
	clipboard clipboard.Clipboard
	collector *metrics.Collector
	logger    *slog.Logger
	healthURL string
	timeout   time.Duration

	bindMutex sync.Mutex
	bound     bool

	stateMutex sync.RWMutex
	state      PollState
}

func New(doc *dom.Document, fetcher *Fetcher, logger *slog.Logger, opts Options) (*Poller, error) {
	if doc == nil {
		return nil, errors.New("healthpoller: nil document")
	}

	healthURL, err := ResolveHealthURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil, logger)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Poller{
		doc:       doc,
		fetcher:   fetcher,
		clipboard: opts.Clipboard,
		collector: opts.Collector,
		logger:    logger,
		healthURL: healthURL,
		timeout:   timeout,
	}, nil
}

// ResolveHealthURL returns HealthPath on the origin of base.
func ResolveHealthURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base url %q: scheme must be http or https", base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q: missing host", base)
	}
	return u.ResolveReference(&url.URL{Path: HealthPath}).String(), nil
}

// HealthURL is the endpoint every refresh fetches.
func (p *Poller) HealthURL() string {
	return p.healthURL
}

// Active reports whether the page carries the root marker.
func (p *Poller) Active() bool {
	return p.doc.Has(AttrPage)
}

// Bind attaches the refresh and copy triggers and performs the initial
// refresh. Without the root marker it does nothing and returns false.
// Binding an already bound poller only reports true.
func (p *Poller) Bind(ctx context.Context) bool {
	if !p.Active() {
		p.logger.Debug("Health page marker absent, poller disabled")
		return false
	}

	p.bindMutex.Lock()
	if p.bound {
		p.bindMutex.Unlock()
		return true
	}
	p.bound = true
	p.bindMutex.Unlock()

	p.doc.On(AttrRefresh, func(ctx context.Context) {
		p.Refresh(ctx)
	})

	copyJSON := func(ctx context.Context) {
		res := p.Copy(ctx)
		if sink, ok := ctx.Value(copySinkKey{}).(*CopyResult); ok {
			*sink = res
		}
	}
	p.doc.On(AttrCopy, copyJSON)
	p.doc.On(AttrCopy2, copyJSON)

	p.Refresh(ctx)
	return true
}

// Refresh shows the checking state, fetches the report, and replaces the
// whole rendered view with it. Concurrent refreshes are not fenced: the
// last one to finish wins, and each render is applied atomically.
func (p *Poller) Refresh(ctx context.Context) FetchResult {
	log := p.logger.With(slog.String("refresh_id", uuid.NewString()))

	p.doc.Update(func(root dom.Root) {
		renderPending(root)
		p.setState(PollState{Phase: PhasePending})
	})
	started := p.collector.Emit(metrics.MetricEvent{
		Type:   metrics.EventRefreshStarted,
		Target: p.healthURL,
	})

	res := p.fetcher.FetchStatus(ctx, p.healthURL, p.timeout)

	p.doc.Update(func(root dom.Root) {
		renderResult(root, res)
		p.setState(stateOf(res))
	})
	// only report completions whose start was counted
	if started {
		p.collector.Emit(metrics.MetricEvent{
			Type:       metrics.EventRefreshCompleted,
			Target:     p.healthURL,
			Duration:   res.Duration,
			StatusCode: res.Status,
			Outcome:    outcomeOf(res),
			Healthy:    res.OK,
		})
	}

	log.Info("Health refreshed",
		slog.String("url", p.healthURL),
		slog.Bool("ok", res.OK),
		slog.Int("status", res.Status),
		slog.String("kind", res.Kind.String()),
		slog.Bool("degraded", res.Degraded()),
		slog.Int("checks", len(res.Report.Checks)),
		slog.Duration("duration", res.Duration))

	return res
}

// Copy writes the JSON panel text, exactly as displayed, to the clipboard.
// Failures are reported in the result and never escape as panics or errors.
func (p *Poller) Copy(ctx context.Context) CopyResult {
	text := "{}"
	p.doc.View(func(root dom.Root) {
		if el := root.Find(AttrJSON); el != nil {
			text = el.Text()
		}
	})

	res := CopyResult{OK: true, Text: text}
	if p.clipboard == nil {
		res = CopyResult{Text: text, Kind: KindClipboard, Err: fmt.Errorf("%w: no clipboard", ErrClipboard)}
	} else if err := p.clipboard.WriteText(ctx, text); err != nil {
		res = CopyResult{Text: text, Kind: KindClipboard, Err: fmt.Errorf("%w: %v", ErrClipboard, err)}
	}

	p.collector.Emit(metrics.MetricEvent{
		Type:   metrics.EventCopyCompleted,
		Copied: res.OK,
	})
	if res.Err != nil {
		p.logger.Debug("Copy failed", slog.Any("err", res.Err))
	}

	return res
}

type copySinkKey struct{}

// CopyVia activates the copy trigger carrying attr and returns what the copy
// did. It reports false, copying nothing, when no bound trigger carries attr.
func (p *Poller) CopyVia(ctx context.Context, attr string) (CopyResult, bool) {
	var res CopyResult
	if p.doc.Click(context.WithValue(ctx, copySinkKey{}, &res), attr) == 0 {
		return CopyResult{}, false
	}
	return res, true
}

// Trigger activates the page trigger carrying attr, as a click would.
func (p *Poller) Trigger(ctx context.Context, attr string) bool {
	return p.doc.Click(ctx, attr) > 0
}

// Render writes the page as HTML.
func (p *Poller) Render(w io.Writer) error {
	return p.doc.Render(w)
}

// State returns the state matching the current render.
func (p *Poller) State() PollState {
	p.stateMutex.RLock()
	defer p.stateMutex.RUnlock()
	return p.state
}

// setState is called with the document lock held so state and render
// change together.
func (p *Poller) setState(s PollState) {
	p.stateMutex.Lock()
	p.state = s
	p.stateMutex.Unlock()
}

func stateOf(res FetchResult) PollState {
	if res.OK {
		return PollState{Phase: PhaseHealthy, Status: res.Status}
	}
	return PollState{Phase: PhaseUnhealthy, Status: res.Status}
}

func outcomeOf(res FetchResult) string {
	switch res.Kind {
	case KindNone:
		return "healthy"
	case KindHTTPStatus:
		return "not_ready"
	default:
		return res.Kind.String()
	}
}
