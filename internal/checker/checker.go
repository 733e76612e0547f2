package checker

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/quietwire/linkcheck/internal/cache"
	"github.com/quietwire/linkcheck/internal/classify"
	"github.com/quietwire/linkcheck/internal/model"
)

const (
	// DefaultUserAgent identifies the checker to remote servers.
	DefaultUserAgent = "linkcheck/1.0 (+https://github.com/quietwire/linkcheck)"

	// DefaultMaxRedirects is the redirect limit used when none is configured.
	DefaultMaxRedirects = 5

	// DefaultTimeout bounds each request when no client is supplied.
	DefaultTimeout = 8 * time.Second

	// maxDrainBytes is how much of a response body is read before closing,
	// so the connection can be reused.
	maxDrainBytes = 64 << 10
)

// Recorder observes checker activity. internal/metrics implements it.
type Recorder interface {
	ObserveRequest(method string, code int, reason string, elapsed time.Duration)
	ObserveCache(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, int, string, time.Duration) {}
func (nopRecorder) ObserveCache(bool)                                 {}

// Checker verifies that external URLs are reachable.
// It is safe for concurrent use.
type Checker struct {
	client         *http.Client
	cache          *cache.Store
	limiter        Limiter
	recorder       Recorder
	logger         *slog.Logger
	userAgent      string
	maxRedirects   int
	guardRedirects bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithCache makes Check consult and update store.
func WithCache(store *cache.Store) Option {
	return func(c *Checker) {
		c.cache = store
	}
}

// WithMaxRedirects sets how many redirects are followed before a probe
// ends with redirect_loop. Negative values are ignored.
func WithMaxRedirects(n int) Option {
	return func(c *Checker) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Checker) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLimiter throttles requests per host.
func WithLimiter(l Limiter) Option {
	return func(c *Checker) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithRecorder reports requests and cache lookups to r.
func WithRecorder(r Recorder) Option {
	return func(c *Checker) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithPrivateRedirects allows redirects to private or loopback hosts.
// By default such a redirect ends the probe with private_or_localhost.
func WithPrivateRedirects() Option {
	return func(c *Checker) {
		c.guardRedirects = false
	}
}

type noLimit struct{}

func (noLimit) Wait(context.Context, string) error { return nil }

// New creates a Checker that sends requests with client.
// The client is copied; its redirect policy is replaced so that every
// 3xx response reaches the probe.
func New(client *http.Client, opts ...Option) *Checker {
	var hc http.Client
	if client != nil {
		hc = *client
	} else {
		hc.Timeout = DefaultTimeout
	}
	hc.CheckRedirect = noRedirect

	c := &Checker{
		client:         &hc,
		limiter:        noLimit{},
		recorder:       nopRecorder{},
		logger:         slog.Default(),
		userAgent:      DefaultUserAgent,
		maxRedirects:   DefaultMaxRedirects,
		guardRedirects: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check returns the outcome for a normalized external URL. A fresh cache
// record is returned as is without any network call; otherwise the URL is
// probed and the outcome stored. Outcomes of canceled checks are not stored.
func (c *Checker) Check(ctx context.Context, rawURL string) model.Outcome {
	if c.cache != nil {
		if outcome, ok := c.cache.Get(rawURL); ok {
			c.recorder.ObserveCache(true)
			c.logger.Debug("cache hit", "url", rawURL, "reason", outcome.Reason)
			return outcome
		}
		c.recorder.ObserveCache(false)
	}

	outcome := c.Probe(ctx, rawURL)
	if c.cache != nil && ctx.Err() == nil {
		c.cache.Put(rawURL, outcome)
	}
	return outcome
}

// Probe runs the reachability protocol for rawURL, bypassing the cache.
func (c *Checker) Probe(ctx context.Context, rawURL string) model.Outcome {
	state := initialState(rawURL)
	for {
		a := c.attempt(ctx, state.Method, state.Current)
		next, outcome, done := advance(state, a, c.maxRedirects)
		if done {
			c.logger.Debug("probe finished",
				"url", rawURL,
				"final", outcome.FinalURL,
				"redirects", next.Redirects,
				"reason", outcome.Reason,
			)
			return outcome
		}
		if c.guardRedirects && next.Redirects > state.Redirects && privateTarget(next.Current) {
			c.logger.Debug("redirect to private host", "url", rawURL, "location", next.Current)
			return model.Outcome{FinalURL: next.Current, Reason: model.ReasonPrivateHost}
		}
		state = next
	}
}

// attempt sends one request and reduces the response to what advance needs.
func (c *Checker) attempt(ctx context.Context, method, target string) attempt {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return attempt{Err: &errInvalidURL{err: err}}
	}
	req.Header.Set("User-Agent", c.userAgent)

	if err := c.limiter.Wait(ctx, req.URL.Hostname()); err != nil {
		return attempt{Err: err}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.recorder.ObserveRequest(method, 0, failureKind(err), time.Since(start))
		return attempt{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	c.recorder.ObserveRequest(method, resp.StatusCode, "", time.Since(start))

	a := attempt{Code: resp.StatusCode}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		a.Location = resolveLocation(req.URL, resp.Header.Get("Location"))
	}
	return a
}

func privateTarget(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return classify.IsPrivateHost(u.Hostname())
}
