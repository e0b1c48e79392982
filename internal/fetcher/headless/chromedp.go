// Package headless fetches pages through the run's browser session so that
// JavaScript-rendered content and authenticated state are observed.
package headless

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/siteatlas/siteatlas/internal/crawl"
	"github.com/siteatlas/siteatlas/internal/session"
)

// Config controls navigation behavior.
type Config struct {
	// NavigationTimeout bounds a single navigate-and-extract round trip.
	NavigationTimeout time.Duration
	// SettleDelay is the fixed wait after the body is ready, giving client
	// side rendering a chance to finish.
	SettleDelay time.Duration
	// RequestsPerSecond throttles navigations against the target; zero
	// disables throttling.
	RequestsPerSecond float64
}

const defaultNavigationTimeout = 10 * time.Second

// Fetcher implements crawl.Fetcher on top of the exclusive browser session.
type Fetcher struct {
	sess    *session.Browser
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New builds a Fetcher over an already-launched session.
func New(sess *session.Browser, cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Fetcher{sess: sess, cfg: cfg, limiter: limiter, logger: logger}
}

// linkDTO mirrors the anchor projection evaluated in the page.
type linkDTO struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

const extractLinksJS = `Array.from(document.querySelectorAll('a[href]')).map(a => ({url: a.href, text: (a.textContent || '').trim()}))`

// Fetch navigates the shared tab to rawURL and returns the rendered document
// with its outgoing links. Errors are classified: a dead browser maps to
// crawl.ErrSessionLost and an expired navigation deadline maps to
// crawl.ErrNavigationTimeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawl.FetchResult, error) {
	if !f.sess.Alive() {
		return crawl.FetchResult{}, fmt.Errorf("fetch %s: %w", rawURL, crawl.ErrSessionLost)
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return crawl.FetchResult{}, fmt.Errorf("navigation rate limit: %w", err)
		}
	}

	taskCtx, cancel := context.WithTimeout(f.sess.Context(), f.cfg.NavigationTimeout)
	defer cancel()

	var (
		finalURL string
		title    string
		html     string
		rawLinks []linkDTO
	)
	actions := []chromedp.Action{
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(extractLinksJS, &rawLinks),
	}

	start := time.Now()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return crawl.FetchResult{}, f.classify(rawURL, taskCtx, err)
	}

	links := make([]crawl.Link, 0, len(rawLinks))
	for _, raw := range rawLinks {
		if !strings.HasPrefix(raw.URL, "http://") && !strings.HasPrefix(raw.URL, "https://") {
			continue
		}
		links = append(links, crawl.Link{URL: raw.URL, Text: raw.Text})
	}

	return crawl.FetchResult{
		FinalURL: finalURL,
		Title:    title,
		HTML:     []byte(html),
		Links:    links,
		Duration: time.Since(start),
	}, nil
}

// classify maps a raw chromedp failure onto the crawl error taxonomy.
func (f *Fetcher) classify(rawURL string, taskCtx context.Context, err error) error {
	if !f.sess.Alive() {
		f.logger.Error("browser session lost during navigation", zap.String("url", rawURL), zap.Error(err))
		return fmt.Errorf("fetch %s: %w", rawURL, crawl.ErrSessionLost)
	}
	if errors.Is(err, context.DeadlineExceeded) && taskCtx.Err() != nil {
		return fmt.Errorf("fetch %s after %s: %w", rawURL, f.cfg.NavigationTimeout, crawl.ErrNavigationTimeout)
	}
	return fmt.Errorf("fetch %s: %w", rawURL, err)
}
