// Package session manages the single exclusive browser process behind a
// crawl run. Every navigation and capture in a run shares one tab, so the
// authenticated state established at launch survives across pages.
package session

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls how the browser is launched.
type Config struct {
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// ExtraHeaders are attached to every request, e.g. a pre-issued
	// Authorization or Cookie header for the target application.
	ExtraHeaders map[string]string
	// ExecPath overrides browser discovery; empty uses the chromedp default.
	ExecPath string
}

const (
	defaultWindowWidth  = 1440
	defaultWindowHeight = 900
)

// Browser owns the allocator and the long-lived tab context for one run.
// Access is exclusive: callers must serialize navigations themselves.
type Browser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *zap.Logger
}

// Launch starts the browser process, opens the run's tab, and applies the
// session identity (user agent, extra headers) before any navigation.
func Launch(cfg Config, logger *zap.Logger) (*Browser, error) {
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = defaultWindowWidth
	}
	if cfg.WindowHeight <= 0 {
		cfg.WindowHeight = defaultWindowHeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, sessionSetup(cfg)); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser warmup: %w", err)
	}

	logger.Info("browser session started",
		zap.Bool("headless", cfg.Headless),
		zap.Int("window_width", cfg.WindowWidth),
		zap.Int("window_height", cfg.WindowHeight),
	)
	return &Browser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

func sessionSetup(cfg Config) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(cfg.ExtraHeaders) > 0 {
			headers := network.Headers{}
			for key, value := range cfg.ExtraHeaders {
				headers[key] = value
			}
			if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

// Context returns the run's shared tab context.
func (b *Browser) Context() context.Context {
	return b.browserCtx
}

// Alive reports whether the browser process is still reachable. A dead
// session cannot be recovered within a run.
func (b *Browser) Alive() bool {
	return b.browserCtx.Err() == nil
}

// Close tears down the tab and the allocator.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
	b.logger.Debug("browser session closed")
}
