package screenshot

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/siteatlas/siteatlas/internal/session"
)

const metricsJS = `({
	totalWidth: Math.max(document.documentElement.scrollWidth, document.body ? document.body.scrollWidth : 0),
	totalHeight: Math.max(document.documentElement.scrollHeight, document.body ? document.body.scrollHeight : 0),
	viewportWidth: window.innerWidth,
	viewportHeight: window.innerHeight
})`

// ChromeDriver implements Driver against the run's shared browser tab. All
// operations act on whatever page the fetcher last navigated to.
type ChromeDriver struct {
	sess *session.Browser
}

// NewChromeDriver wraps an already-launched session.
func NewChromeDriver(sess *session.Browser) *ChromeDriver {
	return &ChromeDriver{sess: sess}
}

// Metrics reads the page and viewport dimensions from the live document.
func (d *ChromeDriver) Metrics(ctx context.Context) (Metrics, error) {
	var m Metrics
	if err := d.run(ctx, chromedp.Evaluate(metricsJS, &m)); err != nil {
		return Metrics{}, fmt.Errorf("evaluate page metrics: %w", err)
	}
	return m, nil
}

// ScrollHeight reads the current document scroll height.
func (d *ChromeDriver) ScrollHeight(ctx context.Context) (int, error) {
	var height int
	if err := d.run(ctx, chromedp.Evaluate(`document.documentElement.scrollHeight`, &height)); err != nil {
		return 0, fmt.Errorf("evaluate scroll height: %w", err)
	}
	return height, nil
}

// ScrollTo moves the viewport origin to (x, y) in page coordinates.
func (d *ChromeDriver) ScrollTo(ctx context.Context, x, y int) error {
	script := fmt.Sprintf(`window.scrollTo(%d, %d)`, x, y)
	if err := d.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll to (%d,%d): %w", x, y, err)
	}
	return nil
}

// CaptureViewport takes a PNG of the currently visible viewport.
func (d *ChromeDriver) CaptureViewport(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture viewport: %w", err)
	}
	return buf, nil
}

// run executes actions on the session tab. The caller's ctx is consulted for
// cancellation before the action starts; the action itself runs on the tab
// context so it stays bound to the browser's lifetime.
func (d *ChromeDriver) run(ctx context.Context, action chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(d.sess.Context(), action)
}
