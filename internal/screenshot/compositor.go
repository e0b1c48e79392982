// Package screenshot reconstructs a full-page raster from viewport-sized
// captures by scrolling the page tile by tile and stitching the results.
package screenshot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"time"

	"go.uber.org/zap"
)

// Metrics describes the page and viewport geometry in layout pixels.
type Metrics struct {
	TotalWidth     int `json:"totalWidth"`
	TotalHeight    int `json:"totalHeight"`
	ViewportWidth  int `json:"viewportWidth"`
	ViewportHeight int `json:"viewportHeight"`
}

// Driver exposes the browser primitives the compositor needs. It is a small
// surface so tests can run the stitching logic without a browser.
type Driver interface {
	Metrics(ctx context.Context) (Metrics, error)
	ScrollHeight(ctx context.Context) (int, error)
	ScrollTo(ctx context.Context, x, y int) error
	CaptureViewport(ctx context.Context) ([]byte, error)
}

// Config controls compositor timing and bounds.
type Config struct {
	// FullPage disables tiling when false; a plain viewport capture is taken.
	FullPage bool
	// SettleDelay is the wait after scrolling to the bottom while the scroll
	// height stabilizes (lazy-loaded content).
	SettleDelay time.Duration
	// TileDelay is the short render wait after scrolling to each tile.
	TileDelay time.Duration
	// MaxSettleIterations bounds the scroll-height settling loop so a
	// perpetually growing page cannot stall the run.
	MaxSettleIterations int
}

const (
	defaultSettleDelay = 1 * time.Second
	defaultTileDelay   = 200 * time.Millisecond
	defaultMaxSettle   = 10
)

// Compositor captures and stitches a full-page screenshot of the page
// currently loaded in the browser. Any failure degrades to a single viewport
// capture; capture never aborts the page record.
type Compositor struct {
	driver Driver
	cfg    Config
	logger *zap.Logger
}

// New builds a Compositor over the provided driver.
func New(driver Driver, cfg Config, logger *zap.Logger) *Compositor {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.TileDelay <= 0 {
		cfg.TileDelay = defaultTileDelay
	}
	if cfg.MaxSettleIterations <= 0 {
		cfg.MaxSettleIterations = defaultMaxSettle
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compositor{driver: driver, cfg: cfg, logger: logger}
}

// Capture returns a PNG of the current page. With FullPage enabled it settles
// the scroll height, tiles the page, and composites an exact-size canvas;
// otherwise (or on any compositing failure) it captures the visible viewport.
func (c *Compositor) Capture(ctx context.Context) ([]byte, error) {
	if !c.cfg.FullPage {
		return c.driver.CaptureViewport(ctx)
	}
	buf, err := c.captureFullPage(ctx)
	if err != nil {
		c.logger.Warn("full-page composite failed; falling back to viewport capture", zap.Error(err))
		if scrollErr := c.driver.ScrollTo(ctx, 0, 0); scrollErr != nil {
			return nil, fmt.Errorf("fallback scroll: %w", scrollErr)
		}
		return c.driver.CaptureViewport(ctx)
	}
	return buf, nil
}

func (c *Compositor) captureFullPage(ctx context.Context) ([]byte, error) {
	if err := c.settleScrollHeight(ctx); err != nil {
		return nil, err
	}

	metrics, err := c.driver.Metrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page metrics: %w", err)
	}
	if metrics.TotalWidth <= 0 || metrics.TotalHeight <= 0 ||
		metrics.ViewportWidth <= 0 || metrics.ViewportHeight <= 0 {
		return nil, fmt.Errorf("degenerate page metrics %+v", metrics)
	}

	// The canvas matches the measured page exactly: tiles are cropped by the
	// canvas bounds, never stretched.
	canvas := image.NewRGBA(image.Rect(0, 0, metrics.TotalWidth, metrics.TotalHeight))

	for _, tile := range tileGrid(metrics.TotalWidth, metrics.TotalHeight, metrics.ViewportWidth, metrics.ViewportHeight) {
		if err := c.driver.ScrollTo(ctx, tile.X, tile.Y); err != nil {
			return nil, fmt.Errorf("scroll to tile (%d,%d): %w", tile.X, tile.Y, err)
		}
		time.Sleep(c.cfg.TileDelay)

		shot, err := c.driver.CaptureViewport(ctx)
		if err != nil {
			return nil, fmt.Errorf("capture tile (%d,%d): %w", tile.X, tile.Y, err)
		}
		img, err := png.Decode(bytes.NewReader(shot))
		if err != nil {
			return nil, fmt.Errorf("decode tile (%d,%d): %w", tile.X, tile.Y, err)
		}
		bounds := img.Bounds()
		target := image.Rect(tile.X, tile.Y, tile.X+bounds.Dx(), tile.Y+bounds.Dy())
		draw.Draw(canvas, target, img, bounds.Min, draw.Src)
	}

	if err := c.driver.ScrollTo(ctx, 0, 0); err != nil {
		c.logger.Debug("scroll back to origin failed", zap.Error(err))
	}

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}
	return out.Bytes(), nil
}

// settleScrollHeight repeatedly scrolls to the bottom and re-reads the scroll
// height until two consecutive reads match, then returns to the origin. The
// iteration cap guarantees termination on pages that keep growing.
func (c *Compositor) settleScrollHeight(ctx context.Context) error {
	height, err := c.driver.ScrollHeight(ctx)
	if err != nil {
		return fmt.Errorf("read scroll height: %w", err)
	}
	for i := 0; i < c.cfg.MaxSettleIterations; i++ {
		if err := c.driver.ScrollTo(ctx, 0, height); err != nil {
			return fmt.Errorf("scroll to bottom: %w", err)
		}
		time.Sleep(c.cfg.SettleDelay)
		next, err := c.driver.ScrollHeight(ctx)
		if err != nil {
			return fmt.Errorf("re-read scroll height: %w", err)
		}
		if next == height {
			break
		}
		height = next
	}
	if err := c.driver.ScrollTo(ctx, 0, 0); err != nil {
		return fmt.Errorf("scroll to origin: %w", err)
	}
	time.Sleep(c.cfg.TileDelay)
	return nil
}
