package screenshot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver renders each viewport capture as a solid color derived from the
// current scroll origin so the test can tell which tile landed where.
type fakeDriver struct {
	mu          sync.Mutex
	metrics     Metrics
	metricsErr  error
	captureErr  error
	heights     []int
	heightReads int
	scrolls     [][2]int
	x, y        int
}

func (d *fakeDriver) Metrics(context.Context) (Metrics, error) {
	if d.metricsErr != nil {
		return Metrics{}, d.metricsErr
	}
	return d.metrics, nil
}

func (d *fakeDriver) ScrollHeight(context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.heightReads
	d.heightReads++
	if idx >= len(d.heights) {
		idx = len(d.heights) - 1
	}
	return d.heights[idx], nil
}

func (d *fakeDriver) ScrollTo(_ context.Context, x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrolls = append(d.scrolls, [2]int{x, y})
	d.x, d.y = x, y
	return nil
}

func (d *fakeDriver) CaptureViewport(context.Context) ([]byte, error) {
	if d.captureErr != nil {
		return nil, d.captureErr
	}
	d.mu.Lock()
	fill := tileColor(d.x, d.y)
	d.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, d.metrics.ViewportWidth, d.metrics.ViewportHeight))
	for px := 0; px < d.metrics.ViewportWidth; px++ {
		for py := 0; py < d.metrics.ViewportHeight; py++ {
			img.SetRGBA(px, py, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tileColor(x, y int) color.RGBA {
	return color.RGBA{R: uint8(x % 251), G: uint8(y % 251), B: 7, A: 255}
}

func fastConfig(fullPage bool) Config {
	return Config{
		FullPage:            fullPage,
		SettleDelay:         time.Millisecond,
		TileDelay:           time.Millisecond,
		MaxSettleIterations: 3,
	}
}

func TestCaptureViewportOnlyWhenFullPageDisabled(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{
		metrics: Metrics{TotalWidth: 100, TotalHeight: 200, ViewportWidth: 100, ViewportHeight: 80},
		heights: []int{200},
	}
	comp := New(driver, fastConfig(false), nil)

	buf, err := comp.Capture(context.Background())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
	assert.Empty(t, driver.scrolls, "viewport capture must not scroll")
}

func TestCaptureFullPageStitchesExactCanvas(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{
		metrics: Metrics{TotalWidth: 100, TotalHeight: 200, ViewportWidth: 100, ViewportHeight: 80},
		heights: []int{200},
	}
	comp := New(driver, fastConfig(true), nil)

	buf, err := comp.Capture(context.Background())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(buf))
	require.NoError(t, err)
	require.Equal(t, 100, img.Bounds().Dx())
	require.Equal(t, 200, img.Bounds().Dy())

	// Rows 0-79 come from the tile at y=0, rows 80-119 from y=80, and rows
	// 120-199 from the clamped last tile at y=120 (which overwrites the
	// overlap with the middle tile).
	assert.Equal(t, tileColor(0, 0), rgbaAt(img, 50, 40))
	assert.Equal(t, tileColor(0, 80), rgbaAt(img, 50, 100))
	assert.Equal(t, tileColor(0, 120), rgbaAt(img, 50, 150))
	assert.Equal(t, tileColor(0, 120), rgbaAt(img, 50, 199))

	wantScrollYs := []int{0, 80, 120}
	var tileYs []int
	for _, s := range driver.scrolls {
		if s[0] == 0 && s[1] != 0 && s[1] != 200 {
			tileYs = append(tileYs, s[1])
		}
	}
	assert.Equal(t, wantScrollYs[1:], tileYs)
	// The driver is returned to the origin once stitching is done.
	assert.Equal(t, [2]int{0, 0}, driver.scrolls[len(driver.scrolls)-1])
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	r, g, b, a := img.At(x, y).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func TestCaptureFallsBackToViewportOnMetricsError(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{
		metrics:    Metrics{TotalWidth: 100, TotalHeight: 200, ViewportWidth: 100, ViewportHeight: 80},
		metricsErr: errors.New("evaluate failed"),
		heights:    []int{200},
	}
	comp := New(driver, fastConfig(true), nil)

	buf, err := comp.Capture(context.Background())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dy())
	assert.Equal(t, [2]int{0, 0}, driver.scrolls[len(driver.scrolls)-1])
}

func TestCaptureFailsWhenFallbackCaptureAlsoFails(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{
		metrics:    Metrics{},
		metricsErr: errors.New("evaluate failed"),
		captureErr: errors.New("tab gone"),
		heights:    []int{200},
	}
	comp := New(driver, fastConfig(true), nil)

	_, err := comp.Capture(context.Background())
	assert.Error(t, err)
}

func TestSettleLoopIsBounded(t *testing.T) {
	t.Parallel()

	// Heights that never stabilize; the settling loop must still terminate.
	driver := &fakeDriver{
		metrics: Metrics{TotalWidth: 100, TotalHeight: 80, ViewportWidth: 100, ViewportHeight: 80},
		heights: []int{100, 200, 300, 400, 500, 600, 700},
	}
	comp := New(driver, fastConfig(true), nil)

	_, err := comp.Capture(context.Background())
	require.NoError(t, err)
	// One initial read plus at most MaxSettleIterations re-reads.
	assert.LessOrEqual(t, driver.heightReads, 4)
}

func TestSettleStopsOnStableHeight(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{
		metrics: Metrics{TotalWidth: 100, TotalHeight: 80, ViewportWidth: 100, ViewportHeight: 80},
		heights: []int{150, 150},
	}
	comp := New(driver, fastConfig(true), nil)

	_, err := comp.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, driver.heightReads)
}
