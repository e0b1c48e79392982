package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteatlas/siteatlas/internal/crawl"
)

func TestSetDefaultsAreUsableAsIs(t *testing.T) {
	t.Parallel()

	v := viper.New()
	setDefaults(v)

	// The default crawl settings must validate without any config file.
	cfg, err := crawl.LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Equal(t, crawl.ModeBrowser, cfg.Mode)
	assert.Equal(t, 10*time.Second, cfg.NavTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.SettleDelay)
	assert.True(t, cfg.Screenshots)
	assert.True(t, cfg.FullPage)
	assert.NotEmpty(t, cfg.UserAgent)
}

func TestSetDefaultsCoverEverySubsystem(t *testing.T) {
	t.Parallel()

	v := viper.New()
	setDefaults(v)

	assert.Equal(t, "local", v.GetString("storage.provider"))
	assert.Equal(t, "data/site", v.GetString("storage.local.base_dir"))
	assert.False(t, v.GetBool("database.enabled"))
	assert.Equal(t, "pages", v.GetString("database.table"))
	assert.Equal(t, "noop", v.GetString("publisher.provider"))
	assert.Equal(t, ":8080", v.GetString("server.listen_addr"))
	assert.Equal(t, 16, v.GetInt("server.queue_capacity"))
	assert.Equal(t, 60*time.Second, v.GetDuration("server.request_timeout"))
	assert.True(t, v.GetBool("browser.headless"))
	assert.Equal(t, 1440, v.GetInt("browser.window_width"))
	assert.Equal(t, 10, v.GetInt("screenshot.max_settle_iterations"))
}
