package crawl

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		BaseURL:     "https://app.example.com",
		StartURL:    "https://app.example.com/home",
		MaxDepth:    3,
		SettleDelay: time.Second,
		NavTimeout:  30 * time.Second,
		Mode:        ModeBrowser,
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("target.base_url", "https://app.example.com")
	v.Set("crawler.max_depth", 4)
	v.Set("crawler.exclude_patterns", []string{`\.pdf$`})
	v.Set("crawler.settle_delay", "2s")
	v.Set("crawler.nav_timeout", "45s")
	v.Set("crawler.screenshots", true)
	v.Set("crawler.mode", ModeStatic)
	v.Set("crawler.requests_per_second", 2.5)

	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "https://app.example.com", cfg.BaseURL)
	// StartURL falls back to the base URL when unset.
	assert.Equal(t, "https://app.example.com", cfg.StartURL)
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.Equal(t, 2*time.Second, cfg.SettleDelay)
	assert.Equal(t, 45*time.Second, cfg.NavTimeout)
	assert.True(t, cfg.Screenshots)
	assert.Equal(t, ModeStatic, cfg.Mode)
	assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 0.001)
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero depth", mutate: func(c *Config) { c.MaxDepth = 0 }, wantErr: "max_depth"},
		{name: "negative settle delay", mutate: func(c *Config) { c.SettleDelay = -time.Second }, wantErr: "settle_delay"},
		{name: "zero nav timeout", mutate: func(c *Config) { c.NavTimeout = 0 }, wantErr: "nav_timeout"},
		{name: "negative rate", mutate: func(c *Config) { c.RequestsPerSecond = -1 }, wantErr: "requests_per_second"},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "teleport" }, wantErr: "crawler.mode"},
		{name: "bad exclusion", mutate: func(c *Config) { c.ExcludePatterns = []string{"["} }, wantErr: "exclude pattern"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.ValidateDefaults()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateRequiresTarget(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.BaseURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.base_url")

	// ValidateDefaults deliberately ignores the target; API submitted runs
	// bring their own seed.
	assert.NoError(t, cfg.ValidateDefaults())
}
