package crawl

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// Crawl modes selecting the Fetcher implementation.
const (
	ModeBrowser = "browser"
	ModeStatic  = "static"
)

// Config captures every knob that influences a crawl run. All values
// originate from Viper so the crawler can be configured via files, env vars,
// or CLI flags.
type Config struct {
	BaseURL           string
	StartURL          string
	MaxDepth          int
	ExcludePatterns   []string
	SettleDelay       time.Duration
	NavTimeout        time.Duration
	Screenshots       bool
	FullPage          bool
	Mode              string
	UserAgent         string
	RequestsPerSecond float64
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:           v.GetString("target.base_url"),
		StartURL:          v.GetString("target.start_url"),
		MaxDepth:          v.GetInt("crawler.max_depth"),
		ExcludePatterns:   v.GetStringSlice("crawler.exclude_patterns"),
		SettleDelay:       v.GetDuration("crawler.settle_delay"),
		NavTimeout:        v.GetDuration("crawler.nav_timeout"),
		Screenshots:       v.GetBool("crawler.screenshots"),
		FullPage:          v.GetBool("crawler.full_page"),
		Mode:              v.GetString("crawler.mode"),
		UserAgent:         v.GetString("crawler.user_agent"),
		RequestsPerSecond: v.GetFloat64("crawler.requests_per_second"),
	}
	if cfg.StartURL == "" {
		cfg.StartURL = cfg.BaseURL
	}
	return cfg, cfg.ValidateDefaults()
}

// Validate checks the full configuration, including the crawl target. Use it
// on paths where the target comes from configuration rather than a request.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("target.base_url must be set")
	}
	return c.ValidateDefaults()
}

// ValidateDefaults checks every setting except the crawl target, which API
// submitted runs supply per request.
func (c Config) ValidateDefaults() error {
	if c.MaxDepth <= 0 {
		return fmt.Errorf("crawler.max_depth must be > 0")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("crawler.settle_delay must be >= 0")
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("crawler.nav_timeout must be > 0")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("crawler.requests_per_second must be >= 0")
	}
	if c.Mode != ModeBrowser && c.Mode != ModeStatic {
		return fmt.Errorf("crawler.mode must be %q or %q", ModeBrowser, ModeStatic)
	}
	if _, err := c.CompileExclusions(); err != nil {
		return err
	}
	return nil
}

// CompileExclusions compiles the ordered exclusion pattern list.
func (c Config) CompileExclusions() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.ExcludePatterns))
	for _, raw := range c.ExcludePatterns {
		pattern, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", raw, err)
		}
		out = append(out, pattern)
	}
	return out, nil
}
