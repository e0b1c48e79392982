// Package config initializes the application's configuration. It uses Viper
// to merge settings from a config file, environment variables, and
// command-line flags into one view.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitConfig sets defaults, search paths, and environment mapping, then
// attempts to read the config file. A missing file is not fatal; defaults
// and environment variables still apply.
func InitConfig(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/siteatlas/")
	viper.AddConfigPath("$HOME/.siteatlas")

	setDefaults(viper.GetViper())

	// e.g. SITEATLAS_CRAWLER_MAX_DEPTH=5
	viper.SetEnvPrefix("SITEATLAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("config file not found; using defaults and environment variables")
		} else {
			logger.Error("error reading config file", zap.Error(err))
		}
	} else {
		logger.Info("using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}

func setDefaults(v *viper.Viper) {
	const defaultUA = "SiteAtlas/1.0 (+https://github.com/siteatlas/siteatlas)"

	v.SetDefault("target.base_url", "")
	v.SetDefault("target.start_url", "")

	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.exclude_patterns", []string{})
	v.SetDefault("crawler.settle_delay", "1500ms")
	v.SetDefault("crawler.nav_timeout", "10s")
	v.SetDefault("crawler.screenshots", true)
	v.SetDefault("crawler.full_page", true)
	v.SetDefault("crawler.mode", "browser")
	v.SetDefault("crawler.user_agent", defaultUA)
	v.SetDefault("crawler.requests_per_second", 0.0)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1440)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.extra_headers", map[string]string{})
	v.SetDefault("browser.exec_path", "")

	v.SetDefault("screenshot.settle_delay", "1s")
	v.SetDefault("screenshot.tile_delay", "200ms")
	v.SetDefault("screenshot.max_settle_iterations", 10)

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local.base_dir", "data/site")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.prefix", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", "pages")

	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("publisher.gcp.project_id", "")
	v.SetDefault("publisher.topic", "")

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.queue_capacity", 16)

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
}
