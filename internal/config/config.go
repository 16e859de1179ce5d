package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"cmskit/internal/errors"
)

const (
	// EnvPrefix prefixes every environment override, e.g. CMSKIT_CMS_BASE_URL
	EnvPrefix = "CMSKIT"
	// FileEnv names an optional YAML config file
	FileEnv = "CMSKIT_CONFIG"
)

// Config represents the complete application configuration
type Config struct {
	CMS        CMSConfig        `mapstructure:"cms"`
	Credential CredentialConfig `mapstructure:"credential"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Export     ExportConfig     `mapstructure:"export"`
}

// CMSConfig holds CMS API connection settings
type CMSConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// CredentialConfig locates the stored cookie. An empty URL means the
// per-user default location.
type CredentialConfig struct {
	URL     string `mapstructure:"url"`
	Default string `mapstructure:"default"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`
	MaxJobs int64  `mapstructure:"max_jobs"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ExportConfig holds exporter settings
type ExportConfig struct {
	Limit int `mapstructure:"limit"`
}

var defaults = map[string]any{
	"cms.base_url":       "http://cms.enjoy-tv.cn",
	"cms.timeout":        "30s",
	"cms.user_agent":     "",
	"credential.url":     "",
	"credential.default": "",
	"server.port":        "8080",
	"server.gin_mode":    "release",
	"server.max_jobs":    2,
	"log.level":          "info",
	"log.development":    false,
	"export.limit":       1000,
}

// Load reads configuration from defaults, the optional file named by
// CMSKIT_CONFIG and CMSKIT_* environment variables, then validates it.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile is Load with an explicit config file; an empty path skips the file
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid,
				errors.Wrapf(err, "failed to read config file %s", path))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid,
			errors.Wrap(err, "failed to parse configuration"))
	}
	cfg.CMS.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.CMS.BaseURL), "/")
	cfg.Credential.Default = strings.TrimSpace(cfg.Credential.Default)

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func decodeHook(dc *mapstructure.DecoderConfig) {
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func validateConfig(cfg *Config) error {
	if cfg.CMS.BaseURL == "" {
		return errors.ConfigInvalid("cms base URL is required")
	}
	if !strings.HasPrefix(cfg.CMS.BaseURL, "http://") && !strings.HasPrefix(cfg.CMS.BaseURL, "https://") {
		return errors.ConfigInvalid("cms base URL must be http or https: " + cfg.CMS.BaseURL)
	}
	if cfg.CMS.Timeout <= 0 {
		return errors.ConfigInvalid("cms timeout must be positive")
	}
	if cfg.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if cfg.Server.MaxJobs < 1 {
		return errors.ConfigInvalid("server max_jobs must be at least 1")
	}
	if cfg.Export.Limit < 1 {
		return errors.ConfigInvalid("export limit must be at least 1")
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return errors.ConfigInvalid("unknown log level " + cfg.Log.Level)
	}
	return nil
}
