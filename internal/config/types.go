package config

import (
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway" json:"gateway"`
	Endpoint EndpointConfig `yaml:"endpoint" json:"endpoint"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

type GatewayConfig struct {
	Port           int           `yaml:"port" json:"port"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes" json:"maxUploadBytes"` // whole multipart request, not just the file
	ViewTTL        time.Duration `yaml:"viewTTL" json:"viewTTL"`               // idle page views are dropped after this
}

// EndpointConfig describes the single automation endpoint that receives
// both submissions and chat questions.
type EndpointConfig struct {
	URL       string        `yaml:"url" json:"url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"` // 0 = no timeout
	UserAgent string        `yaml:"userAgent" json:"userAgent"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"` // debug | info | warn | error
}

// SlogLevel maps the configured level name onto slog; unknown names mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	DefaultPort           = 19810
	DefaultMaxUploadBytes = 12 << 20
	DefaultViewTTL        = 2 * time.Hour
	DefaultTimeout        = 60 * time.Second
	DefaultUserAgent      = "ApplyDesk/1.0"
)

func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Port:           DefaultPort,
			MaxUploadBytes: DefaultMaxUploadBytes,
			ViewTTL:        DefaultViewTTL,
		},
		Endpoint: EndpointConfig{
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Log: LogConfig{Level: "info"},
	}
}
