package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var current atomic.Pointer[Config]

var (
	onReloadMu        sync.Mutex
	onReloadCallbacks []func(*Config)
)

// Get returns the current in-memory config (hot-reloaded when the file changes).
func Get() *Config { return current.Load() }

// Set sets the current in-memory config. Used at startup and by the file watcher.
func Set(c *Config) {
	if c != nil {
		current.Store(c)
	}
}

// RegisterOnReload registers a callback that runs after config is hot-reloaded.
func RegisterOnReload(fn func(*Config)) {
	onReloadMu.Lock()
	defer onReloadMu.Unlock()
	onReloadCallbacks = append(onReloadCallbacks, fn)
}

func notifyReload(cfg *Config) {
	onReloadMu.Lock()
	cb := make([]func(*Config), len(onReloadCallbacks))
	copy(cb, onReloadCallbacks)
	onReloadMu.Unlock()
	for _, fn := range cb {
		fn(cfg)
	}
}

//go:embed config.example.yaml
var exampleConfigBytes []byte

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadEnv loads the .env files that exist into the process environment.
// Variables already set in the environment win.
func LoadEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFromExample unmarshals the embedded config.example.yaml as the default config.
func LoadFromExample() (*Config, error) {
	cfg, err := parse(exampleConfigBytes)
	if err != nil {
		return nil, fmt.Errorf("parse example config: %w", err)
	}
	return cfg, nil
}

// LoadOrExample loads path, falling back to the embedded example when the
// file does not exist. Parse errors are never masked.
func LoadOrExample(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}
	cfg, err = LoadFromExample()
	return cfg, true, err
}

func parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))
	// Keys missing from the file keep their defaults; an explicit
	// endpoint.timeout of 0s still disables the timeout.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	applyLoadDefaults(cfg)
	return cfg, nil
}

func applyLoadDefaults(cfg *Config) {
	if cfg.Gateway.Port <= 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Gateway.MaxUploadBytes <= 0 {
		cfg.Gateway.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Gateway.ViewTTL <= 0 {
		cfg.Gateway.ViewTTL = DefaultViewTTL
	}
	if cfg.Endpoint.Timeout < 0 {
		cfg.Endpoint.Timeout = 0
	}
	if cfg.Endpoint.UserAgent == "" {
		cfg.Endpoint.UserAgent = DefaultUserAgent
	}
	// An unset ${VAR} is left verbatim by expandEnvVars; it is not a URL.
	if envVarPattern.MatchString(cfg.Endpoint.URL) {
		cfg.Endpoint.URL = ""
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// CreateFromExample writes the embedded config.example.yaml to targetPath.
// An existing file is left alone.
func CreateFromExample(targetPath string) error {
	if _, err := os.Stat(targetPath); err == nil {
		return fmt.Errorf("config already exists: %s", targetPath)
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(targetPath, exampleConfigBytes, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
