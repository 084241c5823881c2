package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("APPLYDESK_TEST_URL", "https://script.example.com/exec")
	path := writeFile(t, t.TempDir(), "config.yaml", `
gateway:
  port: 8088
endpoint:
  url: ${APPLYDESK_TEST_URL}
  timeout: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := &Config{
		Gateway: GatewayConfig{
			Port:           8088,
			MaxUploadBytes: DefaultMaxUploadBytes,
			ViewTTL:        DefaultViewTTL,
		},
		Endpoint: EndpointConfig{
			URL:       "https://script.example.com/exec",
			Timeout:   5 * time.Second,
			UserAgent: DefaultUserAgent,
		},
		Log: LogConfig{Level: "info"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEndpointTimeout(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{name: "omitted", yaml: "endpoint:\n  url: https://x\n", want: DefaultTimeout},
		{name: "explicit zero", yaml: "endpoint:\n  url: https://x\n  timeout: 0s\n", want: 0},
		{name: "negative", yaml: "endpoint:\n  timeout: -5s\n", want: 0},
		{name: "set", yaml: "endpoint:\n  timeout: 90s\n", want: 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, t.TempDir(), "config.yaml", tt.yaml))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Endpoint.Timeout != tt.want {
				t.Errorf("timeout = %v, want %v", cfg.Endpoint.Timeout, tt.want)
			}
		})
	}
}

func TestWatchReloadsEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "endpoint:\n  url: https://old.example.com\n")
	SetPath(path)
	t.Cleanup(func() { SetPath("") })

	reloaded := make(chan EndpointConfig, 16)
	RegisterOnReload(func(c *Config) {
		select {
		case reloaded <- c.Endpoint:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// The watcher starts asynchronously; keep rewriting until a reload lands.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case ep := <-reloaded:
			if ep.URL != "https://new.example.com" {
				continue
			}
			if ep.Timeout != 7*time.Second {
				t.Errorf("timeout = %v, want 7s", ep.Timeout)
			}
			if got := Get(); got == nil || got.Endpoint.URL != "https://new.example.com" {
				t.Errorf("Get() not updated: %+v", got)
			}
			return
		case <-tick.C:
			writeFile(t, dir, "config.yaml", "endpoint:\n  url: https://new.example.com\n  timeout: 7s\n")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestLoadDropsUnresolvedEndpointURL(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "endpoint:\n  url: ${APPLYDESK_SURELY_UNSET_VAR}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint.URL != "" {
		t.Errorf("URL = %q, want empty", cfg.Endpoint.URL)
	}
}

func TestLoadOrExampleFallsBackOnlyWhenMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, fromExample, err := LoadOrExample(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrExample: %v", err)
	}
	if !fromExample {
		t.Error("expected example fallback for missing file")
	}
	if cfg.Gateway.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Gateway.Port, DefaultPort)
	}

	bad := writeFile(t, dir, "bad.yaml", "gateway: [")
	if _, _, err := LoadOrExample(bad); err == nil {
		t.Error("expected parse error to surface")
	}
}

func TestLoadEnvKeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "APPLYDESK_TEST_A=from-file\nAPPLYDESK_TEST_B=from-file\n")
	t.Setenv("APPLYDESK_TEST_A", "from-env")
	t.Setenv("APPLYDESK_TEST_B", "")
	os.Unsetenv("APPLYDESK_TEST_B")

	if err := LoadEnv(envPath, filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("APPLYDESK_TEST_A"); got != "from-env" {
		t.Errorf("A = %q, want from-env", got)
	}
	if got := os.Getenv("APPLYDESK_TEST_B"); got != "from-file" {
		t.Errorf("B = %q, want from-file", got)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (LogConfig{Level: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCreateFromExampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := CreateFromExample(path); err != nil {
		t.Fatalf("CreateFromExample: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("written example does not load: %v", err)
	}
	if err := CreateFromExample(path); err == nil {
		t.Error("expected error for existing file")
	}
}
