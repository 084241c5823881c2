package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
)

var flagPath atomic.Pointer[string]

// ResolveHome returns the APPLYDESK_HOME directory.
// Priority: APPLYDESK_HOME env > ~/.applydesk/
func ResolveHome() string {
	if home := os.Getenv("APPLYDESK_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".applydesk"
	}
	return filepath.Join(userHome, ".applydesk")
}

// ResolveConfigPath finds the config file.
// Priority: --config flag > APPLYDESK_HOME/config.yaml
func ResolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(ResolveHome(), "config.yaml")
}

// SetPath records the --config flag so Path and Watch agree on the file.
func SetPath(path string) {
	flagPath.Store(&path)
}

// Path returns the process-wide config file path.
func Path() string {
	if p := flagPath.Load(); p != nil {
		return ResolveConfigPath(*p)
	}
	return ResolveConfigPath("")
}

// EnvFiles lists the .env files consulted before config expansion, nearest first.
func EnvFiles() []string {
	return []string{".env", filepath.Join(ResolveHome(), ".env")}
}
