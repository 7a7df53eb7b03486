// Package config holds the viper configuration singleton for lore.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Explicitly locate config.yaml with SetConfigFile.
	// Precedence: project .lore/config.yaml > ~/.config/lore/config.yaml > ~/.lore/config.yaml
	configFileSet := false

	// 1. Walk up from CWD to find a project .lore/config.yaml, so commands
	//    work from subdirectories.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".lore", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory (~/.config/lore/config.yaml)
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "lore", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory (~/.lore/config.yaml)
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".lore", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file.
	// E.g. LORE_DATA_ROOT, LORE_JSON, LORE_EMBED_URL.
	v.SetEnvPrefix("LORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data-root", "")
	v.SetDefault("json", false)
	v.SetDefault("quiet", false)
	v.SetDefault("actor", "")
	v.SetDefault("lock-timeout", "30s")

	// Embedding provider. Empty URL disables semantic search; hybrid and
	// semantic modes then degrade to lexical.
	v.SetDefault("embed.url", "")
	v.SetDefault("embed.model", "nomic-embed-text")
	v.SetDefault("embed.timeout", "10s")

	// Retrieval defaults
	v.SetDefault("search.limit", 10)
	v.SetDefault("search.depth", 2)
	v.SetDefault("search.rrf-k", 60)

	// Write-time guard defaults
	v.SetDefault("dedup.threshold", 0.70)
	v.SetDefault("contradiction.threshold", 0.30)

	// Outcome review defaults
	v.SetDefault("review.pending-days", 3)
	v.SetDefault("subtraction.pending-days", 14)

	// Hook-invoked injection budget
	v.SetDefault("inject.deadline", "5s")
	v.SetDefault("inject.budget-bytes", 4096)

	// Optional Anthropic summarizer for session compression
	v.SetDefault("summarize.model", "claude-3-5-haiku-20241022")

	// Daemon defaults
	v.SetDefault("daemon.addr", "127.0.0.1:7470")
	v.SetDefault("daemon.debounce", "2s")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func ensure() *viper.Viper {
	if v == nil {
		_ = Initialize()
	}
	return v
}

// GetString returns a string config value.
func GetString(key string) string { return ensure().GetString(key) }

// GetBool returns a bool config value.
func GetBool(key string) bool { return ensure().GetBool(key) }

// GetInt returns an int config value.
func GetInt(key string) int { return ensure().GetInt(key) }

// GetFloat returns a float64 config value.
func GetFloat(key string) float64 { return ensure().GetFloat64(key) }

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration { return ensure().GetDuration(key) }

// Set overrides a config value for the current process (flag binding).
func Set(key string, value interface{}) { ensure().Set(key, value) }
