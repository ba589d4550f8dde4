// Package config loads the CLI configuration from defaults, the
// vaultsync.yaml file, VAULTSYNC_* environment variables, and flags,
// in ascending priority.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults. State and settings paths default to the vault's .vaultsync
// directory so a vault carries its sync state with it.
const (
	DefaultBackendURL = "https://api.inkwell.app"
	DefaultListenAddr = "127.0.0.1:4815"

	dataDirName         = ".vaultsync"
	defaultStateFile    = "state.db"
	defaultSettingsFile = "settings.yaml"
)

// Config holds all CLI configuration options.
type Config struct {
	VaultDir     string `koanf:"vault_dir"`
	StatePath    string `koanf:"state_path"`
	SettingsPath string `koanf:"settings_path"`
	BackendURL   string `koanf:"backend_url"`
	APIKey       string `koanf:"api_key"`
	Language     string `koanf:"language"`
	ListenAddr   string `koanf:"listen_addr"`
	Verbose      bool   `koanf:"verbose"`
}

// findConfigFile finds the config file to use.
// Priority: explicit path > vaultsync.yaml > vaultsync.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"vaultsync.yaml", "vaultsync.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration. Precedence (highest to lowest):
// flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"vault_dir":   ".",
		"backend_url": DefaultBackendURL,
		"listen_addr": DefaultListenAddr,
		"verbose":     false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// VAULTSYNC_VAULT_DIR -> vault_dir
	if err := k.Load(env.Provider("VAULTSYNC_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "VAULTSYNC_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// Kebab-case flags map to snake_case config keys; --vault is
			// shorthand for vault_dir.
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "vault" {
				return "vault_dir", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	abs, err := filepath.Abs(cfg.VaultDir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault dir: %w", err)
	}
	cfg.VaultDir = abs

	if cfg.StatePath == "" {
		cfg.StatePath = filepath.Join(cfg.VaultDir, dataDirName, defaultStateFile)
	} else {
		cfg.StatePath = resolveRelativeTo(cfg.StatePath, cfg.VaultDir)
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = filepath.Join(cfg.VaultDir, dataDirName, defaultSettingsFile)
	} else {
		cfg.SettingsPath = resolveRelativeTo(cfg.SettingsPath, cfg.VaultDir)
	}

	return &cfg, nil
}

// resolveRelativeTo resolves a path relative to baseDir unless it is
// already absolute or the sqlite in-memory sentinel.
func resolveRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
