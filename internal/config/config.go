// Package config loads qtable's server configuration from a TOML file,
// with QTABLE_-prefixed environment variables overriding any key.
// Grounded on original_source/src/config.rs's ServerConfig (the `config`
// crate building a File source then an Environment source with the same
// prefix) and its Cmd CLI flag for --config-path, defaulting to
// "./config/qtable/config.toml".
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/keaz/qtable/internal/qerrors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
)

const (
	// DefaultPath is used by callers that don't pass --config-path.
	DefaultPath      = "./config/qtable/config.toml"
	defaultPort      = 8080
	defaultWorkers   = 4
	defaultAdminAddr = ":9090"
	envPrefix        = "QTABLE_"
)

// Config holds every tunable the server needs at startup.
type Config struct {
	DataPath  string `toml:"data_path"`
	Port      int    `toml:"port"`
	Workers   int    `toml:"workers"`
	AdminAddr string `toml:"admin_addr"`
}

// Load reads the TOML file at path, then applies any QTABLE_-prefixed
// environment override for each field, matching config.rs's
// File-then-Environment source order (the later source wins). A missing
// file is not an error: defaults plus environment overrides may be
// enough to satisfy the only hard requirement, data_path.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:      defaultPort,
		Workers:   defaultWorkers,
		AdminAddr: defaultAdminAddr,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cfg.DataPath == "" {
		return nil, qerrors.NewParseError("data_path is required (set it in the config file or " + envPrefix + "DATA_PATH)")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v, ok := lookupEnv("DATA_PATH"); ok {
		cfg.DataPath = v
	}
	if v, ok := lookupEnv("PORT"); ok {
		port, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("invalid %sPORT: %w", envPrefix, err)
		}
		cfg.Port = port
	}
	if v, ok := lookupEnv("WORKERS"); ok {
		workers, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("invalid %sWORKERS: %w", envPrefix, err)
		}
		cfg.Workers = workers
	}
	if v, ok := lookupEnv("ADMIN_ADDR"); ok {
		cfg.AdminAddr = v
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(envPrefix + strings.ToUpper(key))
}
