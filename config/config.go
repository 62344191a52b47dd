// Package config loads the settings for hosting Lua extensions: which scripts
// to load, inline chunks, and logging. Files may be TOML or YAML; environment
// variables override what the file says.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/amp-labs/safecall/envutil"
	"github.com/amp-labs/safecall/logger"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvScripts  = "SAFECALL_SCRIPTS" // comma separated
	EnvLogLevel = "LOG_LEVEL"
	EnvLogJSON  = "LOG_JSON"
)

// ErrUnknownFileType is returned by Load for extensions other than .toml,
// .yaml and .yml.
var ErrUnknownFileType = errors.New("config: unknown file type")

// Config is the top-level configuration.
type Config struct {
	// Scripts are Lua files or directories of them.
	Scripts []string `toml:"scripts" yaml:"scripts"`

	// Inline maps chunk names to Lua source, loaded after Scripts.
	Inline map[string]string `toml:"inline" yaml:"inline"`

	Log Log `toml:"log" yaml:"log"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json"  yaml:"json"`
}

// Load reads the file at path, picking the decoder by extension.
func Load(path string) (Config, error) {
	var cfg Config

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path) //nolint:gosec
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownFileType, path)
	}

	cfg.Scripts = normalizeScripts(cfg.Scripts)

	return cfg, nil
}

// ApplyEnv returns cfg with SAFECALL_SCRIPTS, LOG_LEVEL and LOG_JSON applied
// on top. Unparseable values are logged and ignored.
func ApplyEnv(ctx context.Context, cfg Config) Config {
	envutil.Strings(EnvScripts, ",").DoWithValue(func(scripts []string) {
		cfg.Scripts = normalizeScripts(scripts)
	})

	level := envutil.String(EnvLogLevel, envutil.Validate(func(s string) error {
		_, err := envutil.ParseSlogLevel(s)

		return err
	}))
	if level.HasError() {
		logger.Get(ctx).Warn("ignoring invalid environment variable", "key", EnvLogLevel, "error", errOf(level))
	}

	level.DoWithValue(func(s string) {
		cfg.Log.Level = s
	})

	logJSON := envutil.Bool(EnvLogJSON)
	if logJSON.HasError() {
		logger.Get(ctx).Warn("ignoring invalid environment variable", "key", EnvLogJSON, "error", errOf(logJSON))
	}

	logJSON.DoWithValue(func(b bool) {
		cfg.Log.JSON = b
	})

	return cfg
}

func errOf[T any](rdr envutil.Reader[T]) error {
	_, err := rdr.Value()

	return err
}

// SlogLevel parses Log.Level. An empty level means info.
func (c Config) SlogLevel() (slog.Level, error) {
	if strings.TrimSpace(c.Log.Level) == "" {
		return slog.LevelInfo, nil
	}

	return envutil.ParseSlogLevel(c.Log.Level)
}

func normalizeScripts(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	out := make([]string, 0, len(in))

	for _, script := range in {
		if script = strings.TrimSpace(script); script != "" {
			out = append(out, script)
		}
	}

	return out
}
