// Package config loads pngstamp's TOML configuration.
//
// The configuration supplies the values the pipeline needs beyond its
// command-line arguments: the batch output suffix, the pattern rule file and
// the font. All values have defaults, so running without a config file
// works; a config file that exists but cannot be read or parsed is fatal.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/trailware/pngstamp/pkg/errors"
)

// Defaults applied where the file or flags say nothing.
const (
	DefaultSuffix   = "_text"
	DefaultFontSize = 16
)

// Config holds the loadable settings.
type Config struct {
	// BatchSuffix is inserted before the extension of derived filenames in
	// directory mode.
	BatchSuffix string `toml:"batch_suffix"`

	// PatternsFile is the path of the rule table. Empty means
	// "patterns.txt next to the config file".
	PatternsFile string `toml:"patterns_file"`

	// FontFile is the TrueType font path. Empty means "use the default
	// font" (system search), which is observable behavior and not an error.
	FontFile string `toml:"font_file"`

	// FontSize is the font point size. Must be positive.
	FontSize int `toml:"font_size"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BatchSuffix: DefaultSuffix,
		FontSize:    DefaultFontSize,
	}
}

// Load reads a config file. When path is empty the default location is
// tried, and an absent default file just yields Default(); an explicit path
// that cannot be read is a fatal configuration error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if cfg.FontSize <= 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "font_size must be positive, got %d", cfg.FontSize)
	}
	if cfg.PatternsFile == "" {
		cfg.PatternsFile = filepath.Join(filepath.Dir(path), "patterns.txt")
	}
	return cfg, nil
}

// DefaultPath returns the default config file location using the XDG
// standard (~/.config/pngstamp/config.toml).
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Dir returns the configuration directory.
func Dir() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "pngstamp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "pngstamp"
	}
	return filepath.Join(home, ".config", "pngstamp")
}

// DefaultPatternsPath returns the pattern file location used when neither
// flag nor config name one.
func DefaultPatternsPath() string {
	return filepath.Join(Dir(), "patterns.txt")
}
