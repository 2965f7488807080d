package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/trailware/pngstamp/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
batch_suffix = "_meta"
patterns_file = "/etc/pngstamp/rules.txt"
font_file = "/usr/share/fonts/mono.ttf"
font_size = 18
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BatchSuffix != "_meta" {
		t.Errorf("BatchSuffix = %q", cfg.BatchSuffix)
	}
	if cfg.PatternsFile != "/etc/pngstamp/rules.txt" {
		t.Errorf("PatternsFile = %q", cfg.PatternsFile)
	}
	if cfg.FontFile != "/usr/share/fonts/mono.ttf" {
		t.Errorf("FontFile = %q", cfg.FontFile)
	}
	if cfg.FontSize != 18 {
		t.Errorf("FontSize = %d", cfg.FontSize)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BatchSuffix != DefaultSuffix {
		t.Errorf("BatchSuffix = %q, want default %q", cfg.BatchSuffix, DefaultSuffix)
	}
	if cfg.FontSize != DefaultFontSize {
		t.Errorf("FontSize = %d, want default %d", cfg.FontSize, DefaultFontSize)
	}
	// Empty font_file is "use the default font", not an error.
	if cfg.FontFile != "" {
		t.Errorf("FontFile = %q, want empty", cfg.FontFile)
	}
	// Pattern file defaults to patterns.txt next to the config file.
	if want := filepath.Join(filepath.Dir(path), "patterns.txt"); cfg.PatternsFile != want {
		t.Errorf("PatternsFile = %q, want %q", cfg.PatternsFile, want)
	}
}

func TestLoadExplicitMissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error code = %q, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := writeConfig(t, "batch_suffix = [not toml")
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error code = %q, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestLoadRejectsBadFontSize(t *testing.T) {
	for _, content := range []string{"font_size = 0", "font_size = -3"} {
		path := writeConfig(t, content)
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%q) should fail", content)
		}
	}
}

func TestDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	if got, want := Dir(), filepath.Join("/tmp/xdg-test", "pngstamp"); got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
}

func TestDirDefaultUnderHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got, want := Dir(), filepath.Join(home, ".config", "pngstamp"); got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
}
