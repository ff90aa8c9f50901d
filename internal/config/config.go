// Package config loads the recognized configuration keys named in §6.
// The full defaults -> config-home -> repo-local layering mechanism is
// CLI scaffolding and stays thin per the distilled spec's Non-goals; the
// types below and a two-file loader are the part the core actually reads
// from (daemon debounce, walker's max file size, ranker/output defaults).
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Daemon struct {
	DebounceMs int `toml:"debounce_ms"`
}

type Index struct {
	MaxFileSizeKB        int      `toml:"max_file_size_kb"`
	AdditionalExtensions []string `toml:"additional_extensions"`
}

type Output struct {
	DefaultFormat string `toml:"default_format"` // "grep" | "json"
	Color         string `toml:"color"`          // "auto" | "always" | "never"
}

type Ignore struct {
	Patterns []string `toml:"patterns"`
}

// Config is the full recognized key set from §6.
type Config struct {
	Daemon Daemon `toml:"daemon"`
	Index  Index  `toml:"index"`
	Output Output `toml:"output"`
	Ignore Ignore `toml:"ignore"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Daemon: Daemon{DebounceMs: 500},
		Index:  Index{MaxFileSizeKB: 1024},
		Output: Output{DefaultFormat: "grep", Color: "auto"},
	}
}

// Load layers defaults -> <config-home>/wonk/config.toml ->
// <repo>/.wonk/config.toml, last-wins per field present in each file.
// A missing file at either layer is not an error.
func Load(repoRoot string) (Config, error) {
	cfg := Default()

	if home, err := os.UserConfigDir(); err == nil {
		if err := mergeFile(&cfg, filepath.Join(home, "wonk", "config.toml")); err != nil {
			return cfg, err
		}
	}

	if repoRoot != "" {
		if err := mergeFile(&cfg, filepath.Join(repoRoot, ".wonk", "config.toml")); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var overlay Config
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	applyOverlay(cfg, overlay)
	return nil
}

// applyOverlay copies non-zero fields from overlay onto cfg. Since
// BurntSushi/toml zero-initializes keys absent from the file, a field
// left at its zero value is treated as "not set at this layer" rather
// than "explicitly set to zero" — acceptable here since none of the
// recognized keys has a meaningful zero value.
func applyOverlay(cfg *Config, overlay Config) {
	if overlay.Daemon.DebounceMs != 0 {
		cfg.Daemon.DebounceMs = overlay.Daemon.DebounceMs
	}
	if overlay.Index.MaxFileSizeKB != 0 {
		cfg.Index.MaxFileSizeKB = overlay.Index.MaxFileSizeKB
	}
	if len(overlay.Index.AdditionalExtensions) > 0 {
		cfg.Index.AdditionalExtensions = overlay.Index.AdditionalExtensions
	}
	if overlay.Output.DefaultFormat != "" {
		cfg.Output.DefaultFormat = overlay.Output.DefaultFormat
	}
	if overlay.Output.Color != "" {
		cfg.Output.Color = overlay.Output.Color
	}
	if len(overlay.Ignore.Patterns) > 0 {
		cfg.Ignore.Patterns = overlay.Ignore.Patterns
	}
}
