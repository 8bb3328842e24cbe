// Package config handles repository configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Config represents repository configuration stored in .bibport/config.json.
type Config struct {
	DefaultFormat string `json:"default_format"`      // auto or a registered format name
	IDStyle       string `json:"id_style"`            // sequence or uuid
	IDPrefix      string `json:"id_prefix,omitempty"` // Empty means the format name
}

const (
	BibportDir  = ".bibport"
	ConfigFile  = "config.json"
	EntriesFile = "entries.jsonl"
	CacheDir    = "cache"
	DBFile      = "entries.db"
)

// FormatAuto selects the import format by sniffing the input.
const FormatAuto = "auto"

// ValidIDStyles lists the supported id_style values.
var ValidIDStyles = []string{"sequence", "uuid"}

// Keys lists the settable configuration keys.
var Keys = []string{"default_format", "id_style", "id_prefix"}

// ErrNotRepository is returned when no .bibport directory is found.
var ErrNotRepository = errors.New("not in a bibport library (no .bibport directory found)")

// Default returns the configuration written by init.
func Default() *Config {
	return &Config{
		DefaultFormat: FormatAuto,
		IDStyle:       "sequence",
	}
}

// BibportPath returns the path to the .bibport directory from a root path.
func BibportPath(root string) string {
	return filepath.Join(root, BibportDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, BibportDir, ConfigFile)
}

// EntriesPath returns the path to entries.jsonl from a root path.
func EntriesPath(root string) string {
	return filepath.Join(root, BibportDir, EntriesFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, BibportDir, CacheDir)
}

// DBPath returns the path to entries.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, BibportDir, CacheDir, DBFile)
}

// IsRepository checks if the given path contains a bibport library.
func IsRepository(root string) bool {
	info, err := os.Stat(BibportPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a bibport library.
// Returns the library root or an error wrapping ErrNotRepository.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotRepository
		}
		abs = parent
	}
}

// Load reads configuration from the library at the given root.
// Unset values fall back to Default.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = FormatAuto
	}
	if cfg.IDStyle == "" {
		cfg.IDStyle = "sequence"
	}

	return cfg, nil
}

// Save writes configuration to the library at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Get returns the value of a configuration key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "default_format":
		return c.DefaultFormat, nil
	case "id_style":
		return c.IDStyle, nil
	case "id_prefix":
		return c.IDPrefix, nil
	default:
		return "", fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys)
	}
}

// Set assigns a configuration key. Format names are checked by the caller,
// which knows the registered formats.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_format":
		c.DefaultFormat = value
	case "id_style":
		if err := ValidateIDStyle(value); err != nil {
			return err
		}
		c.IDStyle = value
	case "id_prefix":
		c.IDPrefix = value
	default:
		return fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys)
	}
	return nil
}

// ValidateIDStyle checks that the id_style value is valid.
func ValidateIDStyle(style string) error {
	if slices.Contains(ValidIDStyles, style) {
		return nil
	}
	return fmt.Errorf("invalid id_style: %s (valid: %v)", style, ValidIDStyles)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
