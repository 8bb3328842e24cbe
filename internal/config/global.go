package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/bibport/config.yml.
type GlobalConfig struct {
	LibraryPath string `yaml:"library_path,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "bibport"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// LibraryEnvVar overrides library_path. It may be set in a .env file.
	LibraryEnvVar = "BIBPORT_LIBRARY"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bibport/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.LibraryPath != "" {
		cfg.LibraryPath = ExpandPath(cfg.LibraryPath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetLibraryPath returns the default library root. BIBPORT_LIBRARY takes
// priority over library_path.
func GetLibraryPath() (string, error) {
	if v := os.Getenv(LibraryEnvVar); v != "" {
		return ExpandPath(v), nil
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	return cfg.LibraryPath, nil
}

// ResolveRepository finds the library for a command run from start: the
// nearest enclosing .bibport directory, else the default library.
func ResolveRepository(start string) (string, error) {
	root, err := FindRepository(start)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, ErrNotRepository) {
		return "", err
	}

	lib, gerr := GetLibraryPath()
	if gerr != nil {
		return "", gerr
	}
	if lib == "" {
		return "", err
	}
	if !IsRepository(lib) {
		return "", fmt.Errorf("%w: default library %s", ErrNotRepository, lib)
	}
	return lib, nil
}

// HelpfulConfigMessage explains how to set a default library.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No bibport library found.

Run 'bibport init' here, or set a default library in %s:
  mkdir -p %s
  echo 'library_path: /path/to/library' > %s

or export %s=/path/to/library (a .env file works too).`,
		configPath,
		filepath.Dir(configPath),
		configPath,
		LibraryEnvVar)
}
