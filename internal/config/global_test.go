package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setConfigHome points XDG_CONFIG_HOME at dir and clears the cache.
func setConfigHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", dir)
	ResetGlobalConfigCache()
	t.Cleanup(ResetGlobalConfigCache)
}

func writeGlobalConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, GlobalConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, GlobalConfigFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/bibport/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := GlobalConfigPath(), filepath.Join(home, ".config", "bibport", "config.yml"); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	setConfigHome(t, t.TempDir())

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.LibraryPath != "" {
		t.Errorf("LibraryPath = %q, want empty", cfg.LibraryPath)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	tmpDir := t.TempDir()
	setConfigHome(t, tmpDir)
	writeGlobalConfig(t, tmpDir, "library_path: ~/refs\n")

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "refs"); cfg.LibraryPath != want {
		t.Errorf("LibraryPath = %q, want %q", cfg.LibraryPath, want)
	}
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	setConfigHome(t, tmpDir)
	writeGlobalConfig(t, tmpDir, "library_path: [unclosed\n")

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should return error for invalid YAML")
	}
}

func TestGlobalConfigCache(t *testing.T) {
	tmpDir := t.TempDir()
	setConfigHome(t, tmpDir)
	writeGlobalConfig(t, tmpDir, "library_path: /first\n")

	first, err := LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}

	writeGlobalConfig(t, tmpDir, "library_path: /second\n")
	cached, _ := LoadGlobalConfig()
	if cached != first {
		t.Error("LoadGlobalConfig() should return cached config")
	}

	ResetGlobalConfigCache()
	reloaded, _ := LoadGlobalConfig()
	if reloaded.LibraryPath != "/second" {
		t.Errorf("after reset LibraryPath = %q, want /second", reloaded.LibraryPath)
	}
}

func TestGetLibraryPath_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	setConfigHome(t, tmpDir)
	writeGlobalConfig(t, tmpDir, "library_path: /from-config\n")

	t.Setenv(LibraryEnvVar, "")
	got, err := GetLibraryPath()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/from-config" {
		t.Errorf("GetLibraryPath() = %q, want /from-config", got)
	}

	t.Setenv(LibraryEnvVar, "/from-env")
	got, _ = GetLibraryPath()
	if got != "/from-env" {
		t.Errorf("GetLibraryPath() = %q, want /from-env", got)
	}
}

func TestResolveRepository(t *testing.T) {
	setConfigHome(t, t.TempDir())

	lib := t.TempDir()
	if err := os.Mkdir(BibportPath(lib), 0755); err != nil {
		t.Fatal(err)
	}
	elsewhere := t.TempDir()

	t.Run("enclosing library wins", func(t *testing.T) {
		t.Setenv(LibraryEnvVar, elsewhere)
		got, err := ResolveRepository(lib)
		if err != nil {
			t.Fatal(err)
		}
		if got != lib {
			t.Errorf("ResolveRepository() = %q, want %q", got, lib)
		}
	})

	t.Run("falls back to default library", func(t *testing.T) {
		t.Setenv(LibraryEnvVar, lib)
		got, err := ResolveRepository(elsewhere)
		if err != nil {
			t.Fatal(err)
		}
		if got != lib {
			t.Errorf("ResolveRepository() = %q, want %q", got, lib)
		}
	})

	t.Run("default is not a library", func(t *testing.T) {
		t.Setenv(LibraryEnvVar, elsewhere)
		_, err := ResolveRepository(elsewhere)
		if !errors.Is(err, ErrNotRepository) {
			t.Errorf("ResolveRepository() error = %v, want ErrNotRepository", err)
		}
	})

	t.Run("no default", func(t *testing.T) {
		t.Setenv(LibraryEnvVar, "")
		_, err := ResolveRepository(elsewhere)
		if !errors.Is(err, ErrNotRepository) {
			t.Errorf("ResolveRepository() error = %v, want ErrNotRepository", err)
		}
	})
}

func TestHelpfulConfigMessage(t *testing.T) {
	msg := HelpfulConfigMessage()
	for _, want := range []string{"bibport init", "library_path", LibraryEnvVar} {
		if !strings.Contains(msg, want) {
			t.Errorf("HelpfulConfigMessage() missing %q", want)
		}
	}
}
