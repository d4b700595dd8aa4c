package envconf

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type nested struct {
	Timeout time.Duration `env:"ENVCONF_TEST_TIMEOUT" envDefault:"3s"`
}

type sample struct {
	Name   string     `env:"ENVCONF_TEST_NAME"`
	Port   uint16     `env:"ENVCONF_TEST_PORT" envDefault:"8080"`
	Level  slog.Level `env:"ENVCONF_TEST_LEVEL" envDefault:"INFO"`
	Admins []string   `env:"ENVCONF_TEST_ADMINS" envDefault:""`
	Nested nested
}

//nolint:paralleltest
func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("ENVCONF_TEST_NAME", "scalecoin")
	t.Setenv("ENVCONF_TEST_LEVEL", "DEBUG")
	t.Setenv("ENVCONF_TEST_ADMINS", "<@U1>, <@U2>,")

	var cfg sample

	err := Load(&cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Name != "scalecoin" || cfg.Port != 8080 || cfg.Level != slog.LevelDebug {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}

	if len(cfg.Admins) != 2 || cfg.Admins[1] != "<@U2>" {
		t.Fatalf("admins: got %v", cfg.Admins)
	}

	if cfg.Nested.Timeout != 3*time.Second {
		t.Fatalf("nested timeout: got %v", cfg.Nested.Timeout)
	}
}

//nolint:paralleltest
func TestLoad_MissingRequired(t *testing.T) {
	var cfg sample

	err := Load(&cfg)
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired, got %v", err)
	}
}

//nolint:paralleltest
func TestLoadWithDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")

	err := os.WriteFile(path, []byte("ENVCONF_TEST_NAME=fromfile\n"), 0o600)
	if err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Cleanup(func() { _ = os.Unsetenv("ENVCONF_TEST_NAME") })

	var cfg sample

	err = LoadWithDotenv(&cfg, path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadWithDotenv: %v", err)
	}

	if cfg.Name != "fromfile" {
		t.Fatalf("name: got %q", cfg.Name)
	}
}

func TestLoad_RejectsNonPointer(t *testing.T) {
	t.Parallel()

	err := Load(sample{})
	if err == nil {
		t.Fatalf("expected error for non-pointer destination")
	}
}
