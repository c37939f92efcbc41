package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	APIAddr      string   `toml:"api.addr" env:"API_ADDR"`
	WatchConfig  bool     `toml:"watch_config" env:"WATCH_CONFIG"`
	DrainSeconds int      `toml:"drain.seconds" env:"DRAIN_SECONDS"`
	Modules      []string `toml:"logging.enabled" env:"LOGGING_ENABLED"`
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logd.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadOptionsFromTOML(t *testing.T) {
	path := writeTempConfig(t, `
watch_config = true

[api]
addr = "127.0.0.1:9000"

[drain]
seconds = 7

[logging]
enabled = ["engine", "sink"]
`)

	opts := &testOptions{Config: path}
	if err := LoadOptions(opts, nil); err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}

	if opts.APIAddr != "127.0.0.1:9000" {
		t.Errorf("APIAddr = %q, want 127.0.0.1:9000", opts.APIAddr)
	}
	if !opts.WatchConfig {
		t.Error("WatchConfig should be true")
	}
	if opts.DrainSeconds != 7 {
		t.Errorf("DrainSeconds = %d, want 7", opts.DrainSeconds)
	}
	if !reflect.DeepEqual(opts.Modules, []string{"engine", "sink"}) {
		t.Errorf("Modules = %v", opts.Modules)
	}
}

func TestLoadOptionsEnvOverridesTOML(t *testing.T) {
	path := writeTempConfig(t, "[api]\naddr = \"from-file\"\n")
	t.Setenv("LOGD_API_ADDR", "from-env")
	t.Setenv("LOGD_DRAIN_SECONDS", "3")

	opts := &testOptions{Config: path}
	if err := LoadOptions(opts, nil); err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}

	if opts.APIAddr != "from-env" {
		t.Errorf("APIAddr = %q, want from-env", opts.APIAddr)
	}
	if opts.DrainSeconds != 3 {
		t.Errorf("DrainSeconds = %d, want 3", opts.DrainSeconds)
	}
}

func TestLoadOptionsCLIWins(t *testing.T) {
	path := writeTempConfig(t, "[api]\naddr = \"from-file\"\n")
	t.Setenv("LOGD_API_ADDR", "from-env")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.APIAddr, "api-addr", "", "")
	if err := cmd.Flags().Parse([]string{"--api-addr", "from-cli"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadOptions(opts, cmd); err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}
	if opts.APIAddr != "from-cli" {
		t.Errorf("APIAddr = %q, want from-cli", opts.APIAddr)
	}
}

func TestLoadOptionsMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), APIAddr: "default"}
	if err := LoadOptions(opts, nil); err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if opts.APIAddr != "default" {
		t.Errorf("APIAddr changed to %q", opts.APIAddr)
	}
}

func TestLoadOptionsInvalidTOML(t *testing.T) {
	path := writeTempConfig(t, "not [[valid")
	if err := LoadOptions(&testOptions{Config: path}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":         "port",
		"LoggingLevel": "logging-level",
		"APIAddr":      "api-addr",
		"DrainTimeout": "drain-timeout",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeTempConfig(t, `
[logging]
level = "debug"
format = "json"

[logging.modules]
engine = "warn"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("got level=%q format=%q", cfg.Level, cfg.Format)
	}
	if cfg.Modules["engine"] != "warn" {
		t.Errorf("engine module level = %q", cfg.Modules["engine"])
	}

	fallback := LoadLoggingConfig("")
	if fallback.Level != "info" || fallback.Format != "text" {
		t.Errorf("fallback = %+v", fallback)
	}
}
