package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkeller/modelharness/internal/logging"
)

func TestGetDefaults(t *testing.T) {
	Reset()
	t.Setenv(EnvWorkDir, "")
	t.Setenv(EnvSchemaDir, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvDebug, "")
	t.Setenv(EnvHeadless, "")
	t.Setenv(EnvPort, "")

	cfg := Get()
	if cfg.LogLevel != logging.LevelInfo {
		t.Errorf("expected default log level INFO, got %v", cfg.LogLevel)
	}
	if cfg.Debug {
		t.Error("expected debug off by default")
	}
	if !cfg.Headless {
		t.Error("expected headless on by default")
	}
	if cfg.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Port)
	}
}

func TestGetFromEnvironment(t *testing.T) {
	Reset()
	t.Setenv(EnvWorkDir, "/tmp/harness")
	t.Setenv(EnvSchemaDir, "/tmp/schemas")
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvHeadless, "false")
	t.Setenv(EnvPort, "9090")

	cfg := Get()
	if cfg.WorkDir != "/tmp/harness" {
		t.Errorf("expected work dir from env, got %s", cfg.WorkDir)
	}
	if cfg.SchemaDir != "/tmp/schemas" {
		t.Errorf("expected schema dir from env, got %s", cfg.SchemaDir)
	}
	if cfg.LogLevel != logging.LevelError {
		t.Errorf("expected ERROR level, got %v", cfg.LogLevel)
	}
	if cfg.Headless {
		t.Error("expected headless disabled")
	}
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
}

func TestDebugForcesDebugLevel(t *testing.T) {
	Reset()
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvDebug, "1")

	cfg := Get()
	if !cfg.Debug {
		t.Error("expected debug enabled")
	}
	if cfg.LogLevel != logging.LevelDebug {
		t.Error("debug should force DEBUG log level")
	}
}

func TestInvalidPortIgnored(t *testing.T) {
	Reset()
	t.Setenv(EnvPort, "not-a-port")

	cfg := Get()
	if cfg.Port != DefaultPort {
		t.Errorf("invalid port should fall back to default, got %d", cfg.Port)
	}
}

func TestResolveWorkDir(t *testing.T) {
	Reset()
	t.Setenv(EnvWorkDir, "/explicit/work")

	cfg := Get()
	if cfg.ResolveWorkDir() != "/explicit/work" {
		t.Error("explicit work dir should win")
	}

	Reset()
	t.Setenv(EnvWorkDir, "")
	cfg = Get()
	resolved := cfg.ResolveWorkDir()
	if filepath.Base(resolved) != DefaultWorkDirName {
		t.Errorf("expected default work dir name, got %s", resolved)
	}
}

func TestResolveSchemaDir(t *testing.T) {
	Reset()
	tempDir := t.TempDir()
	schemaDir := filepath.Join(tempDir, DefaultSchemaDirName)
	if err := os.MkdirAll(schemaDir, 0755); err != nil {
		t.Fatalf("failed to create schema dir: %v", err)
	}

	t.Setenv(EnvSchemaDir, "")
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working dir: %v", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })

	cfg := Get()
	if cfg.ResolveSchemaDir() != schemaDir {
		t.Errorf("expected %s, got %s", schemaDir, cfg.ResolveSchemaDir())
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MH_TEST_INT", "42")
	t.Setenv("MH_TEST_BOOL", "yes")
	t.Setenv("MH_TEST_STR", "value")

	if GetEnvInt("MH_TEST_INT", 0) != 42 {
		t.Error("expected 42")
	}
	if GetEnvInt("MH_TEST_MISSING", 7) != 7 {
		t.Error("expected default 7")
	}
	if !GetEnvBool("MH_TEST_BOOL", false) {
		t.Error("expected true")
	}
	if GetEnvString("MH_TEST_STR", "") != "value" {
		t.Error("expected value")
	}
	if GetEnvString("MH_TEST_MISSING", "fallback") != "fallback" {
		t.Error("expected fallback")
	}
}
