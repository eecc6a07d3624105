package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkeller/modelharness/internal/config"
	"github.com/pkeller/modelharness/internal/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "environments.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
environments:
  - name: local
  - name: isolated
    command: ["modelharness", "env", "serve"]
    env: ["SANDBOX=1"]
    ready_timeout: 10s
    headless: false
`)

	manifest, err := LoadManifest(path, nil)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if len(manifest.Environments) != 2 {
		t.Fatalf("expected 2 environments, got %d", len(manifest.Environments))
	}

	local := manifest.Environments[0]
	if !local.InProcess() {
		t.Error("commandless environment must be in-process")
	}
	if local.ReadyTimeoutOrDefault() != DefaultReadyTimeout {
		t.Error("missing ready_timeout must use the default")
	}
	if !local.HeadlessOrDefault() {
		t.Error("headless must default to true")
	}

	isolated := manifest.Environments[1]
	if isolated.InProcess() {
		t.Error("environment with a command must not be in-process")
	}
	if isolated.ReadyTimeoutOrDefault() != 10*time.Second {
		t.Errorf("expected 10s ready timeout, got %s", isolated.ReadyTimeoutOrDefault())
	}
	if isolated.HeadlessOrDefault() {
		t.Error("explicit headless=false must stick")
	}
}

func TestHeadlessEnvFallback(t *testing.T) {
	// The manifest field wins; when it is absent MODELHARNESS_HEADLESS decides.
	yes := true

	t.Setenv(config.EnvHeadless, "false")
	if (EnvSpec{}).HeadlessOrDefault() {
		t.Error("unset manifest field must follow MODELHARNESS_HEADLESS=false")
	}
	if !(EnvSpec{Headless: &yes}).HeadlessOrDefault() {
		t.Error("explicit manifest field must override the environment")
	}

	t.Setenv(config.EnvHeadless, "")
	if !(EnvSpec{}).HeadlessOrDefault() {
		t.Error("headless must default to true")
	}
}

func TestLoadManifestRejectsDuplicates(t *testing.T) {
	path := writeManifest(t, `
environments:
  - name: twin
  - name: twin
`)

	_, err := LoadManifest(path, nil)
	if err == nil {
		t.Fatal("expected error for duplicate environment names")
	}
	if !errors.IsCategory(err, errors.CategoryConfig) {
		t.Errorf("expected config category, got %v", err)
	}
}

func TestLoadManifestRejectsEmpty(t *testing.T) {
	path := writeManifest(t, `environments: []`)
	if _, err := LoadManifest(path, nil); err == nil {
		t.Fatal("expected error for empty manifest")
	}
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if errors.GetCode(err) != "NOT_EXISTS" {
		t.Errorf("expected NOT_EXISTS, got %v", err)
	}
}
