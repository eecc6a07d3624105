package validate

import (
	"os"
	"path/filepath"
	"testing"
)

func writeModel(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write model: %v", err)
	}
}

const goodModel = `{
  "model_id": "lifecycle",
  "model_type": "state_machine",
  "version": "1.0",
  "states": [
    {"id": "S1", "name": "Unloaded", "type": "initial"},
    {"id": "S2", "name": "Loaded", "type": "final"}
  ],
  "transitions": [
    {"id": "TR1", "from": "S1", "to": "S2", "trigger": "allocate"}
  ]
}`

const brokenModel = `{
  "model_id": "broken",
  "model_type": "state_machine",
  "version": "1.0",
  "states": [
    {"id": "S1", "name": "Start", "type": "initial"}
  ],
  "transitions": [
    {"id": "TR1", "from": "S1", "to": "S9", "trigger": "allocate"}
  ]
}`

func withoutSchemas(t *testing.T) {
	t.Helper()
	old := getSchemaDirFunc
	getSchemaDirFunc = func() string { return "" }
	t.Cleanup(func() { getSchemaDirFunc = old })
}

func TestValidateCommandPasses(t *testing.T) {
	withoutSchemas(t)
	dir := t.TempDir()
	writeModel(t, dir, "lifecycle.json", goodModel)

	if err := validateCmd.RunE(validateCmd, []string{dir}); err != nil {
		t.Errorf("expected success, got: %v", err)
	}
}

func TestValidateCommandFails(t *testing.T) {
	withoutSchemas(t)
	dir := t.TempDir()
	writeModel(t, dir, "broken.json", brokenModel)

	if err := validateCmd.RunE(validateCmd, []string{dir}); err == nil {
		t.Error("expected failure for dangling transition")
	}
}

func TestValidateCommandMissingDir(t *testing.T) {
	withoutSchemas(t)
	if err := validateCmd.RunE(validateCmd, []string{filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("expected failure for missing directory")
	}
}
