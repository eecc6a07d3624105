package generator

import (
	"path/filepath"
	"testing"

	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/model"
)

func TestWriteAndLoadSuite(t *testing.T) {
	suite, _ := Generate([]*model.Model{lifecycleModel()})

	path := filepath.Join(t.TempDir(), "out", "suite.json")
	if err := WriteSuite(path, suite); err != nil {
		t.Fatalf("WriteSuite failed: %v", err)
	}

	loaded, err := LoadSuite(path, nil)
	if err != nil {
		t.Fatalf("LoadSuite failed: %v", err)
	}
	if loaded.SuiteID != suite.SuiteID {
		t.Errorf("suite id mismatch: %s vs %s", loaded.SuiteID, suite.SuiteID)
	}
	if len(loaded.Tests) != len(suite.Tests) {
		t.Errorf("test count mismatch: %d vs %d", len(loaded.Tests), len(suite.Tests))
	}
}

func TestLoadSuiteMissing(t *testing.T) {
	_, err := LoadSuite(filepath.Join(t.TempDir(), "nope.json"), nil)
	if err == nil {
		t.Fatal("expected error for missing suite")
	}
	if errors.GetCode(err) != "NOT_EXISTS" {
		t.Errorf("expected NOT_EXISTS, got %s", errors.GetCode(err))
	}
}
