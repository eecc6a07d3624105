package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkeller/modelharness/internal/errors"
)

const testModelSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["model_id", "model_type", "version"],
  "properties": {
    "model_id": { "type": "string", "minLength": 1 },
    "model_type": { "type": "string", "enum": ["state_machine", "statechart", "component", "error_model", "error_recovery"] },
    "version": { "type": "string" }
  }
}`

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, string(SchemaModel)), []byte(testModelSchema), 0644); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}
	return New(dir)
}

func TestValidateAcceptsConformingDocument(t *testing.T) {
	v := newTestValidator(t)

	doc := map[string]interface{}{
		"model_id":   "lifecycle",
		"model_type": "state_machine",
		"version":    "1.0",
	}

	result, err := v.Validate(SchemaModel, doc)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid, got errors: %+v", result.Errors)
	}
}

func TestValidateRejectsMissingField(t *testing.T) {
	v := newTestValidator(t)

	doc := map[string]interface{}{
		"model_id": "lifecycle",
		"version":  "1.0",
	}

	result, err := v.Validate(SchemaModel, doc)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid for missing model_type")
	}
	if len(result.Errors) == 0 {
		t.Error("expected at least one violation")
	}
}

func TestValidateRejectsBadEnum(t *testing.T) {
	v := newTestValidator(t)

	doc := []byte(`{"model_id":"x","model_type":"flowchart","version":"1.0"}`)

	result, err := v.Validate(SchemaModel, doc)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid for out-of-enum model_type")
	}
}

func TestValidateFile(t *testing.T) {
	v := newTestValidator(t)

	docPath := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(docPath, []byte(`{"model_id":"x","model_type":"component","version":"1.0"}`), 0644); err != nil {
		t.Fatalf("failed to write doc: %v", err)
	}

	result, err := v.ValidateFile(SchemaModel, docPath)
	if err != nil {
		t.Fatalf("ValidateFile failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid, got: %+v", result.Errors)
	}
}

func TestMissingSchema(t *testing.T) {
	v := New(t.TempDir())

	_, err := v.Validate(SchemaSuite, map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error for missing schema file")
	}
	if !errors.IsCategory(err, errors.CategorySchema) {
		t.Errorf("expected schema category, got: %v", err)
	}
}

func TestMustValidate(t *testing.T) {
	v := newTestValidator(t)

	err := v.MustValidate(SchemaModel, map[string]interface{}{"model_id": "x"})
	if err == nil {
		t.Fatal("expected violation error")
	}
	if errors.GetCode(err) != "VALIDATION_FAILED" {
		t.Errorf("expected VALIDATION_FAILED, got %s", errors.GetCode(err))
	}

	if err := v.MustValidate(SchemaModel, map[string]interface{}{
		"model_id": "x", "model_type": "statechart", "version": "2",
	}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestSchemaCaching(t *testing.T) {
	v := newTestValidator(t)

	if _, err := v.Validate(SchemaModel, map[string]interface{}{"model_id": "x", "model_type": "component", "version": "1"}); err != nil {
		t.Fatalf("first validate failed: %v", err)
	}

	// Removing the file after first compile must not break subsequent calls.
	if err := os.Remove(filepath.Join(v.SchemaDir(), string(SchemaModel))); err != nil {
		t.Fatalf("failed to remove schema: %v", err)
	}

	if _, err := v.Validate(SchemaModel, map[string]interface{}{"model_id": "y", "model_type": "component", "version": "1"}); err != nil {
		t.Errorf("cached schema should still serve: %v", err)
	}
}
