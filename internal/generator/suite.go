package generator

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/schema"
)

// WriteSuite persists a suite as pretty-printed JSON, creating parent
// directories as needed.
func WriteSuite(path string, suite *Suite) error {
	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return errors.Internal("failed to marshal suite", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.IOWriteFailed(path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.IOWriteFailed(path, err)
	}
	return nil
}

// LoadSuite reads a persisted suite. A non-nil validator checks the document
// against the suite schema before decoding.
func LoadSuite(path string, validator *schema.Validator) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.IONotExists(path)
		}
		return nil, errors.IOReadFailed(path, err)
	}

	if validator != nil {
		if err := validator.MustValidate(schema.SchemaSuite, data); err != nil {
			return nil, err
		}
	}

	var suite Suite
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, errors.Wrap(errors.CategoryIO, "DECODE_FAILED", "malformed suite document", err)
	}
	return &suite, nil
}
