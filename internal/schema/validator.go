// Package schema validates harness documents against the JSON schemas shipped
// in the schema directory.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pkeller/modelharness/internal/errors"
)

// SchemaName identifies one of the shipped schema files.
type SchemaName string

const (
	SchemaModel SchemaName = "model.schema.json"
	SchemaSuite SchemaName = "suite.schema.json"
	SchemaEnvs  SchemaName = "environments.schema.json"
)

// Validator compiles schemas from one directory. Each schema is compiled once
// and cached; a Validator is safe for concurrent use.
type Validator struct {
	schemaDir string

	mu       sync.Mutex
	compiler *jsonschema.Compiler
	cache    map[SchemaName]*jsonschema.Schema
}

func New(schemaDir string) *Validator {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	return &Validator{
		schemaDir: schemaDir,
		compiler:  compiler,
		cache:     make(map[SchemaName]*jsonschema.Schema),
	}
}

func (v *Validator) SchemaDir() string {
	return v.schemaDir
}

func (v *Validator) schema(name SchemaName) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.cache[name]; ok {
		return s, nil
	}

	path := filepath.Join(v.schemaDir, string(name))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.SchemaNotFound(string(name))
	}

	s, err := v.compiler.Compile("file://" + path)
	if err != nil {
		return nil, errors.SchemaCompileFailed(string(name), err)
	}

	v.cache[name] = s
	return s, nil
}

type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validate checks a document against the named schema. The document may be
// raw JSON bytes, a JSON string, or any value that marshals to JSON (a
// decoded YAML manifest, for instance).
func (v *Validator) Validate(name SchemaName, data interface{}) (*ValidationResult, error) {
	s, err := v.schema(name)
	if err != nil {
		return nil, err
	}

	doc, err := normalize(data)
	if err != nil {
		return nil, err
	}

	err = s.Validate(doc)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, errors.Internal("unexpected validation error type", err)
	}
	return &ValidationResult{Errors: flatten(ve)}, nil
}

// normalize reduces any supported input to the interface{} tree the schema
// library validates.
func normalize(data interface{}) (interface{}, error) {
	var raw []byte
	switch d := data.(type) {
	case []byte:
		raw = d
	case string:
		raw = []byte(d)
	default:
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, errors.Internal("failed to serialize data for validation", err)
		}
		raw = encoded
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Internal("failed to parse JSON for validation", err)
	}
	return doc, nil
}

// flatten walks the cause tree breadth-first, keeping each violation with the
// most specific instance path known at that point.
func flatten(root *jsonschema.ValidationError) []ValidationError {
	type frame struct {
		ve   *jsonschema.ValidationError
		path string
	}

	var out []ValidationError
	queue := []frame{{ve: root}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		path := f.path
		if f.ve.InstanceLocation != "" {
			path = f.ve.InstanceLocation
		}
		if f.ve.Message != "" {
			out = append(out, ValidationError{Path: path, Message: f.ve.Message})
		}
		for _, cause := range f.ve.Causes {
			queue = append(queue, frame{ve: cause, path: path})
		}
	}
	return out
}

func (v *Validator) ValidateFile(name SchemaName, path string) (*ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOReadFailed(path, err)
	}
	return v.Validate(name, data)
}

// MustValidate turns validation violations into a single schema error.
func (v *Validator) MustValidate(name SchemaName, data interface{}) error {
	result, err := v.Validate(name, data)
	if err != nil {
		return err
	}
	if result.Valid {
		return nil
	}

	violations := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		violations[i] = fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return errors.SchemaValidationFailed(string(name), violations)
}
