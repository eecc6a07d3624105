package model

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/logging"
	"github.com/pkeller/modelharness/internal/schema"
)

// LoadResult aggregates a whole model-set load. Models contains only fully
// validated models; Errors carries every hard failure from every document.
type LoadResult struct {
	Models   []*Model  `json:"-"`
	Warnings []Warning `json:"warnings,omitempty"`
	Errors   []error   `json:"-"`
}

func (r *LoadResult) OK() bool {
	return len(r.Errors) == 0
}

// Discover returns the model document paths under rootPath, sorted for
// deterministic load order.
func Discover(rootPath string) ([]string, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.IONotExists(rootPath)
		}
		return nil, errors.IOReadFailed(rootPath, err)
	}
	if !info.IsDir() {
		return []string{rootPath}, nil
	}

	var paths []string
	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.IOReadFailed(rootPath, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// LoadAndValidate discovers, parses, and validates every model document under
// rootPath. A document that fails its schema or semantic checks contributes
// errors and is excluded; sibling documents are unaffected. The validator may
// be nil, in which case only semantic checks run.
func LoadAndValidate(rootPath string, validator *schema.Validator) (*LoadResult, error) {
	paths, err := Discover(rootPath)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for _, path := range paths {
		m, warnings, errs := loadOne(path, validator)
		result.Warnings = append(result.Warnings, warnings...)
		if len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			continue
		}
		result.Models = append(result.Models, m)
	}

	logging.Debug("loaded %d model(s) from %s (%d error(s), %d warning(s))",
		len(result.Models), rootPath, len(result.Errors), len(result.Warnings))

	return result, nil
}

func loadOne(path string, validator *schema.Validator) (*Model, []Warning, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, []error{errors.IOReadFailed(path, err)}
	}

	if validator != nil {
		schemaResult, err := validator.Validate(schema.SchemaModel, data)
		if err != nil {
			return nil, nil, []error{err}
		}
		if !schemaResult.Valid {
			var errs []error
			for _, ve := range schemaResult.Errors {
				errs = append(errs, errors.ModelValidationFailed(filepath.Base(path),
					ve.Path+": "+ve.Message))
			}
			return nil, nil, errs
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, []error{errors.ModelValidationFailed(filepath.Base(path), "malformed JSON: "+err.Error())}
	}

	m, warnings, errs := Validate(&doc)
	if len(errs) > 0 {
		return nil, warnings, errs
	}
	m.SourcePath = path
	return m, warnings, nil
}
