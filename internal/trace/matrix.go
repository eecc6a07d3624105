// Package trace maintains the traceability matrix linking requirements,
// model elements, and generated tests.
package trace

import (
	"encoding/csv"
	"io"
	"sort"
	"sync"

	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/generator"
)

// Entry is one (test, model element) pairing with its requirement tags.
type Entry struct {
	Requirements []string `json:"requirements,omitempty"`
	ModelID      string   `json:"model_id"`
	ElementID    string   `json:"element_id"`
	TestID       string   `json:"test_id"`
	Kind         string   `json:"kind"`
}

type Matrix struct {
	mu       sync.Mutex
	byReq    map[string][]string            // requirement -> test ids
	testReqs map[string][]string            // test id -> requirements
	elements map[string]map[string][]string // model -> element -> test ids
	tests    map[string]Entry
}

func NewMatrix() *Matrix {
	return &Matrix{
		byReq:    make(map[string][]string),
		testReqs: make(map[string][]string),
		elements: make(map[string]map[string][]string),
		tests:    make(map[string]Entry),
	}
}

func (m *Matrix) AddMapping(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.tests[e.TestID]; !seen {
		m.tests[e.TestID] = e
		if m.elements[e.ModelID] == nil {
			m.elements[e.ModelID] = make(map[string][]string)
		}
		m.elements[e.ModelID][e.ElementID] = append(m.elements[e.ModelID][e.ElementID], e.TestID)
	}

	for _, req := range e.Requirements {
		if !contains(m.byReq[req], e.TestID) {
			m.byReq[req] = append(m.byReq[req], e.TestID)
		}
		if !contains(m.testReqs[e.TestID], req) {
			m.testReqs[e.TestID] = append(m.testReqs[e.TestID], req)
		}
	}
}

// BuildFromSuite derives the matrix from the element and requirement metadata
// carried by each synthesized test.
func BuildFromSuite(suite *generator.Suite) *Matrix {
	m := NewMatrix()
	for _, tc := range suite.Tests {
		m.AddMapping(Entry{
			Requirements: tc.Requirements,
			ModelID:      tc.ModelID,
			ElementID:    tc.ElementID,
			TestID:       tc.ID,
			Kind:         string(tc.Kind),
		})
	}
	return m
}

// TestsFor returns the test ids mapped to a requirement, sorted.
func (m *Matrix) TestsFor(requirement string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tests := append([]string(nil), m.byReq[requirement]...)
	sort.Strings(tests)
	return tests
}

// Requirements returns every requirement with at least one mapping, sorted.
func (m *Matrix) Requirements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]string, 0, len(m.byReq))
	for req := range m.byReq {
		reqs = append(reqs, req)
	}
	sort.Strings(reqs)
	return reqs
}

// ByModel returns the full model -> element -> test-id index.
func (m *Matrix) ByModel() map[string]map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]map[string][]string, len(m.elements))
	for modelID, elems := range m.elements {
		out[modelID] = make(map[string][]string, len(elems))
		for elementID, tests := range elems {
			copied := append([]string(nil), tests...)
			sort.Strings(copied)
			out[modelID][elementID] = copied
		}
	}
	return out
}

// Completeness splits the declared requirement universe into mapped and
// unmapped halves.
func (m *Matrix) Completeness(declared []string) (mapped, unmapped []string) {
	for _, req := range declared {
		if len(m.TestsFor(req)) > 0 {
			mapped = append(mapped, req)
		} else {
			unmapped = append(unmapped, req)
		}
	}
	sort.Strings(mapped)
	sort.Strings(unmapped)
	return mapped, unmapped
}

// ExportCSV writes one row per requirement/test pair, with a header. Tests
// without requirement tags still appear, with an empty requirement column.
func (m *Matrix) ExportCSV(w io.Writer) error {
	m.mu.Lock()
	testIDs := make([]string, 0, len(m.tests))
	for id := range m.tests {
		testIDs = append(testIDs, id)
	}
	m.mu.Unlock()
	sort.Strings(testIDs)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"requirement", "model", "element", "test", "type"}); err != nil {
		return errors.Wrap(errors.CategoryIO, "WRITE_FAILED", "failed to write matrix header", err)
	}

	for _, testID := range testIDs {
		m.mu.Lock()
		e := m.tests[testID]
		reqs := append([]string(nil), m.testReqs[testID]...)
		m.mu.Unlock()
		sort.Strings(reqs)
		if len(reqs) == 0 {
			reqs = []string{""}
		}
		for _, req := range reqs {
			if err := cw.Write([]string{req, e.ModelID, e.ElementID, e.TestID, e.Kind}); err != nil {
				return errors.Wrap(errors.CategoryIO, "WRITE_FAILED", "failed to write matrix row", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
