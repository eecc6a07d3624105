// Package generator synthesizes executable test cases from validated
// behavioral models. Synthesis is deterministic: the same models always yield
// the same suite, test for test, id for id.
package generator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/logging"
	"github.com/pkeller/modelharness/internal/model"
)

type Kind string

const (
	KindState      Kind = "state_validation"
	KindTransition Kind = "transition"
	KindError      Kind = "error_scenario"
	KindPerf       Kind = "performance"
)

// Step is one operation in a test plan. Coverage annotations record which
// model element a successful step exercises; aggregation happens later, in
// the coverage tracker, never here.
type Step struct {
	Descriptor  OpDescriptor `json:"descriptor"`
	Transition  string       `json:"transition,omitempty"`
	VisitsState string       `json:"visits_state,omitempty"`
	Guard       string       `json:"guard,omitempty"`
	ExpectError bool         `json:"expect_error,omitempty"`
	BudgetMs    int          `json:"budget_ms,omitempty"`
}

type TestCase struct {
	ID           string   `json:"id"`
	Kind         Kind     `json:"kind"`
	ModelID      string   `json:"model_id"`
	ElementID    string   `json:"element_id"`
	Name         string   `json:"name"`
	CoverageTags []string `json:"coverage_tags,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	SkipReason   string   `json:"skip_reason,omitempty"`
	// StartState is the state execution begins in; the runner records it as
	// visited before the first step. Set for graph-derived tests only.
	StartState string `json:"start_state,omitempty"`
	Plan       []Step `json:"plan"`
}

type Suite struct {
	Version     string     `json:"version"`
	SuiteID     string     `json:"suite_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	Tests       []TestCase `json:"tests"`
}

// StateTag and TransitionTag build the coverage annotations shared between
// synthesis and the coverage tracker.
func StateTag(modelID, stateID string) string {
	return fmt.Sprintf("state:%s/%s", modelID, stateID)
}

func TransitionTag(modelID, transitionID string) string {
	return fmt.Sprintf("transition:%s/%s", modelID, transitionID)
}

// Generate synthesizes one suite from the given models. Per-element failures
// (unresolvable triggers) are collected; they never abort the remaining
// synthesis.
func Generate(models []*model.Model) (*Suite, []error) {
	suite := &Suite{
		Version:     "1",
		SuiteID:     suiteID(models),
		GeneratedAt: time.Now().UTC(),
	}

	var errs []error
	for _, m := range models {
		tests, modelErrs := generateForModel(m)
		suite.Tests = append(suite.Tests, tests...)
		errs = append(errs, modelErrs...)
	}

	logging.Info("synthesized %d tests from %d models (%d errors)", len(suite.Tests), len(models), len(errs))
	return suite, errs
}

func suiteID(models []*model.Model) string {
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return "suite-empty"
	}
	return "suite-" + strings.Join(ids, "+")
}

func generateForModel(m *model.Model) ([]TestCase, []error) {
	var tests []TestCase
	var errs []error

	if m.Type.HasStateGraph() {
		graphTests, graphErrs := generateGraphTests(m)
		tests = append(tests, graphTests...)
		errs = append(errs, graphErrs...)
	}

	for _, entry := range m.ErrorEntries {
		tc, err := generateErrorTest(m, entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tests = append(tests, tc)
	}

	for _, entry := range m.PerfEntries {
		tc, err := generatePerfTest(m, entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tests = append(tests, tc)
	}

	return tests, errs
}

func generateGraphTests(m *model.Model) ([]TestCase, []error) {
	var tests []TestCase
	var errs []error

	initial, ok := m.InitialState()
	if !ok {
		return nil, []error{errors.GenerationFailed(m.ID, "", "no initial state")}
	}

	for _, s := range m.States {
		tc, err := generateStateTest(m, initial, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tests = append(tests, tc)
	}

	for _, tr := range m.Transitions {
		tc, err := generateTransitionTest(m, initial, tr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tests = append(tests, tc)
	}

	return tests, errs
}

func generateStateTest(m *model.Model, initial, target model.State) (TestCase, error) {
	tc := TestCase{
		ID:           fmt.Sprintf("%s-S-%s", m.ID, target.ID),
		Kind:         KindState,
		ModelID:      m.ID,
		ElementID:    target.ID,
		Name:         fmt.Sprintf("visit state %s (%s)", target.ID, target.Name),
		CoverageTags: []string{StateTag(m.ID, target.ID)},
		StartState:   initial.ID,
	}
	tc.CoverageTags = appendUnique(tc.CoverageTags, StateTag(m.ID, initial.ID))

	path, reachable := model.ShortestTransitionPath(m.Transitions, initial.ID, target.ID)
	if !reachable {
		tc.SkipReason = fmt.Sprintf("state '%s' is unreachable from the initial state", target.ID)
		return tc, nil
	}

	plan, err := planFromPath(m, path)
	if err != nil {
		return TestCase{}, err
	}
	tc.Plan = plan
	for _, step := range plan {
		if step.Transition != "" {
			tc.CoverageTags = appendUnique(tc.CoverageTags, TransitionTag(m.ID, step.Transition))
		}
		if step.VisitsState != "" {
			tc.CoverageTags = appendUnique(tc.CoverageTags, StateTag(m.ID, step.VisitsState))
		}
	}
	return tc, nil
}

func generateTransitionTest(m *model.Model, initial model.State, tr model.Transition) (TestCase, error) {
	tc := TestCase{
		ID:           fmt.Sprintf("%s-TR-%s", m.ID, tr.ID),
		Kind:         KindTransition,
		ModelID:      m.ID,
		ElementID:    tr.ID,
		Name:         fmt.Sprintf("execute transition %s (%s -> %s)", tr.ID, tr.From, tr.To),
		CoverageTags: []string{TransitionTag(m.ID, tr.ID)},
		Requirements: tr.Requirements,
		StartState:   initial.ID,
	}
	tc.CoverageTags = appendUnique(tc.CoverageTags, StateTag(m.ID, initial.ID))

	path, reachable := model.ShortestTransitionPath(m.Transitions, initial.ID, tr.From)
	if !reachable {
		tc.SkipReason = fmt.Sprintf("source state '%s' is unreachable from the initial state", tr.From)
		return tc, nil
	}

	plan, err := planFromPath(m, append(path, tr))
	if err != nil {
		return TestCase{}, err
	}
	tc.Plan = plan
	for _, step := range plan {
		if step.Transition != "" {
			tc.CoverageTags = appendUnique(tc.CoverageTags, TransitionTag(m.ID, step.Transition))
		}
		if step.VisitsState != "" {
			tc.CoverageTags = appendUnique(tc.CoverageTags, StateTag(m.ID, step.VisitsState))
		}
	}
	return tc, nil
}

// planFromPath resolves each transition on the path into an operation step.
// Every step is annotated with the transition it executes and the state it
// lands in.
func planFromPath(m *model.Model, path []model.Transition) ([]Step, error) {
	var plan []Step
	for _, tr := range path {
		desc, ok := ResolveTrigger(tr.Trigger)
		if !ok {
			return nil, errors.UnresolvableTrigger(m.ID, tr.ID, tr.Trigger)
		}
		plan = append(plan, Step{
			Descriptor:  desc,
			Transition:  tr.ID,
			VisitsState: tr.To,
			Guard:       tr.Guard,
		})
	}
	return plan, nil
}

func generateErrorTest(m *model.Model, entry model.ErrorEntry) (TestCase, error) {
	desc, ok := ResolveTrigger(entry.Trigger)
	if !ok {
		return TestCase{}, errors.UnresolvableTrigger(m.ID, entry.ID, entry.Trigger)
	}

	plan := []Step{{Descriptor: desc, ExpectError: true}}
	if entry.Recovery != "" {
		recovery, ok := ResolveTrigger(entry.Recovery)
		if !ok {
			return TestCase{}, errors.UnresolvableTrigger(m.ID, entry.ID, entry.Recovery)
		}
		plan = append(plan, Step{Descriptor: recovery})
	}

	return TestCase{
		ID:        fmt.Sprintf("%s-E-%s", m.ID, entry.ID),
		Kind:      KindError,
		ModelID:   m.ID,
		ElementID: entry.ID,
		Name:      fmt.Sprintf("inject fault %s (%s)", entry.ID, entry.Name),
		Plan:      plan,
	}, nil
}

func generatePerfTest(m *model.Model, entry model.PerfEntry) (TestCase, error) {
	desc, ok := ResolveTrigger(entry.Operation)
	if !ok {
		return TestCase{}, errors.UnresolvableTrigger(m.ID, entry.ID, entry.Operation)
	}

	return TestCase{
		ID:           fmt.Sprintf("%s-P-%s", m.ID, entry.ID),
		Kind:         KindPerf,
		ModelID:      m.ID,
		ElementID:    entry.ID,
		Name:         fmt.Sprintf("time operation %s within %dms", entry.Operation, entry.MaxDurationMs),
		Requirements: entry.Requirements,
		Plan:         []Step{{Descriptor: desc, BudgetMs: entry.MaxDurationMs}},
	}, nil
}

func appendUnique(tags []string, tag string) []string {
	for _, existing := range tags {
		if existing == tag {
			return tags
		}
	}
	return append(tags, tag)
}
