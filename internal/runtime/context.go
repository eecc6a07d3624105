// Package runtime executes synthesized test plans against an engine and
// records what each test actually exercised.
package runtime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkeller/modelharness/internal/errors"
)

type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseExecuting  Phase = "executing"
	PhaseValidating Phase = "validating"
	PhaseCleanup    Phase = "cleanup"
	PhasePassed     Phase = "passed"
	PhaseFailed     Phase = "failed"
	PhaseSkipped    Phase = "skipped"
)

var phaseOrder = map[Phase][]Phase{
	PhaseSetup:      {PhaseExecuting, PhaseSkipped, PhaseFailed},
	PhaseExecuting:  {PhaseValidating, PhaseCleanup},
	PhaseValidating: {PhaseCleanup},
	PhaseCleanup:    {PhasePassed, PhaseFailed, PhaseSkipped},
}

// Context is the per-test execution record. It owns the phase machine, the
// handle ledger, and the plain lists of visited states and executed
// transitions that coverage aggregation consumes later.
type Context struct {
	TestID string

	phase               Phase
	visitedStates       []string
	executedTransitions []string
	handles             map[string]bool
	lastRows            int64
	hasRows             bool
}

func NewContext(testID string) *Context {
	return &Context{
		TestID:  testID,
		phase:   PhaseSetup,
		handles: make(map[string]bool),
	}
}

func (c *Context) Phase() Phase {
	return c.phase
}

// Advance moves the phase machine forward. Illegal transitions are internal
// errors; the runner never requests one.
func (c *Context) Advance(next Phase) error {
	for _, allowed := range phaseOrder[c.phase] {
		if next == allowed {
			c.phase = next
			return nil
		}
	}
	return errors.Internal(fmt.Sprintf("illegal phase transition %s -> %s in test '%s'", c.phase, next, c.TestID), nil)
}

func (c *Context) RecordStateVisit(stateID string) {
	c.visitedStates = append(c.visitedStates, stateID)
}

func (c *Context) RecordTransitionExecution(transitionID string) {
	c.executedTransitions = append(c.executedTransitions, transitionID)
}

func (c *Context) VisitedStates() []string {
	return append([]string(nil), c.visitedStates...)
}

func (c *Context) ExecutedTransitions() []string {
	return append([]string(nil), c.executedTransitions...)
}

func (c *Context) TrackHandle(handle string) {
	c.handles[handle] = true
}

func (c *Context) ForgetHandle(handle string) {
	delete(c.handles, handle)
}

// OutstandingHandles returns the handles the test acquired and never
// released, sorted.
func (c *Context) OutstandingHandles() []string {
	handles := make([]string, 0, len(c.handles))
	for h := range c.handles {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles
}

// NoteRows records the row count observed by the most recent dimensions
// query. Guards read it.
func (c *Context) NoteRows(rows int64) {
	c.lastRows = rows
	c.hasRows = true
}

// EvaluateGuard decides whether a guarded step may run. Trivial guards are
// always satisfied. The supported form is a comparison on rows against the
// most recently observed dimensions.
func (c *Context) EvaluateGuard(guard string) (bool, error) {
	switch strings.TrimSpace(guard) {
	case "", "true", "TRUE", "True", "1":
		return true, nil
	}

	fields := strings.Fields(guard)
	if len(fields) != 3 || fields[0] != "rows" {
		return false, errors.ExecutionFailed(c.TestID, fmt.Sprintf("unsupported guard expression: %q", guard))
	}
	bound, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return false, errors.ExecutionFailed(c.TestID, fmt.Sprintf("non-numeric guard bound: %q", guard))
	}
	if !c.hasRows {
		// No dimensions observed yet; the guard cannot hold.
		return false, nil
	}

	switch fields[1] {
	case ">":
		return c.lastRows > bound, nil
	case ">=":
		return c.lastRows >= bound, nil
	case "<":
		return c.lastRows < bound, nil
	case "<=":
		return c.lastRows <= bound, nil
	case "==", "=":
		return c.lastRows == bound, nil
	case "!=":
		return c.lastRows != bound, nil
	default:
		return false, errors.ExecutionFailed(c.TestID, fmt.Sprintf("unsupported guard operator: %q", guard))
	}
}
