package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/generator"
	"github.com/pkeller/modelharness/internal/logging"
	"github.com/pkeller/modelharness/internal/module"
)

type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is the outcome of one test execution attempt sequence.
type Result struct {
	TestID              string        `json:"test_id"`
	Status              Status        `json:"status"`
	FailureReason       string        `json:"failure_reason,omitempty"`
	VisitedStates       []string      `json:"visited_states,omitempty"`
	ExecutedTransitions []string      `json:"executed_transitions,omitempty"`
	Duration            time.Duration `json:"duration"`
	Attempts            int           `json:"attempts"`
	LeakDetected        bool          `json:"leak_detected,omitempty"`
}

// Runner executes test plans against one engine client. StepTimeout bounds
// every dispatch; Retries is the number of additional attempts a failed test
// gets before its failure is final.
type Runner struct {
	Client      module.Client
	ModelID     string
	StepTimeout time.Duration
	Retries     int
}

const DefaultStepTimeout = 10 * time.Second

// Run executes one test, retrying on failure. Skipped tests never retry.
func (r *Runner) Run(ctx context.Context, tc generator.TestCase) Result {
	attempts := r.Retries + 1
	var result Result
	for attempt := 1; attempt <= attempts; attempt++ {
		result = r.runOnce(ctx, tc)
		result.Attempts = attempt
		if result.Status != StatusFailed {
			return result
		}
		if attempt < attempts {
			logging.Warn("test %s failed (attempt %d/%d), retrying: %s", tc.ID, attempt, attempts, result.FailureReason)
		}
	}
	return result
}

func (r *Runner) runOnce(ctx context.Context, tc generator.TestCase) Result {
	start := time.Now()
	ec := NewContext(tc.ID)

	if tc.SkipReason != "" {
		finish(ec, PhaseSkipped)
		return Result{TestID: tc.ID, Status: StatusSkipped, FailureReason: tc.SkipReason, Duration: time.Since(start)}
	}

	if err := ec.Advance(PhaseExecuting); err != nil {
		return Result{TestID: tc.ID, Status: StatusFailed, FailureReason: err.Error(), Duration: time.Since(start)}
	}
	if tc.StartState != "" {
		ec.RecordStateVisit(tc.StartState)
	}
	execErr := r.executePlan(ctx, ec, tc)

	if execErr == nil {
		execErr = ec.Advance(PhaseValidating)
	}
	if err := ec.Advance(PhaseCleanup); err != nil && execErr == nil {
		execErr = err
	}

	// Cleanup always runs, pass or fail. A leak on an otherwise passing
	// test fails it.
	leakErr := r.cleanup(ctx, ec)

	result := Result{
		TestID:              tc.ID,
		Duration:            time.Since(start),
		VisitedStates:       ec.VisitedStates(),
		ExecutedTransitions: ec.ExecutedTransitions(),
	}

	switch {
	case execErr != nil:
		finish(ec, PhaseFailed)
		result.Status = StatusFailed
		result.FailureReason = execErr.Error()
		if leakErr != nil {
			result.LeakDetected = true
		}
	case leakErr != nil:
		finish(ec, PhaseFailed)
		result.Status = StatusFailed
		result.FailureReason = leakErr.Error()
		result.LeakDetected = true
	default:
		finish(ec, PhasePassed)
		result.Status = StatusPassed
	}
	return result
}

// finish moves the context to its terminal phase. The verdict is already
// decided by then, so a refused transition cannot change it; it can only be
// surfaced.
func finish(ec *Context, verdict Phase) {
	if err := ec.Advance(verdict); err != nil {
		logging.Error("test %s: %v", ec.TestID, err)
	}
}

func (r *Runner) executePlan(ctx context.Context, ec *Context, tc generator.TestCase) error {
	for i, step := range tc.Plan {
		satisfied, err := ec.EvaluateGuard(step.Guard)
		if err != nil {
			return err
		}
		if !satisfied {
			return errors.ExecutionFailed(tc.ID, fmt.Sprintf("guard %q not satisfied at step %d", step.Guard, i))
		}

		result, err := r.dispatchStep(ctx, ec, step)
		if step.ExpectError {
			if err == nil {
				return errors.ExecutionFailed(tc.ID, fmt.Sprintf("step %d (%s) expected an engine error but succeeded", i, step.Descriptor.Op))
			}
			continue
		}
		if err != nil {
			return err
		}

		r.noteResult(ec, step, result)
		if step.Transition != "" {
			ec.RecordTransitionExecution(step.Transition)
		}
		if step.VisitsState != "" {
			ec.RecordStateVisit(step.VisitsState)
		}
	}
	return nil
}

func (r *Runner) dispatchStep(ctx context.Context, ec *Context, step generator.Step) (*module.OperationResult, error) {
	timeout := r.StepTimeout
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	if step.BudgetMs > 0 && time.Duration(step.BudgetMs)*time.Millisecond < timeout {
		timeout = time.Duration(step.BudgetMs) * time.Millisecond
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	result, err := r.Client.Dispatch(stepCtx, r.buildRequest(ec, step.Descriptor))
	elapsed := time.Since(started)

	if err != nil {
		if stepCtx.Err() == context.DeadlineExceeded {
			return nil, errors.Timeout(string(step.Descriptor.Op), timeout.String())
		}
		return nil, errors.DispatchFailed(ec.TestID, string(step.Descriptor.Op), err)
	}
	if step.BudgetMs > 0 && elapsed > time.Duration(step.BudgetMs)*time.Millisecond {
		return nil, errors.Timeout(string(step.Descriptor.Op), fmt.Sprintf("%dms", step.BudgetMs))
	}
	return result, nil
}

// buildRequest turns a resolved descriptor into a concrete engine request.
// Handle-bearing operations target the most recently tracked handle.
func (r *Runner) buildRequest(ec *Context, desc generator.OpDescriptor) module.Request {
	req := module.Request{Op: desc.Op, Section: desc.Section}

	switch desc.Op {
	case module.OpAllocate:
		if desc.Corrupt {
			req.Payload = []byte("\x00truncated")
		} else {
			req.Payload = module.SyntheticUnit(desc.Rows, "header", "body", "default")
		}
	case module.OpSummary, module.OpDimensions, module.OpExport, module.OpRelease:
		req.Handle = r.currentHandle(ec)
	}
	return req
}

func (r *Runner) currentHandle(ec *Context) string {
	handles := ec.OutstandingHandles()
	if len(handles) == 0 {
		return ""
	}
	return handles[len(handles)-1]
}

func (r *Runner) noteResult(ec *Context, step generator.Step, result *module.OperationResult) {
	switch step.Descriptor.Op {
	case module.OpAllocate:
		ec.TrackHandle(result.Handle)
	case module.OpRelease:
		ec.ForgetHandle(result.Handle)
	case module.OpDimensions:
		if result.Dimensions != nil {
			ec.NoteRows(result.Dimensions.Rows)
		}
	}
}

// cleanup releases every handle still tracked by the context. Releasing at
// teardown is normal; a handle whose release fails is a leak and fails the
// test.
func (r *Runner) cleanup(ctx context.Context, ec *Context) error {
	outstanding := ec.OutstandingHandles()
	if len(outstanding) == 0 {
		return nil
	}

	var leaked []string
	for _, handle := range outstanding {
		releaseCtx, cancel := context.WithTimeout(ctx, DefaultStepTimeout)
		_, err := r.Client.Dispatch(releaseCtx, module.Request{Op: module.OpRelease, Handle: handle})
		cancel()
		if err != nil {
			logging.Warn("cleanup release of %s failed: %v", handle, err)
			leaked = append(leaked, handle)
		}
		ec.ForgetHandle(handle)
	}

	if len(leaked) > 0 {
		return errors.HandleLeak(ec.TestID, leaked)
	}
	return nil
}
