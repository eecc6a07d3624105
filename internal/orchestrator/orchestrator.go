package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkeller/modelharness/internal/coverage"
	"github.com/pkeller/modelharness/internal/generator"
	"github.com/pkeller/modelharness/internal/logging"
	"github.com/pkeller/modelharness/internal/module"
	"github.com/pkeller/modelharness/internal/runtime"
)

var log = logging.WithScope("orchestrator")

// EnvResult is the outcome of one environment's pass over the suite. A launch
// failure leaves Results empty and LaunchError set; it never touches the
// other environments.
type EnvResult struct {
	Environment string           `json:"environment"`
	LaunchError string           `json:"launch_error,omitempty"`
	Results     []runtime.Result `json:"results,omitempty"`
	Passed      int              `json:"passed"`
	Failed      int              `json:"failed"`
	Skipped     int              `json:"skipped"`
}

type RunReport struct {
	RunID        string      `json:"run_id"`
	SuiteID      string      `json:"suite_id"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
	Environments []EnvResult `json:"environments"`
}

// Failed reports whether any environment failed to launch or any test failed
// anywhere.
func (r *RunReport) Failed() bool {
	for _, env := range r.Environments {
		if env.LaunchError != "" || env.Failed > 0 {
			return true
		}
	}
	return false
}

type Orchestrator struct {
	Launcher    Launcher
	Journal     *logging.Journal
	StepTimeout time.Duration
	Retries     int
}

// RunAll drives the suite through every environment. Environments run
// concurrently; within one environment tests run sequentially, in suite
// order.
func (o *Orchestrator) RunAll(ctx context.Context, suite *generator.Suite, envs []EnvSpec) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		SuiteID:   suite.SuiteID,
		StartedAt: time.Now().UTC(),
	}

	o.journal(logging.JournalEntry{RunID: report.RunID, Event: "run_started",
		Detail: suite.SuiteID})

	var control *ControlServer
	for _, env := range envs {
		if !env.InProcess() {
			cs, err := NewControlServer()
			if err != nil {
				return nil, err
			}
			control = cs
			defer control.Close()
			break
		}
	}

	results := make([]EnvResult, len(envs))
	var wg sync.WaitGroup
	for i, env := range envs {
		wg.Add(1)
		go func(i int, env EnvSpec) {
			defer wg.Done()
			results[i] = o.runEnvironment(ctx, report.RunID, suite, env, control)
		}(i, env)
	}
	wg.Wait()

	report.Environments = results
	report.FinishedAt = time.Now().UTC()

	o.journal(logging.JournalEntry{RunID: report.RunID, Event: "run_finished",
		Status: statusWord(!report.Failed())})
	return report, nil
}

func (o *Orchestrator) runEnvironment(ctx context.Context, runID string, suite *generator.Suite, env EnvSpec, control *ControlServer) EnvResult {
	result := EnvResult{Environment: env.Name}

	client, teardown, err := o.connect(ctx, env, control)
	if err != nil {
		log.Error("environment %s unavailable: %v", env.Name, err)
		result.LaunchError = err.Error()
		o.journal(logging.JournalEntry{RunID: runID, Environment: env.Name,
			Event: "env_failed", Detail: err.Error()})
		return result
	}
	defer teardown()

	o.journal(logging.JournalEntry{RunID: runID, Environment: env.Name, Event: "env_ready"})

	runner := &runtime.Runner{
		Client:      client,
		StepTimeout: o.StepTimeout,
		Retries:     o.Retries,
	}

	for _, tc := range suite.Tests {
		select {
		case <-ctx.Done():
			result.LaunchError = ctx.Err().Error()
			return result
		default:
		}

		o.journal(logging.JournalEntry{RunID: runID, Environment: env.Name,
			Event: "test_started", TestID: tc.ID})

		tr := runner.Run(ctx, tc)
		result.Results = append(result.Results, tr)
		switch tr.Status {
		case runtime.StatusPassed:
			result.Passed++
		case runtime.StatusFailed:
			result.Failed++
		case runtime.StatusSkipped:
			result.Skipped++
		}

		o.journal(logging.JournalEntry{RunID: runID, Environment: env.Name,
			Event: "test_finished", TestID: tc.ID, Status: string(tr.Status), Detail: tr.FailureReason})
	}

	o.journal(logging.JournalEntry{RunID: runID, Environment: env.Name, Event: "env_finished"})
	return result
}

// connect produces a dispatch client for the environment: an in-process
// engine, or a launched child reached over HTTP once it signals ready.
func (o *Orchestrator) connect(ctx context.Context, env EnvSpec, control *ControlServer) (module.Client, func(), error) {
	if env.InProcess() {
		return module.NewEngine(), func() {}, nil
	}

	proc, err := o.Launcher.Launch(ctx, env, control.URL())
	if err != nil {
		return nil, nil, err
	}

	endpoint, err := control.AwaitReady(env.Name, env.ReadyTimeoutOrDefault())
	if err != nil {
		_ = proc.Stop()
		return nil, nil, err
	}

	client := module.NewHTTPClient(endpoint, 30*time.Second)
	return client, func() { _ = proc.Stop() }, nil
}

// AggregateCoverage folds every environment's execution evidence into the
// tracker. Evidence from a test is keyed back through the suite to recover
// the owning model.
func AggregateCoverage(suite *generator.Suite, report *RunReport, tracker *coverage.Tracker) error {
	byID := make(map[string]generator.TestCase, len(suite.Tests))
	for _, tc := range suite.Tests {
		byID[tc.ID] = tc
	}

	for _, env := range report.Environments {
		for _, tr := range env.Results {
			tc, ok := byID[tr.TestID]
			if !ok {
				continue
			}
			for _, stateID := range tr.VisitedStates {
				if err := tracker.RecordExecution(generator.StateTag(tc.ModelID, stateID)); err != nil {
					return err
				}
			}
			for _, transitionID := range tr.ExecutedTransitions {
				if err := tracker.RecordExecution(generator.TransitionTag(tc.ModelID, transitionID)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (o *Orchestrator) journal(entry logging.JournalEntry) {
	if o.Journal == nil {
		return
	}
	if err := o.Journal.Append(entry); err != nil {
		log.Warn("journal write failed: %v", err)
	}
}

func statusWord(ok bool) string {
	if ok {
		return "passed"
	}
	return "failed"
}
