package runtime

import "testing"

func TestPhaseMachineOrder(t *testing.T) {
	ec := NewContext("t1")
	if ec.Phase() != PhaseSetup {
		t.Fatalf("new context must start in setup, got %s", ec.Phase())
	}

	for _, next := range []Phase{PhaseExecuting, PhaseValidating, PhaseCleanup, PhasePassed} {
		if err := ec.Advance(next); err != nil {
			t.Fatalf("advance to %s failed: %v", next, err)
		}
	}
}

func TestPhaseMachineRejectsIllegalTransition(t *testing.T) {
	ec := NewContext("t1")
	if err := ec.Advance(PhasePassed); err == nil {
		t.Error("setup must not jump straight to passed")
	}

	ec.Advance(PhaseExecuting)
	if err := ec.Advance(PhasePassed); err == nil {
		t.Error("executing must pass through cleanup before a verdict")
	}
}

func TestPhaseMachineFailurePath(t *testing.T) {
	ec := NewContext("t1")
	ec.Advance(PhaseExecuting)
	// a failing plan skips validation and goes straight to cleanup
	if err := ec.Advance(PhaseCleanup); err != nil {
		t.Fatalf("executing -> cleanup must be legal: %v", err)
	}
	if err := ec.Advance(PhaseFailed); err != nil {
		t.Fatalf("cleanup -> failed must be legal: %v", err)
	}
}

func TestPhaseSequencesDrivenByRunner(t *testing.T) {
	// Every phase sequence the runner asserts against the machine. A refusal
	// on any of these would turn a clean execution into a failure.
	sequences := [][]Phase{
		{PhaseSkipped},
		{PhaseExecuting, PhaseValidating, PhaseCleanup, PhasePassed},
		{PhaseExecuting, PhaseValidating, PhaseCleanup, PhaseFailed},
		{PhaseExecuting, PhaseCleanup, PhaseFailed},
	}

	for _, seq := range sequences {
		ec := NewContext("t1")
		for _, next := range seq {
			if err := ec.Advance(next); err != nil {
				t.Errorf("sequence %v: advance to %s refused: %v", seq, next, err)
				break
			}
		}
	}
}

func TestHandleLedger(t *testing.T) {
	ec := NewContext("t1")
	ec.TrackHandle("h-2")
	ec.TrackHandle("h-1")
	ec.ForgetHandle("h-2")

	handles := ec.OutstandingHandles()
	if len(handles) != 1 || handles[0] != "h-1" {
		t.Errorf("expected only h-1 outstanding, got %v", handles)
	}
}

func TestEvaluateGuard(t *testing.T) {
	ec := NewContext("t1")

	for _, trivial := range []string{"", "true", "TRUE", "1"} {
		ok, err := ec.EvaluateGuard(trivial)
		if err != nil || !ok {
			t.Errorf("trivial guard %q must hold, got ok=%t err=%v", trivial, ok, err)
		}
	}

	// no dimensions observed yet
	if ok, err := ec.EvaluateGuard("rows > 0"); err != nil || ok {
		t.Errorf("guard before any observation must not hold, got ok=%t err=%v", ok, err)
	}

	ec.NoteRows(100)
	cases := []struct {
		guard string
		want  bool
	}{
		{"rows > 0", true},
		{"rows > 100", false},
		{"rows >= 100", true},
		{"rows < 50", false},
		{"rows == 100", true},
		{"rows != 100", false},
	}
	for _, c := range cases {
		ok, err := ec.EvaluateGuard(c.guard)
		if err != nil {
			t.Errorf("guard %q errored: %v", c.guard, err)
		}
		if ok != c.want {
			t.Errorf("guard %q = %t, want %t", c.guard, ok, c.want)
		}
	}

	if _, err := ec.EvaluateGuard("phase of the moon"); err == nil {
		t.Error("unsupported guard must error")
	}
}

func TestRecordedEvidence(t *testing.T) {
	ec := NewContext("t1")
	ec.RecordStateVisit("S2")
	ec.RecordTransitionExecution("TR1")
	ec.RecordStateVisit("S3")

	if got := ec.VisitedStates(); len(got) != 2 || got[0] != "S2" {
		t.Errorf("unexpected visited states: %v", got)
	}
	if got := ec.ExecutedTransitions(); len(got) != 1 || got[0] != "TR1" {
		t.Errorf("unexpected executed transitions: %v", got)
	}
}
