package model

import (
	"strings"
	"testing"

	"github.com/pkeller/modelharness/internal/errors"
)

func validDocument() *Document {
	return &Document{
		ModelID:   "lifecycle",
		ModelType: TypeStateMachine,
		Version:   "1.0",
		States: []State{
			{ID: "S1", Name: "Unloaded", Type: StateInitial},
			{ID: "S2", Name: "Loaded", Type: StateNormal},
			{ID: "S3", Name: "Released", Type: StateFinal},
		},
		Transitions: []Transition{
			{ID: "TR1", From: "S1", To: "S2", Trigger: "allocate"},
			{ID: "TR2", From: "S2", To: "S3", Trigger: "release"},
		},
	}
}

func TestValidateAcceptsWellFormedModel(t *testing.T) {
	m, warnings, errs := Validate(validDocument())
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got: %v", errs)
	}
	if len(warnings) > 0 {
		t.Errorf("expected no warnings, got: %v", warnings)
	}
	if m.ID != "lifecycle" {
		t.Errorf("expected model id lifecycle, got %s", m.ID)
	}
	if len(m.States) != 3 || len(m.Transitions) != 2 {
		t.Errorf("model should carry declared states and transitions")
	}
}

func TestValidateExactlyOneInitialState(t *testing.T) {
	t.Run("zero initial states", func(t *testing.T) {
		doc := validDocument()
		doc.States[0].Type = StateNormal

		_, _, errs := Validate(doc)
		if len(errs) == 0 {
			t.Fatal("expected error for zero initial states")
		}
		found := false
		for _, err := range errs {
			if errors.GetCode(err) == "INITIAL_STATE" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected INITIAL_STATE error, got: %v", errs)
		}
	})

	t.Run("two initial states", func(t *testing.T) {
		doc := validDocument()
		doc.States[1].Type = StateInitial

		_, _, errs := Validate(doc)
		found := false
		for _, err := range errs {
			if errors.GetCode(err) == "INITIAL_STATE" && strings.Contains(err.Error(), "2 initial states") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected INITIAL_STATE error naming the count, got: %v", errs)
		}
	})
}

func TestValidateDanglingTransition(t *testing.T) {
	doc := validDocument()
	doc.Transitions = append(doc.Transitions, Transition{
		ID: "TR3", From: "S2", To: "S99", Trigger: "export",
	})

	m, _, errs := Validate(doc)
	if m != nil {
		t.Error("model with dangling transition must not validate")
	}

	var dangling []error
	for _, err := range errs {
		if errors.GetCode(err) == "DANGLING_TRANSITION" {
			dangling = append(dangling, err)
		}
	}
	if len(dangling) != 1 {
		t.Fatalf("expected exactly 1 dangling transition error, got %d: %v", len(dangling), errs)
	}
	msg := dangling[0].Error()
	if !strings.Contains(msg, "TR3") {
		t.Error("error must name the transition id")
	}
	if !strings.Contains(msg, "S99") {
		t.Error("error must name the missing state id")
	}
}

func TestValidateUnknownStateType(t *testing.T) {
	doc := validDocument()
	doc.States[1].Type = "weird"

	_, _, errs := Validate(doc)
	if len(errs) == 0 {
		t.Fatal("expected error for unknown state type")
	}
}

func TestValidateUnreachableStateIsWarning(t *testing.T) {
	doc := validDocument()
	doc.States = append(doc.States, State{ID: "S4", Name: "Orphan", Type: StateNormal})

	m, warnings, errs := Validate(doc)
	if len(errs) > 0 {
		t.Fatalf("unreachable state must not be a hard error, got: %v", errs)
	}
	if m == nil {
		t.Fatal("model should still validate")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if !strings.Contains(warnings[0].Message, "S4") {
		t.Errorf("warning should name the unreachable state: %s", warnings[0].Message)
	}
}

func TestValidateErrorModelRequiresCatalog(t *testing.T) {
	doc := &Document{
		ModelID:   "faults",
		ModelType: TypeErrorModel,
		Version:   "1.0",
	}

	_, _, errs := Validate(doc)
	if len(errs) == 0 {
		t.Fatal("error_model without error_categories must fail")
	}

	doc.ErrorCategories = []ErrorEntry{
		{ID: "E1", Name: "Truncated buffer", Trigger: "allocate truncated"},
	}
	m, _, errs := Validate(doc)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got: %v", errs)
	}
	if len(m.ErrorEntries) != 1 {
		t.Error("error entries should be carried into the model")
	}
}

func TestIsMandatory(t *testing.T) {
	doc := validDocument()
	m, _, errs := Validate(doc)
	if len(errs) > 0 {
		t.Fatalf("setup failed: %v", errs)
	}

	// TR1 leaves the initial state, TR2 enters the final state.
	for _, tr := range m.Transitions {
		if !m.IsMandatory(tr) {
			t.Errorf("transition %s touching initial/final endpoint should be mandatory", tr.ID)
		}
	}

	plain := Transition{ID: "TRX", From: "S2", To: "S2", Trigger: "query"}
	if m.IsMandatory(plain) {
		t.Error("normal self-loop without requirements or guard should not be mandatory")
	}

	tagged := plain
	tagged.Requirements = []string{"REQ-9"}
	if !m.IsMandatory(tagged) {
		t.Error("requirement-tagged transition should be mandatory")
	}

	guarded := plain
	guarded.Guard = "rows > 0"
	if !m.IsMandatory(guarded) {
		t.Error("non-trivially guarded transition should be mandatory")
	}

	trivial := plain
	trivial.Guard = "true"
	if m.IsMandatory(trivial) {
		t.Error("guard 'true' is trivial and should not force mandatory")
	}

	explicit := guarded
	no := false
	explicit.Mandatory = &no
	if m.IsMandatory(explicit) {
		t.Error("explicit mandatory=false must override derivation")
	}
}

func TestMandatoryStates(t *testing.T) {
	doc := validDocument()
	doc.States = append(doc.States,
		State{ID: "S8", Name: "Broken", Type: StateError},
		State{ID: "S9", Name: "Spare", Type: StateNormal},
	)
	doc.Transitions = append(doc.Transitions,
		Transition{ID: "TR8", From: "S2", To: "S8", Trigger: "fail"},
		Transition{ID: "TR9", From: "S2", To: "S9", Trigger: "park"},
	)

	m, _, errs := Validate(doc)
	if len(errs) > 0 {
		t.Fatalf("setup failed: %v", errs)
	}

	mandatory := map[string]bool{}
	for _, s := range m.MandatoryStates() {
		mandatory[s.ID] = true
	}
	for _, id := range []string{"S1", "S3", "S8"} {
		if !mandatory[id] {
			t.Errorf("state %s (initial/final/error) should be mandatory", id)
		}
	}
	for _, id := range []string{"S2", "S9"} {
		if mandatory[id] {
			t.Errorf("normal state %s should not be mandatory", id)
		}
	}
}
