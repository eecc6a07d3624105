package model

import (
	"fmt"

	"github.com/pkeller/modelharness/internal/errors"
)

// Warning is a non-fatal validation concern attached to a model.
type Warning struct {
	ModelID string            `json:"model_id"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// Validate runs the semantic checks on a parsed document and, when they pass,
// returns the immutable Model. Validation is fail-closed: the first category of
// hard error aborts this model, but the caller continues with sibling models.
func Validate(doc *Document) (*Model, []Warning, []error) {
	var errs []error
	var warnings []Warning

	if doc.ModelID == "" {
		errs = append(errs, errors.ModelValidationFailed("(unnamed)", "missing required field 'model_id'"))
		return nil, nil, errs
	}
	if !doc.ModelType.Valid() {
		errs = append(errs, errors.ModelValidationFailed(doc.ModelID,
			fmt.Sprintf("unknown model_type '%s'", doc.ModelType)))
		return nil, nil, errs
	}
	if doc.Version == "" {
		errs = append(errs, errors.ModelValidationFailed(doc.ModelID, "missing required field 'version'"))
	}

	switch doc.ModelType {
	case TypeErrorModel:
		if len(doc.ErrorCategories) == 0 {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID,
				"error_model requires a non-empty 'error_categories' section"))
		}
	case TypeErrorRecovery:
		if len(doc.RecoveryScenarios) == 0 {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID,
				"error_recovery requires a non-empty 'recovery_scenarios' section"))
		}
	default:
		if len(doc.States) == 0 {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID,
				fmt.Sprintf("%s requires a non-empty 'states' section", doc.ModelType)))
		}
	}

	if doc.ModelType.HasStateGraph() {
		errs = append(errs, validateStates(doc)...)
		errs = append(errs, validateTransitions(doc)...)
	}

	if len(errs) > 0 {
		return nil, nil, errs
	}

	if doc.ModelType.HasStateGraph() {
		warnings = append(warnings, reachabilityWarnings(doc)...)
	}

	m := &Model{
		ID:           doc.ModelID,
		Type:         doc.ModelType,
		Version:      doc.Version,
		Description:  doc.Description,
		States:       doc.States,
		Transitions:  doc.Transitions,
		ErrorEntries: append(append([]ErrorEntry{}, doc.ErrorCategories...), doc.RecoveryScenarios...),
		PerfEntries:  doc.TimingRequirements,
		Requirements: doc.Requirements,
	}
	return m, warnings, nil
}

func validateStates(doc *Document) []error {
	var errs []error

	seen := make(map[string]bool)
	initialCount := 0
	for _, s := range doc.States {
		if s.ID == "" {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID, "state missing required field 'id'"))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID,
				fmt.Sprintf("duplicate state id '%s'", s.ID)))
		}
		seen[s.ID] = true

		if s.Name == "" {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID,
				fmt.Sprintf("state '%s' missing required field 'name'", s.ID)))
		}
		if !s.Type.Valid() {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID,
				fmt.Sprintf("state '%s' has unknown type '%s'", s.ID, s.Type)))
		}
		if s.Type == StateInitial {
			initialCount++
		}
	}

	if initialCount != 1 {
		errs = append(errs, errors.MultipleInitialStates(doc.ModelID, initialCount))
	}

	return errs
}

func validateTransitions(doc *Document) []error {
	var errs []error

	stateIDs := make(map[string]bool)
	for _, s := range doc.States {
		stateIDs[s.ID] = true
	}

	seen := make(map[string]bool)
	for _, t := range doc.Transitions {
		if t.ID == "" {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID, "transition missing required field 'id'"))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID,
				fmt.Sprintf("duplicate transition id '%s'", t.ID)))
		}
		seen[t.ID] = true

		if !stateIDs[t.From] {
			errs = append(errs, errors.DanglingTransition(doc.ModelID, t.ID, t.From))
		}
		if !stateIDs[t.To] {
			errs = append(errs, errors.DanglingTransition(doc.ModelID, t.ID, t.To))
		}
		if t.Trigger == "" {
			errs = append(errs, errors.ModelValidationFailed(doc.ModelID,
				fmt.Sprintf("transition '%s' missing required field 'trigger'", t.ID)))
		}
	}

	return errs
}

// reachabilityWarnings flags states the initial state cannot reach. Unreachable
// states are a modeling smell, not a hard error.
func reachabilityWarnings(doc *Document) []Warning {
	initial := ""
	for _, s := range doc.States {
		if s.Type == StateInitial {
			initial = s.ID
			break
		}
	}
	if initial == "" {
		return nil
	}

	reachable := NewGraph(doc.Transitions).ReachableFrom(initial)

	var warnings []Warning
	for _, s := range doc.States {
		if !reachable[s.ID] {
			warnings = append(warnings, Warning{
				ModelID: doc.ModelID,
				Message: fmt.Sprintf("state '%s' (%s) is unreachable from initial state '%s'", s.ID, s.Name, initial),
				Context: map[string]string{"state_id": s.ID},
			})
		}
	}
	return warnings
}
