package model

type ModelType string

const (
	TypeStateMachine  ModelType = "state_machine"
	TypeStatechart    ModelType = "statechart"
	TypeComponent     ModelType = "component"
	TypeErrorModel    ModelType = "error_model"
	TypeErrorRecovery ModelType = "error_recovery"
)

func (t ModelType) Valid() bool {
	switch t {
	case TypeStateMachine, TypeStatechart, TypeComponent, TypeErrorModel, TypeErrorRecovery:
		return true
	}
	return false
}

// HasStateGraph reports whether documents of this type carry a state/transition graph.
func (t ModelType) HasStateGraph() bool {
	switch t {
	case TypeStateMachine, TypeStatechart, TypeComponent:
		return true
	}
	return false
}

type StateType string

const (
	StateInitial   StateType = "initial"
	StateNormal    StateType = "normal"
	StateFinal     StateType = "final"
	StateError     StateType = "error"
	StateComposite StateType = "composite"
)

func (t StateType) Valid() bool {
	switch t {
	case StateInitial, StateNormal, StateFinal, StateError, StateComposite:
		return true
	}
	return false
}

type State struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Type       StateType              `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Invariants []string               `json:"invariants,omitempty"`
}

type Transition struct {
	ID           string   `json:"id"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Trigger      string   `json:"trigger"`
	Guard        string   `json:"guard,omitempty"`
	Action       string   `json:"action,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	// Mandatory, when present in the document, overrides the derived status.
	Mandatory *bool `json:"mandatory,omitempty"`
}

type ErrorEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Trigger  string `json:"trigger"`
	Recovery string `json:"recovery,omitempty"`
	Severity string `json:"severity,omitempty"`
}

type PerfEntry struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Operation     string   `json:"operation"`
	MaxDurationMs int      `json:"max_duration_ms"`
	Requirements  []string `json:"requirements,omitempty"`
}

// Document is the persisted JSON form of a behavioral model. Which sections are
// required depends on model_type; see the schema and the semantic validator.
type Document struct {
	ModelID           string                 `json:"model_id"`
	ModelType         ModelType              `json:"model_type"`
	Version           string                 `json:"version"`
	Description       string                 `json:"description,omitempty"`
	States            []State                `json:"states,omitempty"`
	Transitions       []Transition           `json:"transitions,omitempty"`
	ErrorCategories   []ErrorEntry           `json:"error_categories,omitempty"`
	RecoveryScenarios []ErrorEntry           `json:"recovery_scenarios,omitempty"`
	TimingRequirements []PerfEntry           `json:"timing_requirements,omitempty"`
	Requirements      []string               `json:"requirements,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// Model is a validated, immutable behavioral model. Consumers read it; nothing
// mutates it after load.
type Model struct {
	ID           string
	Type         ModelType
	Version      string
	Description  string
	States       []State
	Transitions  []Transition
	ErrorEntries []ErrorEntry
	PerfEntries  []PerfEntry
	Requirements []string
	SourcePath   string
}

// StateByID returns the declared state with the given id.
func (m *Model) StateByID(id string) (State, bool) {
	for _, s := range m.States {
		if s.ID == id {
			return s, true
		}
	}
	return State{}, false
}

// InitialState returns the single initial state. Validation guarantees exactly
// one exists for graph-bearing model types.
func (m *Model) InitialState() (State, bool) {
	for _, s := range m.States {
		if s.Type == StateInitial {
			return s, true
		}
	}
	return State{}, false
}

// IsMandatory derives a transition's mandatory status. An explicit document
// field wins; otherwise a transition is mandatory when it carries requirement
// tags, touches an initial/final/error state, or has a non-trivial guard.
func (m *Model) IsMandatory(t Transition) bool {
	if t.Mandatory != nil {
		return *t.Mandatory
	}
	if len(t.Requirements) > 0 {
		return true
	}
	for _, id := range []string{t.From, t.To} {
		if s, ok := m.StateByID(id); ok {
			switch s.Type {
			case StateInitial, StateFinal, StateError:
				return true
			}
		}
	}
	return nonTrivialGuard(t.Guard)
}

// IsMandatoryState reports whether the gate requires a state's coverage.
// Initial, final, and error states anchor the graph; other states are tracked
// for the reports but stay optional, so an unreachable normal state degrades
// to a load-time warning instead of a gate failure.
func (m *Model) IsMandatoryState(s State) bool {
	switch s.Type {
	case StateInitial, StateFinal, StateError:
		return true
	}
	return false
}

// MandatoryStates returns the states whose coverage the gate requires.
func (m *Model) MandatoryStates() []State {
	var mandatory []State
	for _, s := range m.States {
		if m.IsMandatoryState(s) {
			mandatory = append(mandatory, s)
		}
	}
	return mandatory
}

// MandatoryTransitions returns the transitions whose coverage the gate requires.
func (m *Model) MandatoryTransitions() []Transition {
	var mandatory []Transition
	for _, t := range m.Transitions {
		if m.IsMandatory(t) {
			mandatory = append(mandatory, t)
		}
	}
	return mandatory
}

func nonTrivialGuard(guard string) bool {
	switch guard {
	case "", "true", "TRUE", "True", "1":
		return false
	}
	return true
}
