package coverage

import (
	"math"

	"github.com/pkeller/modelharness/internal/generator"
	"github.com/pkeller/modelharness/internal/logging"
	"github.com/pkeller/modelharness/internal/model"
)

// DefaultThreshold is the gate applied when no explicit threshold is given.
const DefaultThreshold = 90.0

// Gap is one mandatory element that no executed test exercised.
type Gap struct {
	Tag       string `json:"tag"`
	Kind      string `json:"kind"` // state or transition
	ElementID string `json:"element_id"`
	Name      string `json:"name,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

type ModelCoverage struct {
	ModelID          string  `json:"model_id"`
	MandatoryTotal   int     `json:"mandatory_total"`
	MandatoryCovered int     `json:"mandatory_covered"`
	Percent          float64 `json:"percent"`
	Gaps             []Gap   `json:"gaps,omitempty"`
}

type Report struct {
	Threshold float64         `json:"threshold"`
	Percent   float64         `json:"percent"`
	Passed    bool            `json:"passed"`
	Models    []ModelCoverage `json:"models"`
}

// Analyze compares the recorded evidence against the mandatory elements of
// each model: the initial/final/error states plus every transition whose
// derived status is mandatory. Optional elements are tracked but never
// counted against the gate.
func Analyze(models []*model.Model, tracker *Tracker, threshold float64) *Report {
	report := &Report{Threshold: threshold}

	var total, covered int
	for _, m := range models {
		mc := analyzeModel(m, tracker)
		total += mc.MandatoryTotal
		covered += mc.MandatoryCovered
		report.Models = append(report.Models, mc)
	}

	report.Percent = percent(covered, total)
	report.Passed = report.Percent >= threshold

	logging.Info("coverage %.1f%% against threshold %.1f%% (passed=%t)", report.Percent, threshold, report.Passed)
	return report
}

func analyzeModel(m *model.Model, tracker *Tracker) ModelCoverage {
	mc := ModelCoverage{ModelID: m.ID}

	for _, s := range m.MandatoryStates() {
		tag := generator.StateTag(m.ID, s.ID)
		mc.MandatoryTotal++
		if tracker.IsExecuted(tag) {
			mc.MandatoryCovered++
			continue
		}
		mc.Gaps = append(mc.Gaps, Gap{
			Tag:       tag,
			Kind:      "state",
			ElementID: s.ID,
			Name:      s.Name,
		})
	}

	for _, tr := range m.MandatoryTransitions() {
		tag := generator.TransitionTag(m.ID, tr.ID)
		mc.MandatoryTotal++
		if tracker.IsExecuted(tag) {
			mc.MandatoryCovered++
			continue
		}
		mc.Gaps = append(mc.Gaps, Gap{
			Tag:       tag,
			Kind:      "transition",
			ElementID: tr.ID,
			From:      tr.From,
			To:        tr.To,
		})
	}

	mc.Percent = percent(mc.MandatoryCovered, mc.MandatoryTotal)
	return mc
}

// RegisterModels seeds the tracker's universe with every coverage tag the
// models can produce.
func RegisterModels(tracker *Tracker, models []*model.Model) {
	for _, m := range models {
		for _, s := range m.States {
			tracker.Register(generator.StateTag(m.ID, s.ID))
		}
		for _, tr := range m.Transitions {
			tracker.Register(generator.TransitionTag(m.ID, tr.ID))
		}
	}
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 100.0
	}
	return math.Round(float64(covered)/float64(total)*1000) / 10
}
