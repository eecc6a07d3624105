// Package coverage aggregates execution evidence into per-model coverage and
// gates the run against a threshold.
package coverage

import (
	"fmt"
	"sort"
	"sync"
)

// Tracker collects coverage tags recorded during execution. Recorded tags
// must stay a subset of the registered universe; recording an unknown tag is
// an error, not a silent widening.
type Tracker struct {
	mu         sync.Mutex
	registered map[string]bool
	executed   map[string]bool
}

func NewTracker() *Tracker {
	return &Tracker{
		registered: make(map[string]bool),
		executed:   make(map[string]bool),
	}
}

func (t *Tracker) Register(tags ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tag := range tags {
		t.registered[tag] = true
	}
}

func (t *Tracker) RecordExecution(tag string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.registered[tag] {
		return fmt.Errorf("coverage tag '%s' was never registered", tag)
	}
	t.executed[tag] = true
	return nil
}

// Executed returns the sorted set of recorded tags.
func (t *Tracker) Executed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	tags := make([]string, 0, len(t.executed))
	for tag := range t.executed {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (t *Tracker) IsExecuted(tag string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.executed[tag]
}

// Merge folds another tracker's evidence into this one. Used when combining
// per-environment results.
func (t *Tracker) Merge(other *Tracker) error {
	for _, tag := range other.Executed() {
		if err := t.RecordExecution(tag); err != nil {
			return err
		}
	}
	return nil
}
