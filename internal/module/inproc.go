package module

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// unitDescriptor is the synthetic wire form of a data unit buffer. The real
// component consumes an opaque binary layout; the in-process engine consumes
// this JSON stand-in with the same observable behavior.
type unitDescriptor struct {
	Rows     int64             `json:"rows"`
	Sections map[string]string `json:"sections"`
}

// SyntheticUnit builds an allocatable payload with the given row count and
// section names. Used by local environments and tests.
func SyntheticUnit(rows int64, sections ...string) []byte {
	desc := unitDescriptor{Rows: rows, Sections: make(map[string]string)}
	for i, name := range sections {
		desc.Sections[name] = fmt.Sprintf("section-%d-of-%d-rows", i, rows)
	}
	data, _ := json.Marshal(desc)
	return data
}

type unit struct {
	rows     int64
	size     int64
	sections map[string][]byte
}

// Engine is an in-process implementation of the component's operation surface.
type Engine struct {
	mu        sync.Mutex
	units     map[string]*unit
	handleSeq int
	opsServed int64
}

func NewEngine() *Engine {
	return &Engine{units: make(map[string]*unit)}
}

func (e *Engine) Dispatch(ctx context.Context, req Request) (*OperationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.opsServed++

	switch req.Op {
	case OpAllocate:
		return e.allocate(req)
	case OpSummary:
		return e.summary(req)
	case OpDimensions:
		return e.dimensions(req)
	case OpExport:
		return e.export(req)
	case OpRelease:
		return e.release(req)
	case OpReset:
		e.units = make(map[string]*unit)
		return &OperationResult{Op: OpReset}, nil
	case OpStats:
		return e.stats(), nil
	default:
		return nil, fmt.Errorf("unknown operation: %s", req.Op)
	}
}

func (e *Engine) allocate(req Request) (*OperationResult, error) {
	if len(req.Payload) == 0 {
		return nil, fmt.Errorf("allocate: empty buffer")
	}

	var desc unitDescriptor
	if err := json.Unmarshal(req.Payload, &desc); err != nil {
		return nil, fmt.Errorf("allocate: malformed data unit: %w", err)
	}
	if desc.Rows < 0 {
		return nil, fmt.Errorf("allocate: negative row count")
	}

	u := &unit{
		rows:     desc.Rows,
		size:     int64(len(req.Payload)),
		sections: make(map[string][]byte),
	}
	for name, content := range desc.Sections {
		u.sections[name] = []byte(content)
	}

	e.handleSeq++
	handle := fmt.Sprintf("h-%d", e.handleSeq)
	e.units[handle] = u

	return &OperationResult{Op: OpAllocate, Handle: handle}, nil
}

func (e *Engine) lookup(handle string) (*unit, error) {
	if handle == "" {
		return nil, fmt.Errorf("missing handle")
	}
	u, ok := e.units[handle]
	if !ok {
		return nil, fmt.Errorf("unknown handle: %s", handle)
	}
	return u, nil
}

func (e *Engine) summary(req Request) (*OperationResult, error) {
	u, err := e.lookup(req.Handle)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	sections := make([]string, 0, len(u.sections))
	for name := range u.sections {
		sections = append(sections, name)
	}

	return &OperationResult{
		Op:      OpSummary,
		Handle:  req.Handle,
		Summary: &Summary{Sections: sections, Fields: len(u.sections)},
	}, nil
}

func (e *Engine) dimensions(req Request) (*OperationResult, error) {
	u, err := e.lookup(req.Handle)
	if err != nil {
		return nil, fmt.Errorf("dimensions: %w", err)
	}

	return &OperationResult{
		Op:         OpDimensions,
		Handle:     req.Handle,
		Dimensions: &Dimensions{Rows: u.rows, SizeBytes: u.size},
	}, nil
}

func (e *Engine) export(req Request) (*OperationResult, error) {
	u, err := e.lookup(req.Handle)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	content, ok := u.sections[req.Section]
	if !ok {
		return nil, fmt.Errorf("export: unknown section '%s'", req.Section)
	}

	return &OperationResult{
		Op:      OpExport,
		Handle:  req.Handle,
		Section: content,
	}, nil
}

func (e *Engine) release(req Request) (*OperationResult, error) {
	if _, err := e.lookup(req.Handle); err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}
	delete(e.units, req.Handle)
	return &OperationResult{Op: OpRelease, Handle: req.Handle}, nil
}

func (e *Engine) stats() *OperationResult {
	var bytesHeld int64
	for _, u := range e.units {
		bytesHeld += u.size
	}

	return &OperationResult{
		Op: OpStats,
		Stats: &Stats{
			LiveHandles: len(e.units),
			BytesHeld:   bytesHeld,
			OpsServed:   e.opsServed,
		},
	}
}
