// Package module defines the operation surface of the binary component under
// test. The harness treats the component as an opaque collaborator: it depends
// only on these operation names and return shapes, never on internals.
package module

import "context"

type Op string

const (
	OpAllocate   Op = "allocate"   // load a data unit from a buffer, returns a handle
	OpSummary    Op = "summary"    // structural summary of a loaded unit
	OpDimensions Op = "dimensions" // size and row count of a loaded unit
	OpExport     Op = "export"     // export one named subdivision of a unit
	OpRelease    Op = "release"    // release a handle
	OpReset      Op = "reset"      // drop all engine state
	OpStats      Op = "stats"      // memory/usage statistics
)

func (o Op) Valid() bool {
	switch o {
	case OpAllocate, OpSummary, OpDimensions, OpExport, OpRelease, OpReset, OpStats:
		return true
	}
	return false
}

// Request is one operation invocation. Which fields matter depends on Op.
type Request struct {
	Op      Op     `json:"op"`
	Handle  string `json:"handle,omitempty"`
	Section string `json:"section,omitempty"`
	Payload []byte `json:"payload,omitempty"`
}

type Summary struct {
	Sections []string `json:"sections"`
	Fields   int      `json:"fields"`
}

type Dimensions struct {
	Rows      int64 `json:"rows"`
	SizeBytes int64 `json:"size_bytes"`
}

type Stats struct {
	LiveHandles int   `json:"live_handles"`
	BytesHeld   int64 `json:"bytes_held"`
	OpsServed   int64 `json:"ops_served"`
}

// OperationResult is the successful outcome of a dispatch. Only the fields
// relevant to the dispatched Op are populated.
type OperationResult struct {
	Op         Op          `json:"op"`
	Handle     string      `json:"handle,omitempty"`
	Summary    *Summary    `json:"summary,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Section    []byte      `json:"section,omitempty"`
	Stats      *Stats      `json:"stats,omitempty"`
}

// Client dispatches operations against one engine instance. Implementations:
// the in-process engine (local environments, tests) and the HTTP client
// (isolated environment processes).
type Client interface {
	Dispatch(ctx context.Context, req Request) (*OperationResult, error)
}
