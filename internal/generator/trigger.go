package generator

import (
	"strconv"
	"strings"

	"github.com/pkeller/modelharness/internal/module"
)

// OpDescriptor is a trigger resolved into a concrete engine operation. The
// resolution happens once, at synthesis time; execution only interprets the
// tagged descriptor.
type OpDescriptor struct {
	Op      module.Op `json:"op"`
	Rows    int64     `json:"rows,omitempty"`
	Section string    `json:"section,omitempty"`
	// Corrupt makes allocate submit a malformed buffer. Fault-injection
	// triggers set this.
	Corrupt bool `json:"corrupt,omitempty"`
}

var triggerAliases = map[string]module.Op{
	"allocate":   module.OpAllocate,
	"load":       module.OpAllocate,
	"open":       module.OpAllocate,
	"summary":    module.OpSummary,
	"summarize":  module.OpSummary,
	"inspect":    module.OpSummary,
	"dimensions": module.OpDimensions,
	"measure":    module.OpDimensions,
	"size":       module.OpDimensions,
	"export":     module.OpExport,
	"extract":    module.OpExport,
	"release":    module.OpRelease,
	"free":       module.OpRelease,
	"close":      module.OpRelease,
	"reset":      module.OpReset,
	"stats":      module.OpStats,
}

const defaultRows = 100

// ResolveTrigger maps a model trigger phrase onto an engine operation. The
// first token selects the operation; remaining tokens are modifiers: a number
// sets the row count for allocate, fault words mark the buffer corrupt, and
// any other token on export names the section.
func ResolveTrigger(trigger string) (OpDescriptor, bool) {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(trigger)))
	if len(tokens) == 0 {
		return OpDescriptor{}, false
	}

	op, ok := triggerAliases[tokens[0]]
	if !ok {
		return OpDescriptor{}, false
	}

	desc := OpDescriptor{Op: op}
	if op == module.OpAllocate {
		desc.Rows = defaultRows
	}

	for _, tok := range tokens[1:] {
		switch tok {
		case "truncated", "corrupt", "corrupted", "malformed", "invalid":
			desc.Corrupt = true
		default:
			if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
				desc.Rows = n
			} else if op == module.OpExport && desc.Section == "" {
				desc.Section = tok
			}
		}
	}

	if op == module.OpExport && desc.Section == "" {
		desc.Section = "default"
	}

	return desc, true
}
