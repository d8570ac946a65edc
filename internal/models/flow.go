package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WorkflowStep is one role-gated step of a sequential approval flow.
type WorkflowStep struct {
	Index          int    `json:"step"`
	Role           Role   `json:"role"`
	Label          string `json:"label"`
	TimeLimitHours int    `json:"timeLimitHours,omitempty"` // 0 means no limit
}

// FlowKind tells which shape of ApprovalFlow is active.
type FlowKind string

const (
	FlowNone       FlowKind = "none"
	FlowSequential FlowKind = "sequential"
	FlowAnyOf      FlowKind = "any_of"
)

// ApprovalFlow is either an ordered list of steps or an unordered set of roles
// where any one of them may close the step. At most one shape is set.
type ApprovalFlow struct {
	Steps []WorkflowStep
	AnyOf []Role
	Label string
}

// Kind returns which shape is active.
func (f ApprovalFlow) Kind() FlowKind {
	switch {
	case len(f.Steps) > 0 && len(f.AnyOf) > 0:
		return FlowNone
	case len(f.Steps) > 0:
		return FlowSequential
	case len(f.AnyOf) > 0:
		return FlowAnyOf
	default:
		return FlowNone
	}
}

// IsZero reports whether the flow carries no steps and no roles.
func (f ApprovalFlow) IsZero() bool {
	return len(f.Steps) == 0 && len(f.AnyOf) == 0 && f.Label == ""
}

// Roles returns every role referenced by the flow in step order, without
// duplicates.
func (f ApprovalFlow) Roles() []Role {
	var out []Role
	add := func(r Role) {
		if !ContainsRole(out, r) {
			out = append(out, r)
		}
	}
	for _, s := range f.Steps {
		add(s.Role)
	}
	for _, r := range f.AnyOf {
		add(r)
	}
	return out
}

// Clone returns a deep copy of f.
func (f ApprovalFlow) Clone() ApprovalFlow {
	out := ApprovalFlow{Label: f.Label}
	if f.Steps != nil {
		out.Steps = append([]WorkflowStep{}, f.Steps...)
	}
	if f.AnyOf != nil {
		out.AnyOf = append([]Role{}, f.AnyOf...)
	}
	return out
}

type anyOfDoc struct {
	AnyOf []Role `json:"anyOf"`
	Label string `json:"label,omitempty"`
}

// MarshalJSON encodes a sequential flow as an array and an any-of flow as an
// object with an "anyOf" member.
func (f ApprovalFlow) MarshalJSON() ([]byte, error) {
	if len(f.AnyOf) > 0 {
		return json.Marshal(anyOfDoc{AnyOf: f.AnyOf, Label: f.Label})
	}
	steps := f.Steps
	if steps == nil {
		steps = []WorkflowStep{}
	}
	return json.Marshal(steps)
}

// UnmarshalJSON accepts either shape.
func (f *ApprovalFlow) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ApprovalFlow{}
		return nil
	}
	switch trimmed[0] {
	case '[':
		var steps []WorkflowStep
		if err := json.Unmarshal(trimmed, &steps); err != nil {
			return fmt.Errorf("approval flow steps: %w", err)
		}
		*f = ApprovalFlow{Steps: steps}
	case '{':
		var doc anyOfDoc
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return fmt.Errorf("approval flow anyOf: %w", err)
		}
		*f = ApprovalFlow{AnyOf: doc.AnyOf, Label: doc.Label}
	default:
		return fmt.Errorf("approval flow must be an array or an object")
	}
	return nil
}

// StopWorkRole names a role allowed to halt active work, with its UI label.
type StopWorkRole struct {
	Role  Role   `json:"role"`
	Label string `json:"label"`
}
