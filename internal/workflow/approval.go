package workflow

import "github.com/p-blackswan/safety-engine/internal/models"

// NextStep returns the first step of a sequential flow whose index is greater
// than lastCompleted. Pass 0 when nothing has been approved yet.
func NextStep(flow models.ApprovalFlow, lastCompleted int) (models.WorkflowStep, bool) {
	if flow.Kind() != models.FlowSequential {
		return models.WorkflowStep{}, false
	}
	for _, s := range flow.Steps {
		if s.Index > lastCompleted {
			return s, true
		}
	}
	return models.WorkflowStep{}, false
}

// Complete reports whether every step of a sequential flow is done.
func Complete(flow models.ApprovalFlow, lastCompleted int) bool {
	_, pending := NextStep(flow, lastCompleted)
	return flow.Kind() == models.FlowSequential && !pending
}

// CanAct reports whether role may satisfy the pending part of flow: the next
// sequential step must belong to role, or role must be one of an any-of set.
func CanAct(flow models.ApprovalFlow, role models.Role, lastCompleted int) bool {
	switch flow.Kind() {
	case models.FlowSequential:
		next, ok := NextStep(flow, lastCompleted)
		return ok && next.Role == role
	case models.FlowAnyOf:
		return models.ContainsRole(flow.AnyOf, role)
	default:
		return false
	}
}
