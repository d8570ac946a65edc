// Package models holds the vocabulary shared by every rule component:
// roles, severities, modules, statuses, actions and approval flows.
package models

import (
	"fmt"
	"strings"
)

// ModuleKey identifies one safety process area.
type ModuleKey string

const (
	ModulePTW   ModuleKey = "ptw"
	ModuleIMS   ModuleKey = "ims"
	ModuleHAZOP ModuleKey = "hazop"
	ModuleHIRA  ModuleKey = "hira"
	ModuleBBS   ModuleKey = "bbs"
	ModuleAudit ModuleKey = "audit"
)

// Modules lists all module keys in display order.
var Modules = []ModuleKey{ModulePTW, ModuleIMS, ModuleHAZOP, ModuleHIRA, ModuleBBS, ModuleAudit}

// Valid reports whether m is a known module.
func (m ModuleKey) Valid() bool {
	for _, k := range Modules {
		if k == m {
			return true
		}
	}
	return false
}

// ParseModule converts a case-insensitive string into a ModuleKey.
func ParseModule(s string) (ModuleKey, error) {
	m := ModuleKey(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown module %q", s)
	}
	return m, nil
}

// Status is a lifecycle state of a module record.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusSubmitted       Status = "submitted"
	StatusApproved        Status = "approved"
	StatusActive          Status = "active"
	StatusStopped         Status = "stopped"
	StatusExpired         Status = "expired"
	StatusClosed          Status = "closed"
	StatusCancelled       Status = "cancelled"
	StatusRejected        Status = "rejected"
	StatusOpen            Status = "open"
	StatusInvestigating   Status = "investigating"
	StatusRCASubmitted    Status = "rca_submitted"
	StatusActionsAssigned Status = "actions_assigned"
	StatusPendingClosure  Status = "pending_closure"
	StatusInProgress      Status = "in_progress"
	StatusUnderReview     Status = "under_review"
	StatusAssigned        Status = "assigned"
	StatusActionTaken     Status = "action_taken"
	StatusPlanned         Status = "planned"
	StatusFindingsOpen    Status = "findings_open"
	StatusCompleted       Status = "completed"
)

// TerminalStatuses have no outgoing transitions in any module.
var TerminalStatuses = []Status{StatusClosed, StatusCancelled, StatusRejected, StatusExpired}

// IsTerminal reports whether s ends a record's lifecycle.
func (s Status) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if t == s {
			return true
		}
	}
	return false
}
