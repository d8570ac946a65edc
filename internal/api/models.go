package api

import (
	"encoding/json"
	"time"

	"github.com/p-blackswan/safety-engine/internal/engine"
	"github.com/p-blackswan/safety-engine/internal/models"
	"github.com/p-blackswan/safety-engine/internal/sla"
	"github.com/p-blackswan/safety-engine/internal/tenantconfig"
)

// --- Request types ---

// TransitionRequest is the body of POST /api/v1/transitions/check.
type TransitionRequest struct {
	Module string        `json:"module"`
	From   models.Status `json:"from"`
	To     models.Status `json:"to"`
}

// ActionRequest is the body of POST /api/v1/actions/check. With From and To
// set the edge is checked as well.
type ActionRequest struct {
	Module string        `json:"module"`
	Action models.Action `json:"action"`
	From   models.Status `json:"from,omitempty"`
	To     models.Status `json:"to,omitempty"`
}

// EscalationRequest is the body of POST /api/v1/escalation.
type EscalationRequest struct {
	Module   string `json:"module"`
	Severity string `json:"severity"`
}

// SLARequest is the body of POST /api/v1/sla. Now defaults to the server clock.
type SLARequest struct {
	AssignedAt     time.Time  `json:"assignedAt"`
	TimeLimitHours int        `json:"timeLimitHours"`
	Now            *time.Time `json:"now,omitempty"`
}

// AccessRequest is the body of POST /api/v1/access.
type AccessRequest struct {
	Path               string        `json:"path"`
	Module             string        `json:"module,omitempty"`
	Roles              []models.Role `json:"roles,omitempty"`
	SubscriptionStatus string        `json:"subscriptionStatus"`
	Authenticated      *bool         `json:"authenticated,omitempty"`
	TenantLoaded       *bool         `json:"tenantLoaded,omitempty"`
}

// --- Response types ---

// TransitionResponse answers a transition check.
type TransitionResponse struct {
	Legal    bool            `json:"legal"`
	Next     models.Status   `json:"next,omitempty"`
	Progress int             `json:"progress"`
	Options  []models.Status `json:"options"`
	Epoch    uint64          `json:"epoch"`
}

// ActionResponse answers an action check.
type ActionResponse struct {
	engine.Check
	Role  models.Role `json:"role"`
	Epoch uint64      `json:"epoch"`
}

// ActionsResponse lists what the caller may do in a module.
type ActionsResponse struct {
	Module  models.ModuleKey `json:"module"`
	Role    models.Role      `json:"role"`
	Enabled bool             `json:"enabled"`
	Actions []models.Action  `json:"actions"`
	Epoch   uint64           `json:"epoch"`
}

// ModuleSummary is one entry of GET /api/v1/modules.
type ModuleSummary struct {
	Module     models.ModuleKey `json:"module"`
	Enabled    bool             `json:"enabled"`
	Overridden bool             `json:"overridden"`
}

// ApprovalResponse describes the approval and closure flows for a severity.
type ApprovalResponse struct {
	Module        models.ModuleKey      `json:"module"`
	Severity      models.Severity       `json:"severity"`
	ApprovalFlow  models.ApprovalFlow   `json:"approvalFlow"`
	ClosureFlow   models.ApprovalFlow   `json:"closureFlow"`
	StopWorkRoles []models.StopWorkRole `json:"stopWorkRoles"`
	Epoch         uint64                `json:"epoch"`
}

// EscalationResponse answers an escalation lookup.
type EscalationResponse struct {
	Primary  models.Role   `json:"primary"`
	Eligible []models.Role `json:"eligible"`
	Epoch    uint64        `json:"epoch"`
}

// SLAResponse wraps the deadline status.
type SLAResponse struct {
	sla.Status
}

// ConfigResponse is the effective config of one module.
type ConfigResponse struct {
	TenantID string                       `json:"tenantId"`
	Module   models.ModuleKey             `json:"module"`
	Epoch    uint64                       `json:"epoch"`
	Config   tenantconfig.EffectiveConfig `json:"config"`
	Override json.RawMessage              `json:"override,omitempty"`
	Revision int64                        `json:"revision,omitempty"`
}
