package engine

import (
	"time"

	"github.com/p-blackswan/safety-engine/internal/escalation"
	"github.com/p-blackswan/safety-engine/internal/gate"
	"github.com/p-blackswan/safety-engine/internal/models"
	"github.com/p-blackswan/safety-engine/internal/policy"
	"github.com/p-blackswan/safety-engine/internal/sla"
	"github.com/p-blackswan/safety-engine/internal/tenantconfig"
	"github.com/p-blackswan/safety-engine/internal/workflow"
)

// Reason explains a combined check.
type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonNotEnabled        Reason = "not_enabled"
	ReasonUnauthorized      Reason = "unauthorized"
	ReasonIllegalTransition Reason = "illegal_transition"
)

// Check is the result of CheckAction or CheckTransition.
type Check struct {
	Allowed bool          `json:"allowed"`
	Reason  Reason        `json:"reason"`
	Source  policy.Source `json:"source,omitempty"`
}

// View answers rule questions for one tenant at one epoch. It is cheap to
// create and safe to share between goroutines.
type View struct {
	e    *Engine
	snap *tenantconfig.Snapshot
}

// TenantID returns the tenant the view is pinned to.
func (v *View) TenantID() string { return v.snap.TenantID() }

// Epoch returns the pinned snapshot's epoch.
func (v *View) Epoch() uint64 { return v.snap.Epoch() }

// Snapshot returns the pinned snapshot.
func (v *View) Snapshot() *tenantconfig.Snapshot { return v.snap }

// Config returns the effective config of module.
func (v *View) Config(module models.ModuleKey) (tenantconfig.EffectiveConfig, bool) {
	return v.snap.Module(module)
}

// ModuleEnabled reports whether the tenant has module switched on.
func (v *View) ModuleEnabled(module models.ModuleKey) bool {
	return v.snap.ModuleEnabled(module)
}

// IsLegalTransition reports whether from -> to is an edge of module's graph.
func (v *View) IsLegalTransition(module models.ModuleKey, from, to models.Status) bool {
	ok := v.e.table.IsLegalTransition(module, from, to)
	v.e.record(KindTransition, string(module), outcome(ok))
	return ok
}

// DefaultNext returns the canonical successor of status.
func (v *View) DefaultNext(module models.ModuleKey, status models.Status) (models.Status, bool) {
	return v.e.table.DefaultNext(module, status)
}

// NextStatuses lists the legal successors of status.
func (v *View) NextStatuses(module models.ModuleKey, status models.Status) []models.Status {
	return v.e.table.NextStatuses(module, status)
}

// Progress returns the canonical progress of status as a percentage.
func (v *View) Progress(module models.ModuleKey, status models.Status) (int, bool) {
	return v.e.table.Progress(module, status)
}

// CanPerform reports whether role may invoke action on module under the
// role lists the tenant's override sets, falling back to the built-in table.
func (v *View) CanPerform(module models.ModuleKey, action models.Action, role models.Role) bool {
	return v.e.authz.CanPerform(module, action, role, v.roles(module))
}

// roles returns the tenant's own role lists for module. Lists the tenant never
// set are left to the built-in table.
func (v *View) roles(module models.ModuleKey) policy.RoleLister {
	o, _ := v.snap.OverrideConfig(module)
	return o
}

// AllowedActions lists the actions role may invoke on module.
func (v *View) AllowedActions(module models.ModuleKey, role models.Role) []models.Action {
	if !v.snap.ModuleEnabled(module) {
		return nil
	}
	return v.e.authz.AllowedActions(module, role, v.roles(module))
}

// CheckAction combines the module switch and the authorizer.
func (v *View) CheckAction(module models.ModuleKey, action models.Action, role models.Role) Check {
	c := v.checkAction(module, action, role)
	v.e.record(KindAction, string(module), string(c.Reason))
	return c
}

func (v *View) checkAction(module models.ModuleKey, action models.Action, role models.Role) Check {
	if !v.snap.ModuleEnabled(module) {
		return Check{Reason: ReasonNotEnabled}
	}
	d := v.e.authz.Evaluate(module, action, role, v.roles(module))
	if !d.Allowed {
		return Check{Reason: ReasonUnauthorized, Source: d.Source}
	}
	return Check{Allowed: true, Reason: ReasonOK, Source: d.Source}
}

// CheckTransition reports whether role may move a module record from one
// status to another by invoking action. The module must be enabled, the
// role authorized and the edge legal, in that order.
func (v *View) CheckTransition(module models.ModuleKey, role models.Role, action models.Action, from, to models.Status) Check {
	c := v.checkAction(module, action, role)
	if c.Allowed && !v.e.table.IsLegalTransition(module, from, to) {
		c = Check{Reason: ReasonIllegalTransition, Source: c.Source}
	}
	v.e.record(KindTransition, string(module), string(c.Reason))
	return c
}

// ResolveEscalation returns the roles to notify for severity.
func (v *View) ResolveEscalation(module models.ModuleKey, severity models.Severity) []models.Role {
	cfg, _ := v.snap.Module(module)
	roles := escalation.Resolve(module, severity, cfg.SeverityEscalation)
	v.e.record(KindEscalation, string(module), string(severity))
	return roles
}

// Recommend returns the primary escalation role and every eligible role.
func (v *View) Recommend(module models.ModuleKey, severity models.Severity) (models.Role, []models.Role) {
	cfg, _ := v.snap.Module(module)
	primary, eligible := escalation.Recommend(module, severity, cfg.SeverityEscalation)
	v.e.record(KindEscalation, string(module), string(severity))
	return primary, eligible
}

// ApprovalFlowFor returns the approval flow a record of severity follows: the
// high-risk flow from high severity upward when the tenant defines one, the
// regular flow otherwise.
func (v *View) ApprovalFlowFor(module models.ModuleKey, severity models.Severity) models.ApprovalFlow {
	cfg, _ := v.snap.Module(module)
	if severity.AtLeast(models.SeverityHigh) && cfg.HighRiskApprovalFlow.Kind() == models.FlowSequential {
		return cfg.HighRiskApprovalFlow
	}
	return cfg.ApprovalFlow
}

// NextApprovalStep returns the pending step after lastCompleted.
func (v *View) NextApprovalStep(module models.ModuleKey, severity models.Severity, lastCompleted int) (models.WorkflowStep, bool) {
	return workflow.NextStep(v.ApprovalFlowFor(module, severity), lastCompleted)
}

// CanApprove reports whether role owns the pending approval step.
func (v *View) CanApprove(module models.ModuleKey, severity models.Severity, role models.Role, lastCompleted int) bool {
	return workflow.CanAct(v.ApprovalFlowFor(module, severity), role, lastCompleted)
}

// CanClose reports whether role is in the module's closure set.
func (v *View) CanClose(module models.ModuleKey, role models.Role) bool {
	cfg, _ := v.snap.Module(module)
	return workflow.CanAct(cfg.ClosureFlow, role, 0)
}

// StopWorkRoles returns the roles allowed to halt active work on module.
func (v *View) StopWorkRoles(module models.ModuleKey) []models.StopWorkRole {
	cfg, _ := v.snap.Module(module)
	return cfg.StopWorkRoles
}

// Overdue reports whether a step assigned at assignedAt has passed its limit.
func (v *View) Overdue(assignedAt time.Time, timeLimitHours int) (bool, float64) {
	overdue, hours := sla.Overdue(assignedAt, timeLimitHours, v.e.now())
	v.e.record(KindSLA, "", slaOutcome(overdue))
	return overdue, hours
}

// Reminder returns the reminder threshold a step has crossed.
func (v *View) Reminder(assignedAt time.Time, timeLimitHours int) sla.Reminder {
	return sla.ReminderThreshold(assignedAt, timeLimitHours, v.e.now())
}

// SLA returns the full deadline status of step.
func (v *View) SLA(step sla.AssignedStep) sla.Status {
	st := sla.Check(step, v.e.now())
	v.e.record(KindSLA, "", slaOutcome(st.Overdue))
	return st
}

// Evaluate runs the access gate. A tenant context without a module source
// uses the pinned snapshot.
func (v *View) Evaluate(actor gate.Actor, tenant gate.TenantContext, resource gate.Resource) gate.Decision {
	if tenant.Modules == nil && tenant.Loaded {
		tenant.Modules = v.snap
	}
	if tenant.ID == "" {
		tenant.ID = v.snap.TenantID()
	}
	d := v.e.gate.Evaluate(actor, tenant, resource)
	v.e.record(KindAccess, string(resource.RequiredModule), string(d.State))
	return d
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "denied"
}

func slaOutcome(overdue bool) string {
	if overdue {
		return "overdue"
	}
	return "on_time"
}
