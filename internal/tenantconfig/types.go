// Package tenantconfig resolves each tenant's module configuration: built-in
// defaults merged field by field with a validated tenant override, published
// as immutable versioned snapshots.
package tenantconfig

import (
	"encoding/json"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// TenantModuleConfig is a tenant's override for one module. A nil field is
// absent and inherits the default; a present field replaces the default
// wholesale, including an explicitly empty list.
type TenantModuleConfig struct {
	Enabled              *bool                           `json:"enabled,omitempty"`
	ApprovalFlow         *models.ApprovalFlow            `json:"approvalFlow,omitempty"`
	HighRiskApprovalFlow *models.ApprovalFlow            `json:"highRiskApprovalFlow,omitempty"`
	ClosureFlow          *models.ApprovalFlow            `json:"closureFlow,omitempty"`
	StopWorkRoles        []models.StopWorkRole           `json:"stopWorkRoles,omitempty"`
	SeverityEscalation   models.EscalationMatrix         `json:"severityEscalation,omitempty"`
	Checklists           map[string][]string             `json:"checklists,omitempty"`
	Permissions          map[models.Action][]models.Role `json:"permissions,omitempty"`
}

// MarshalJSON writes only the present fields, keeping explicitly empty lists
// so that the document round-trips with the same meaning.
func (o TenantModuleConfig) MarshalJSON() ([]byte, error) {
	type doc struct {
		Enabled              *bool                            `json:"enabled,omitempty"`
		ApprovalFlow         *models.ApprovalFlow             `json:"approvalFlow,omitempty"`
		HighRiskApprovalFlow *models.ApprovalFlow             `json:"highRiskApprovalFlow,omitempty"`
		ClosureFlow          *models.ApprovalFlow             `json:"closureFlow,omitempty"`
		StopWorkRoles        *[]models.StopWorkRole           `json:"stopWorkRoles,omitempty"`
		SeverityEscalation   *models.EscalationMatrix         `json:"severityEscalation,omitempty"`
		Checklists           *map[string][]string             `json:"checklists,omitempty"`
		Permissions          *map[models.Action][]models.Role `json:"permissions,omitempty"`
	}
	d := doc{
		Enabled:              o.Enabled,
		ApprovalFlow:         o.ApprovalFlow,
		HighRiskApprovalFlow: o.HighRiskApprovalFlow,
		ClosureFlow:          o.ClosureFlow,
	}
	if o.StopWorkRoles != nil {
		d.StopWorkRoles = &o.StopWorkRoles
	}
	if o.SeverityEscalation != nil {
		d.SeverityEscalation = &o.SeverityEscalation
	}
	if o.Checklists != nil {
		d.Checklists = &o.Checklists
	}
	if o.Permissions != nil {
		d.Permissions = &o.Permissions
	}
	return json.Marshal(d)
}

// RolesFor returns the role list the override itself sets for action. An
// entry in Permissions wins. Otherwise approve and reject follow whichever
// approval flows are present, close follows ClosureFlow and stop_work follows
// StopWorkRoles. An action the override says nothing about reports false so
// the caller can fall back to the built-in table. A present but empty list
// grants nobody.
func (o TenantModuleConfig) RolesFor(action models.Action) ([]models.Role, bool) {
	if roles, ok := o.Permissions[action]; ok {
		return append([]models.Role{}, roles...), true
	}
	switch action {
	case models.ActionApprove, models.ActionReject:
		if o.ApprovalFlow == nil && o.HighRiskApprovalFlow == nil {
			return nil, false
		}
		roles := []models.Role{}
		for _, f := range []*models.ApprovalFlow{o.ApprovalFlow, o.HighRiskApprovalFlow} {
			if f == nil {
				continue
			}
			for _, r := range f.Roles() {
				if !models.ContainsRole(roles, r) {
					roles = append(roles, r)
				}
			}
		}
		return roles, true
	case models.ActionClose:
		if o.ClosureFlow == nil {
			return nil, false
		}
		return append([]models.Role{}, o.ClosureFlow.Roles()...), true
	case models.ActionStopWork:
		if o.StopWorkRoles == nil {
			return nil, false
		}
		roles := make([]models.Role, 0, len(o.StopWorkRoles))
		for _, s := range o.StopWorkRoles {
			roles = append(roles, s.Role)
		}
		return roles, true
	}
	return nil, false
}

// Clone returns a deep copy of o.
func (o TenantModuleConfig) Clone() TenantModuleConfig {
	out := o
	if o.Enabled != nil {
		v := *o.Enabled
		out.Enabled = &v
	}
	out.ApprovalFlow = cloneFlow(o.ApprovalFlow)
	out.HighRiskApprovalFlow = cloneFlow(o.HighRiskApprovalFlow)
	out.ClosureFlow = cloneFlow(o.ClosureFlow)
	out.StopWorkRoles = cloneStopWork(o.StopWorkRoles)
	if o.SeverityEscalation != nil {
		out.SeverityEscalation = o.SeverityEscalation.Clone()
	}
	out.Checklists = cloneChecklists(o.Checklists)
	out.Permissions = clonePermissions(o.Permissions)
	return out
}

func cloneFlow(f *models.ApprovalFlow) *models.ApprovalFlow {
	if f == nil {
		return nil
	}
	c := f.Clone()
	return &c
}

// EffectiveConfig is the merged configuration of one module for one tenant.
type EffectiveConfig struct {
	Module               models.ModuleKey                `json:"module"`
	Enabled              bool                            `json:"enabled"`
	ApprovalFlow         models.ApprovalFlow             `json:"approvalFlow"`
	HighRiskApprovalFlow models.ApprovalFlow             `json:"highRiskApprovalFlow"`
	ClosureFlow          models.ApprovalFlow             `json:"closureFlow"`
	StopWorkRoles        []models.StopWorkRole           `json:"stopWorkRoles"`
	SeverityEscalation   models.EscalationMatrix         `json:"severityEscalation"`
	Checklists           map[string][]string             `json:"checklists"`
	Permissions          map[models.Action][]models.Role `json:"permissions,omitempty"`
}

// Clone returns a deep copy of c.
func (c EffectiveConfig) Clone() EffectiveConfig {
	out := c
	out.ApprovalFlow = c.ApprovalFlow.Clone()
	out.HighRiskApprovalFlow = c.HighRiskApprovalFlow.Clone()
	out.ClosureFlow = c.ClosureFlow.Clone()
	out.StopWorkRoles = cloneStopWork(c.StopWorkRoles)
	out.SeverityEscalation = c.SeverityEscalation.Clone()
	out.Checklists = cloneChecklists(c.Checklists)
	out.Permissions = clonePermissions(c.Permissions)
	return out
}

func cloneStopWork(in []models.StopWorkRole) []models.StopWorkRole {
	if in == nil {
		return nil
	}
	return append([]models.StopWorkRole{}, in...)
}

func cloneChecklists(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string{}, v...)
	}
	return out
}

func clonePermissions(in map[models.Action][]models.Role) map[models.Action][]models.Role {
	if in == nil {
		return nil
	}
	out := make(map[models.Action][]models.Role, len(in))
	for k, v := range in {
		out[k] = append([]models.Role{}, v...)
	}
	return out
}
