// Package policy decides which roles may invoke which actions on a module.
// A tenant's explicit role list wins; otherwise the built-in table applies.
// Anything not granted by either is denied.
package policy

import (
	"sort"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// RoleLister exposes a tenant's explicit role list for an action, if it has one.
type RoleLister interface {
	RolesFor(action models.Action) ([]models.Role, bool)
}

// Source records which rule produced a decision.
type Source string

const (
	SourceTenant  Source = "tenant"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Source  Source
}

// Authorizer evaluates actions against tenant lists and a default table.
// It holds no mutable state.
type Authorizer struct {
	defaults map[models.Action][]models.Role
}

// DefaultPermissions returns the built-in action table.
func DefaultPermissions() map[models.Action][]models.Role {
	return map[models.Action][]models.Role{
		models.ActionSubmit:      {models.RoleWorker, models.RoleContractor, models.RoleHOD, models.RoleSafetyIncharge, models.RolePlantHead},
		models.ActionApprove:     {models.RoleHOD, models.RoleSafetyIncharge, models.RolePlantHead, models.RoleCompanyOwner},
		models.ActionReject:      {models.RoleHOD, models.RoleSafetyIncharge, models.RolePlantHead, models.RoleCompanyOwner},
		models.ActionAssign:      {models.RoleHOD, models.RoleSafetyIncharge, models.RolePlantHead},
		models.ActionClose:       {models.RoleSafetyIncharge, models.RolePlantHead, models.RoleCompanyOwner},
		models.ActionReview:      {models.RoleHOD, models.RoleSafetyIncharge, models.RolePlantHead, models.RoleCompanyOwner, models.RoleAuditor},
		models.ActionInvestigate: {models.RoleHOD, models.RoleSafetyIncharge},
		models.ActionComplete:    {models.RoleWorker, models.RoleContractor, models.RoleHOD, models.RoleSafetyIncharge},
		models.ActionStopWork:    {models.RoleSafetyIncharge, models.RoleHOD, models.RolePlantHead},
	}
}

// NewAuthorizer builds an authorizer over the given default table. A nil
// table means the built-in one.
func NewAuthorizer(defaults map[models.Action][]models.Role) *Authorizer {
	if defaults == nil {
		defaults = DefaultPermissions()
	}
	copied := make(map[models.Action][]models.Role, len(defaults))
	for k, v := range defaults {
		copied[k] = append([]models.Role(nil), v...)
	}
	return &Authorizer{defaults: copied}
}

var defaultAuthorizer = NewAuthorizer(nil)

// Default returns the authorizer over the built-in table.
func Default() *Authorizer { return defaultAuthorizer }

// Evaluate resolves role against the tenant list first, then the default
// table.
func (a *Authorizer) Evaluate(module models.ModuleKey, action models.Action, role models.Role, cfg RoleLister) Decision {
	if !module.Valid() || action == "" || role == "" {
		return Decision{Source: SourceNone}
	}
	if cfg != nil {
		if roles, ok := cfg.RolesFor(action); ok {
			return Decision{Allowed: models.ContainsRole(roles, role), Source: SourceTenant}
		}
	}
	if roles, ok := a.defaults[action]; ok {
		return Decision{Allowed: models.ContainsRole(roles, role), Source: SourceDefault}
	}
	return Decision{Source: SourceNone}
}

// CanPerform reports whether role may invoke action on module.
func (a *Authorizer) CanPerform(module models.ModuleKey, action models.Action, role models.Role, cfg RoleLister) bool {
	return a.Evaluate(module, action, role, cfg).Allowed
}

// AllowedActions lists every known action role may invoke on module, sorted.
func (a *Authorizer) AllowedActions(module models.ModuleKey, role models.Role, cfg RoleLister) []models.Action {
	var out []models.Action
	for _, action := range models.KnownActions {
		if a.CanPerform(module, action, role, cfg) {
			out = append(out, action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CanPerform checks role against cfg and the built-in table.
func CanPerform(module models.ModuleKey, action models.Action, role models.Role, cfg RoleLister) bool {
	return defaultAuthorizer.CanPerform(module, action, role, cfg)
}
