package models

import "regexp"

// Role is an actor category. The set is closed per deployment but tenants may
// introduce their own role names in configuration.
type Role string

const (
	RoleWorker         Role = "worker"
	RoleContractor     Role = "contractor"
	RoleHOD            Role = "hod"
	RoleSafetyIncharge Role = "safety_incharge"
	RolePlantHead      Role = "plant_head"
	RoleCompanyOwner   Role = "company_owner"
	RolePlatformOwner  Role = "platform_owner" // platform super-role
	RoleAuditor        Role = "auditor"
)

// KnownRoles lists the built-in roles.
var KnownRoles = []Role{
	RoleWorker, RoleContractor, RoleHOD, RoleSafetyIncharge,
	RolePlantHead, RoleCompanyOwner, RolePlatformOwner, RoleAuditor,
}

var roleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Valid reports whether r is a syntactically valid role name.
func (r Role) Valid() bool {
	return roleNamePattern.MatchString(string(r))
}

// IsKnown reports whether r is one of the built-in roles.
func (r Role) IsKnown() bool {
	for _, k := range KnownRoles {
		if k == r {
			return true
		}
	}
	return false
}

// ContainsRole reports whether roles contains r.
func ContainsRole(roles []Role, r Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

// Action is an operation an actor can invoke on a module record.
type Action string

const (
	ActionSubmit      Action = "submit"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionAssign      Action = "assign"
	ActionClose       Action = "close"
	ActionReview      Action = "review"
	ActionInvestigate Action = "investigate"
	ActionComplete    Action = "complete"
	ActionStopWork    Action = "stop_work"
)

// KnownActions lists every action the engine understands.
var KnownActions = []Action{
	ActionSubmit, ActionApprove, ActionReject, ActionAssign, ActionClose,
	ActionReview, ActionInvestigate, ActionComplete, ActionStopWork,
}
