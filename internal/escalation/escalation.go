// Package escalation picks investigation and approval owners from a
// severity-to-roles matrix. The same routing serves IMS investigation
// assignment and PTW high-risk approval.
package escalation

import (
	"fmt"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// DefaultMatrix returns the built-in matrix for module. Unknown modules get nil.
func DefaultMatrix(module models.ModuleKey) models.EscalationMatrix {
	switch module {
	case models.ModuleIMS:
		return models.EscalationMatrix{
			models.SeverityLow:      {models.RoleSafetyIncharge},
			models.SeverityMedium:   {models.RoleSafetyIncharge, models.RoleHOD},
			models.SeverityHigh:     {models.RoleSafetyIncharge, models.RolePlantHead},
			models.SeverityCritical: {models.RoleSafetyIncharge, models.RolePlantHead, models.RoleCompanyOwner},
		}
	case models.ModulePTW:
		return models.EscalationMatrix{
			models.SeverityLow:      {models.RoleHOD},
			models.SeverityMedium:   {models.RoleHOD, models.RoleSafetyIncharge},
			models.SeverityHigh:     {models.RoleSafetyIncharge, models.RolePlantHead},
			models.SeverityCritical: {models.RolePlantHead, models.RoleSafetyIncharge, models.RoleCompanyOwner},
		}
	case models.ModuleHAZOP, models.ModuleHIRA, models.ModuleBBS, models.ModuleAudit:
		return models.EscalationMatrix{
			models.SeverityLow:  {models.RoleSafetyIncharge},
			models.SeverityHigh: {models.RoleSafetyIncharge, models.RolePlantHead},
		}
	default:
		return nil
	}
}

// Resolve returns the ordered roles for severity. A severity without an entry
// takes the nearest lower defined one; unknown severities are treated as the
// lowest. When matrix has nothing at or below severity the module default is
// consulted the same way. The result is a copy.
func Resolve(module models.ModuleKey, severity models.Severity, matrix models.EscalationMatrix) []models.Role {
	rank := severity.Rank()
	if rank < 0 {
		rank = 0
	}
	if roles := lookupDown(matrix, rank); roles != nil {
		return roles
	}
	return lookupDown(DefaultMatrix(module), rank)
}

func lookupDown(matrix models.EscalationMatrix, rank int) []models.Role {
	for i := rank; i >= 0; i-- {
		if roles := matrix[models.Severities[i]]; len(roles) > 0 {
			return append([]models.Role(nil), roles...)
		}
	}
	return nil
}

// Recommend splits the resolved list into the recommended assignee and the
// full eligible filter.
func Recommend(module models.ModuleKey, severity models.Severity, matrix models.EscalationMatrix) (models.Role, []models.Role) {
	roles := Resolve(module, severity, matrix)
	if len(roles) == 0 {
		return "", nil
	}
	return roles[0], roles
}

// Validate checks that the lowest severity is defined, keys are known
// severities, and no entry is empty or holds a malformed role.
func Validate(matrix models.EscalationMatrix) error {
	if len(matrix[models.SeverityLow]) == 0 {
		return fmt.Errorf("severity %q must be defined", models.SeverityLow)
	}
	for sev, roles := range matrix {
		if !sev.Valid() {
			return fmt.Errorf("unknown severity %q", sev)
		}
		if len(roles) == 0 {
			return fmt.Errorf("severity %q has no roles", sev)
		}
		for _, r := range roles {
			if !r.Valid() {
				return fmt.Errorf("severity %q: invalid role %q", sev, r)
			}
		}
	}
	return nil
}
