package tenantconfig

import (
	"github.com/p-blackswan/safety-engine/internal/escalation"
	"github.com/p-blackswan/safety-engine/internal/models"
)

func step(i int, role models.Role, label string, hours int) models.WorkflowStep {
	return models.WorkflowStep{Index: i, Role: role, Label: label, TimeLimitHours: hours}
}

func steps(s ...models.WorkflowStep) models.ApprovalFlow {
	return models.ApprovalFlow{Steps: s}
}

func anyOf(label string, roles ...models.Role) models.ApprovalFlow {
	return models.ApprovalFlow{AnyOf: roles, Label: label}
}

// Defaults returns the built-in configuration for module. Every module is
// enabled by default. An unknown module yields a disabled, empty config.
func Defaults(module models.ModuleKey) EffectiveConfig {
	cfg := EffectiveConfig{
		Module:             module,
		Enabled:            module.Valid(),
		SeverityEscalation: escalation.DefaultMatrix(module),
	}
	switch module {
	case models.ModulePTW:
		cfg.ApprovalFlow = steps(
			step(1, models.RoleHOD, "Area HOD Approval", 24),
			step(2, models.RoleSafetyIncharge, "Safety Clearance", 24),
		)
		cfg.HighRiskApprovalFlow = steps(
			step(1, models.RoleHOD, "Area HOD Approval", 12),
			step(2, models.RoleSafetyIncharge, "Safety Clearance", 12),
			step(3, models.RolePlantHead, "Plant Head Authorization", 24),
		)
		cfg.ClosureFlow = anyOf("Permit Closure", models.RoleSafetyIncharge, models.RoleHOD)
		cfg.StopWorkRoles = []models.StopWorkRole{
			{Role: models.RoleSafetyIncharge, Label: "Safety In-charge"},
			{Role: models.RoleHOD, Label: "HOD"},
			{Role: models.RolePlantHead, Label: "Plant Head"},
		}
		cfg.Checklists = map[string][]string{
			"hot_work": {
				"Fire extinguisher available at site",
				"Combustibles removed within 11 m",
				"Fire watch assigned",
				"Gas test completed",
			},
			"confined_space": {
				"Atmosphere tested for O2 and toxic gases",
				"Standby attendant posted",
				"Rescue equipment in place",
				"Ventilation arranged",
			},
			"work_at_height": {
				"Full body harness inspected",
				"Anchor point identified",
				"Scaffold tagged safe",
			},
			"electrical": {
				"Isolation and lockout applied",
				"Absence of voltage verified",
				"Earthing connected",
			},
		}
	case models.ModuleIMS:
		cfg.ApprovalFlow = steps(
			step(1, models.RoleSafetyIncharge, "Investigation Review", 72),
			step(2, models.RolePlantHead, "Closure Approval", 48),
		)
		cfg.ClosureFlow = anyOf("Incident Closure", models.RoleSafetyIncharge, models.RolePlantHead)
		cfg.Checklists = map[string][]string{
			"investigation": {
				"Scene secured and photographed",
				"Witness statements recorded",
				"Root cause identified",
				"Corrective actions assigned",
			},
		}
	case models.ModuleHAZOP:
		cfg.ApprovalFlow = steps(
			step(1, models.RoleSafetyIncharge, "Technical Review", 0),
			step(2, models.RolePlantHead, "Study Approval", 0),
		)
		cfg.ClosureFlow = anyOf("Study Closure", models.RolePlantHead)
		cfg.Checklists = map[string][]string{
			"guidewords": {"No", "More", "Less", "As well as", "Part of", "Reverse", "Other than"},
		}
	case models.ModuleHIRA:
		cfg.ApprovalFlow = steps(
			step(1, models.RoleHOD, "Department Review", 0),
			step(2, models.RoleSafetyIncharge, "Safety Approval", 0),
		)
		cfg.ClosureFlow = anyOf("Assessment Closure", models.RoleSafetyIncharge)
		cfg.Checklists = map[string][]string{
			"hazard_categories": {"Physical", "Chemical", "Biological", "Ergonomic", "Psychosocial"},
		}
	case models.ModuleBBS:
		cfg.ApprovalFlow = steps(
			step(1, models.RoleSafetyIncharge, "Observation Review", 48),
		)
		cfg.ClosureFlow = anyOf("Observation Closure", models.RoleSafetyIncharge, models.RoleHOD)
		cfg.Checklists = map[string][]string{
			"observation_categories": {"PPE", "Housekeeping", "Tools and Equipment", "Body Position", "Procedures"},
		}
	case models.ModuleAudit:
		cfg.ApprovalFlow = steps(
			step(1, models.RoleAuditor, "Lead Auditor Review", 0),
			step(2, models.RolePlantHead, "Management Sign-off", 0),
		)
		cfg.ClosureFlow = anyOf("Audit Closure", models.RoleAuditor, models.RoleSafetyIncharge)
		cfg.Checklists = map[string][]string{
			"iso45001": {
				"Hazard identification process documented",
				"Legal register current",
				"Incident reporting procedure followed",
				"Emergency drills conducted",
			},
		}
	}
	return cfg
}

// AllDefaults returns the built-in configuration of every known module.
func AllDefaults() map[models.ModuleKey]EffectiveConfig {
	out := make(map[models.ModuleKey]EffectiveConfig, len(models.Modules))
	for _, m := range models.Modules {
		out[m] = Defaults(m)
	}
	return out
}
