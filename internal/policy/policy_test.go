package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/p-blackswan/safety-engine/internal/models"
	"github.com/p-blackswan/safety-engine/internal/policy"
)

type roleMap map[models.Action][]models.Role

func (r roleMap) RolesFor(a models.Action) ([]models.Role, bool) {
	roles, ok := r[a]
	return roles, ok
}

func TestCanPerform_DefaultTable(t *testing.T) {
	assert.True(t, policy.CanPerform(models.ModulePTW, models.ActionSubmit, models.RoleWorker, nil))
	assert.True(t, policy.CanPerform(models.ModuleIMS, models.ActionInvestigate, models.RoleSafetyIncharge, nil))
	assert.False(t, policy.CanPerform(models.ModulePTW, models.ActionApprove, models.RoleWorker, nil))
	assert.False(t, policy.CanPerform(models.ModuleIMS, models.ActionClose, models.RoleContractor, nil))
}

func TestCanPerform_TenantListWins(t *testing.T) {
	cfg := roleMap{models.ActionApprove: {models.RoleWorker}}

	assert.True(t, policy.CanPerform(models.ModulePTW, models.ActionApprove, models.RoleWorker, cfg))
	assert.False(t, policy.CanPerform(models.ModulePTW, models.ActionApprove, models.RolePlantHead, cfg),
		"tenant list replaces the default, it does not extend it")

	// Actions the tenant did not list fall through to the default table.
	assert.True(t, policy.CanPerform(models.ModulePTW, models.ActionClose, models.RolePlantHead, cfg))
}

func TestCanPerform_DenyByDefault(t *testing.T) {
	cases := []struct {
		name   string
		module models.ModuleKey
		action models.Action
		role   models.Role
	}{
		{"unknown action", models.ModulePTW, "teleport", models.RolePlantHead},
		{"unknown role", models.ModulePTW, models.ActionApprove, "janitor"},
		{"unknown module", "payroll", models.ActionApprove, models.RolePlantHead},
		{"empty role", models.ModulePTW, models.ActionApprove, ""},
		{"empty action", models.ModulePTW, "", models.RolePlantHead},
		{"worker stopping work", models.ModulePTW, models.ActionStopWork, models.RoleWorker},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, policy.CanPerform(tc.module, tc.action, tc.role, nil))
			assert.False(t, policy.CanPerform(tc.module, tc.action, tc.role, roleMap{}))
		})
	}
}

func TestEvaluate_Source(t *testing.T) {
	a := policy.Default()
	cfg := roleMap{models.ActionStopWork: {models.RoleWorker}}

	d := a.Evaluate(models.ModulePTW, models.ActionStopWork, models.RoleWorker, cfg)
	assert.Equal(t, policy.Decision{Allowed: true, Source: policy.SourceTenant}, d)

	d = a.Evaluate(models.ModulePTW, models.ActionSubmit, models.RoleAuditor, cfg)
	assert.Equal(t, policy.Decision{Allowed: false, Source: policy.SourceDefault}, d)

	d = a.Evaluate(models.ModulePTW, "teleport", models.RoleAuditor, cfg)
	assert.Equal(t, policy.SourceNone, d.Source)
}

func TestAllowedActions(t *testing.T) {
	got := policy.Default().AllowedActions(models.ModuleIMS, models.RoleAuditor, nil)
	assert.Equal(t, []models.Action{models.ActionReview}, got)

	got = policy.Default().AllowedActions(models.ModuleIMS, "janitor", nil)
	assert.Empty(t, got)
}

func TestNewAuthorizer_CopiesTable(t *testing.T) {
	table := map[models.Action][]models.Role{models.ActionClose: {models.RoleHOD}}
	a := policy.NewAuthorizer(table)
	table[models.ActionClose][0] = models.RoleWorker

	assert.True(t, a.CanPerform(models.ModuleBBS, models.ActionClose, models.RoleHOD, nil))
	assert.False(t, a.CanPerform(models.ModuleBBS, models.ActionClose, models.RoleWorker, nil))
}
