package tenantconfig_test

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/safety-engine/internal/escalation"
	"github.com/p-blackswan/safety-engine/internal/models"
	"github.com/p-blackswan/safety-engine/internal/policy"
	"github.com/p-blackswan/safety-engine/internal/tenantconfig"
)

func boolPtr(b bool) *bool { return &b }

// overrideFromMask builds an override whose present fields are chosen by the
// bits of mask.
func overrideFromMask(mask uint8) tenantconfig.TenantModuleConfig {
	var o tenantconfig.TenantModuleConfig
	if mask&1 != 0 {
		o.Enabled = boolPtr(false)
	}
	if mask&2 != 0 {
		o.ApprovalFlow = &models.ApprovalFlow{Steps: []models.WorkflowStep{
			{Index: 1, Role: models.RolePlantHead, Label: "Only step"},
		}}
	}
	if mask&4 != 0 {
		o.HighRiskApprovalFlow = &models.ApprovalFlow{}
	}
	if mask&8 != 0 {
		o.ClosureFlow = &models.ApprovalFlow{AnyOf: []models.Role{models.RoleCompanyOwner}}
	}
	if mask&16 != 0 {
		o.StopWorkRoles = []models.StopWorkRole{}
	}
	if mask&32 != 0 {
		o.SeverityEscalation = models.EscalationMatrix{models.SeverityLow: {models.RoleHOD}}
	}
	if mask&64 != 0 {
		o.Checklists = map[string][]string{"custom": {"Check one"}}
	}
	if mask&128 != 0 {
		o.Permissions = map[models.Action][]models.Role{models.ActionSubmit: {models.RoleWorker}}
	}
	return o
}

func TestMerge_EmptyOverrideIsIdentity(t *testing.T) {
	for _, m := range models.Modules {
		def := tenantconfig.Defaults(m)
		assert.Equal(t, def, tenantconfig.Merge(def, tenantconfig.TenantModuleConfig{}), m)
	}
}

func TestMerge_ReplacesWholesale(t *testing.T) {
	def := tenantconfig.Defaults(models.ModulePTW)
	o := tenantconfig.TenantModuleConfig{
		ApprovalFlow: &models.ApprovalFlow{Steps: []models.WorkflowStep{
			{Index: 1, Role: models.RoleSafetyIncharge, Label: "Safety only"},
		}},
		StopWorkRoles: []models.StopWorkRole{},
	}

	got := tenantconfig.Merge(def, o)
	require.Len(t, got.ApprovalFlow.Steps, 1, "list replaced, not appended")
	assert.Equal(t, models.RoleSafetyIncharge, got.ApprovalFlow.Steps[0].Role)
	assert.NotNil(t, got.StopWorkRoles)
	assert.Empty(t, got.StopWorkRoles, "explicit empty list replaces the default")
	assert.Equal(t, def.ClosureFlow, got.ClosureFlow, "absent field inherits")
	assert.Equal(t, def.SeverityEscalation, got.SeverityEscalation)
	assert.True(t, got.Enabled)
}

func TestMerge_DoesNotAlias(t *testing.T) {
	def := tenantconfig.Defaults(models.ModuleIMS)
	matrix := models.EscalationMatrix{models.SeverityLow: {models.RoleHOD}}
	got := tenantconfig.Merge(def, tenantconfig.TenantModuleConfig{SeverityEscalation: matrix})

	matrix[models.SeverityLow][0] = models.RoleWorker
	got.ApprovalFlow.Steps[0].Role = models.RoleWorker

	assert.Equal(t, models.RoleHOD, got.SeverityEscalation[models.SeverityLow][0])
	assert.Equal(t, models.RoleSafetyIncharge, def.ApprovalFlow.Steps[0].Role)
}

func TestMerge_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	pick := gen.IntRange(0, len(models.Modules)-1)

	properties.Property("merge is idempotent", prop.ForAll(
		func(mask uint8, mi int) bool {
			def := tenantconfig.Defaults(models.Modules[mi])
			o := overrideFromMask(mask)
			once := tenantconfig.Merge(def, o)
			twice := tenantconfig.Merge(once, o)
			return reflect.DeepEqual(once, twice)
		},
		gen.UInt8(), pick,
	))

	properties.Property("absent fields inherit the default", prop.ForAll(
		func(mask uint8, mi int) bool {
			def := tenantconfig.Defaults(models.Modules[mi])
			got := tenantconfig.Merge(def, overrideFromMask(mask))
			if mask&2 == 0 && !reflect.DeepEqual(got.ApprovalFlow, def.ApprovalFlow) {
				return false
			}
			if mask&8 == 0 && !reflect.DeepEqual(got.ClosureFlow, def.ClosureFlow) {
				return false
			}
			if mask&32 == 0 && !reflect.DeepEqual(got.SeverityEscalation, def.SeverityEscalation) {
				return false
			}
			if mask&64 == 0 && !reflect.DeepEqual(got.Checklists, def.Checklists) {
				return false
			}
			return got.Enabled == (mask&1 == 0)
		},
		gen.UInt8(), pick,
	))

	properties.Property("merged config passes validation", prop.ForAll(
		func(mask uint8, mi int) bool {
			m := models.Modules[mi]
			return tenantconfig.Validate(m, overrideFromMask(mask)) == nil
		},
		gen.UInt8(), pick,
	))

	properties.TestingRun(t)
}

func TestDefaults_AreValid(t *testing.T) {
	for _, m := range models.Modules {
		def := tenantconfig.Defaults(m)
		assert.True(t, def.Enabled, m)
		assert.Equal(t, m, def.Module)
		require.NoError(t, escalation.Validate(def.SeverityEscalation), m)
		assert.NotEmpty(t, def.ApprovalFlow.Steps, m)
		assert.Equal(t, models.FlowAnyOf, def.ClosureFlow.Kind(), m)
		assert.NotEmpty(t, def.Checklists, m)

		o := tenantconfig.TenantModuleConfig{
			ApprovalFlow:       &def.ApprovalFlow,
			ClosureFlow:        &def.ClosureFlow,
			SeverityEscalation: def.SeverityEscalation,
			Checklists:         def.Checklists,
		}
		assert.NoError(t, tenantconfig.Validate(m, o), m)
	}

	ptw := tenantconfig.Defaults(models.ModulePTW)
	assert.Len(t, ptw.HighRiskApprovalFlow.Steps, 3)
	assert.Len(t, ptw.StopWorkRoles, 3)

	unknown := tenantconfig.Defaults("payroll")
	assert.False(t, unknown.Enabled)
}

func TestTenantModuleConfig_RolesFor(t *testing.T) {
	var none tenantconfig.TenantModuleConfig
	for _, action := range models.KnownActions {
		_, ok := none.RolesFor(action)
		assert.False(t, ok, "empty override defines nothing for %s", action)
	}

	highRisk := tenantconfig.Defaults(models.ModulePTW).HighRiskApprovalFlow
	flows := tenantconfig.TenantModuleConfig{
		ApprovalFlow: &models.ApprovalFlow{Steps: []models.WorkflowStep{
			{Index: 1, Role: models.RoleHOD, Label: "HOD"},
		}},
		HighRiskApprovalFlow: &highRisk,
		ClosureFlow:          &models.ApprovalFlow{AnyOf: []models.Role{models.RoleCompanyOwner}},
	}
	roles, ok := flows.RolesFor(models.ActionApprove)
	require.True(t, ok)
	assert.Equal(t, []models.Role{models.RoleHOD, models.RoleSafetyIncharge, models.RolePlantHead}, roles,
		"union of the flows the override sets")

	roles, ok = flows.RolesFor(models.ActionReject)
	require.True(t, ok)
	assert.Len(t, roles, 3)

	roles, ok = flows.RolesFor(models.ActionClose)
	require.True(t, ok)
	assert.Equal(t, []models.Role{models.RoleCompanyOwner}, roles)

	_, ok = flows.RolesFor(models.ActionStopWork)
	assert.False(t, ok, "stopWorkRoles not set")
	_, ok = flows.RolesFor(models.ActionSubmit)
	assert.False(t, ok, "submit falls through to the default table")

	empty := tenantconfig.TenantModuleConfig{StopWorkRoles: []models.StopWorkRole{}}
	roles, ok = empty.RolesFor(models.ActionStopWork)
	require.True(t, ok)
	assert.Empty(t, roles, "explicitly empty list grants nobody")

	explicit := flows
	explicit.Permissions = map[models.Action][]models.Role{models.ActionApprove: {models.RoleCompanyOwner}}
	roles, ok = explicit.RolesFor(models.ActionApprove)
	require.True(t, ok)
	assert.Equal(t, []models.Role{models.RoleCompanyOwner}, roles, "explicit permissions win")
}

func TestTenantModuleConfig_SatisfiesRoleLister(t *testing.T) {
	a := policy.Default()

	var none policy.RoleLister = tenantconfig.TenantModuleConfig{}
	d := a.Evaluate(models.ModulePTW, models.ActionClose, models.RoleCompanyOwner, none)
	assert.True(t, d.Allowed)
	assert.Equal(t, policy.SourceDefault, d.Source)

	var lister policy.RoleLister = tenantconfig.TenantModuleConfig{
		ClosureFlow: &models.ApprovalFlow{AnyOf: []models.Role{models.RoleHOD}},
	}
	d = a.Evaluate(models.ModulePTW, models.ActionClose, models.RoleCompanyOwner, lister)
	assert.False(t, d.Allowed, "tenant list replaces the default table")
	assert.Equal(t, policy.SourceTenant, d.Source)
	assert.True(t, a.CanPerform(models.ModulePTW, models.ActionSubmit, models.RoleWorker, lister))
}

func TestTenantModuleConfig_Clone(t *testing.T) {
	o := tenantconfig.TenantModuleConfig{
		Enabled:     boolPtr(true),
		ClosureFlow: &models.ApprovalFlow{AnyOf: []models.Role{models.RoleHOD}},
		Permissions: map[models.Action][]models.Role{models.ActionSubmit: {models.RoleWorker}},
	}
	c := o.Clone()
	*c.Enabled = false
	c.ClosureFlow.AnyOf[0] = models.RoleAuditor
	c.Permissions[models.ActionSubmit][0] = models.RoleAuditor

	assert.True(t, *o.Enabled)
	assert.Equal(t, models.RoleHOD, o.ClosureFlow.AnyOf[0])
	assert.Equal(t, models.RoleWorker, o.Permissions[models.ActionSubmit][0])
}
