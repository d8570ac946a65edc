package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/p-blackswan/safety-engine/internal/gate"
	"github.com/p-blackswan/safety-engine/internal/models"
)

type enabled map[models.ModuleKey]bool

func (e enabled) ModuleEnabled(m models.ModuleKey) bool { return e[m] }

func worker() gate.Actor {
	return gate.Actor{Auth: gate.AuthAuthenticated, Role: models.RoleWorker}
}

func activeTenant() gate.TenantContext {
	return gate.TenantContext{
		ID:                 "acme",
		Loaded:             true,
		SubscriptionStatus: "active",
		Modules:            enabled{models.ModulePTW: true, models.ModuleIMS: false},
	}
}

func TestEvaluate_GuardOrder(t *testing.T) {
	g := gate.New(gate.Config{})
	assert.Equal(t, []string{
		"auth_resolved", "authenticated", "platform_owner", "tenant_loaded",
		"subscription", "module_enabled", "role_allowed",
	}, g.Guards())
}

func TestEvaluate_Loading(t *testing.T) {
	g := gate.New(gate.Config{})
	d := g.Evaluate(gate.Actor{}, gate.TenantContext{}, gate.Resource{Path: "/ptw"})
	assert.Equal(t, gate.OutcomeWait, d.Outcome)
	assert.Equal(t, gate.StateLoading, d.State)
}

func TestEvaluate_Unauthenticated(t *testing.T) {
	g := gate.New(gate.Config{})
	d := g.Evaluate(gate.Actor{Auth: gate.AuthAnonymous}, activeTenant(), gate.Resource{Path: "/ptw"})
	assert.Equal(t, gate.OutcomeRedirectLogin, d.Outcome)
	assert.Equal(t, "/login", d.Target)
}

func TestEvaluate_PlatformOwnerBypass(t *testing.T) {
	g := gate.New(gate.Config{})
	owner := gate.Actor{Auth: gate.AuthAuthenticated, Role: models.RolePlatformOwner}

	// Tenant not loaded, subscription inactive, module off: all skipped.
	d, ran := g.Trace(owner, gate.TenantContext{}, gate.Resource{
		Path:           "/ims",
		RequiredModule: models.ModuleIMS,
		AllowedRoles:   []models.Role{models.RoleCompanyOwner},
	})
	assert.True(t, d.Allowed())
	assert.Equal(t, gate.StatePlatformOwnerBypass, d.State)
	assert.Equal(t, []string{"auth_resolved", "authenticated", "platform_owner"}, ran)
}

func TestEvaluate_CompanyLoading(t *testing.T) {
	g := gate.New(gate.Config{})
	d := g.Evaluate(worker(), gate.TenantContext{ID: "acme"}, gate.Resource{Path: "/ptw"})
	assert.Equal(t, gate.OutcomeWait, d.Outcome)
	assert.Equal(t, gate.StateCompanyLoading, d.State)
}

func TestEvaluate_SubscriptionInactive(t *testing.T) {
	g := gate.New(gate.Config{})
	tenant := activeTenant()
	tenant.SubscriptionStatus = "past_due"

	d := g.Evaluate(worker(), tenant, gate.Resource{Path: "/ptw"})
	assert.Equal(t, gate.OutcomeRedirectPayment, d.Outcome)
	assert.Equal(t, gate.StateSubscriptionInactive, d.State)
	assert.Equal(t, "/payment", d.Target)

	d = g.Evaluate(worker(), tenant, gate.Resource{Path: "/payment"})
	assert.True(t, d.Allowed(), "no redirect loop on the payment page")

	d = g.Evaluate(worker(), tenant, gate.Resource{Path: "/payment/?plan=pro"})
	assert.True(t, d.Allowed())
}

func TestEvaluate_ModuleDisabled(t *testing.T) {
	g := gate.New(gate.Config{})

	d := g.Evaluate(worker(), activeTenant(), gate.Resource{Path: "/ims", RequiredModule: models.ModuleIMS})
	assert.Equal(t, gate.OutcomeRedirectDashboard, d.Outcome)
	assert.Equal(t, gate.StateModuleDisabled, d.State)

	d = g.Evaluate(worker(), activeTenant(), gate.Resource{Path: "/ptw", RequiredModule: models.ModulePTW})
	assert.True(t, d.Allowed())

	d = g.Evaluate(worker(), activeTenant(), gate.Resource{Path: "/dashboard", RequiredModule: models.ModuleIMS})
	assert.True(t, d.Allowed())

	tenant := activeTenant()
	tenant.Modules = nil
	d = g.Evaluate(worker(), tenant, gate.Resource{Path: "/ptw", RequiredModule: models.ModulePTW})
	assert.Equal(t, gate.StateModuleDisabled, d.State, "unknown module set denies")
}

func TestEvaluate_RoleDenied(t *testing.T) {
	g := gate.New(gate.Config{})
	restricted := []models.Role{models.RoleCompanyOwner, models.RolePlantHead}

	d := g.Evaluate(worker(), activeTenant(), gate.Resource{Path: "/settings", AllowedRoles: restricted})
	assert.Equal(t, gate.OutcomeRedirectDashboard, d.Outcome)
	assert.Equal(t, gate.StateRoleDenied, d.State)
	assert.Equal(t, "/dashboard", d.Target)

	d = g.Evaluate(worker(), activeTenant(), gate.Resource{Path: "/dashboard", AllowedRoles: restricted})
	assert.True(t, d.Allowed())
	assert.Equal(t, gate.StateAllowed, d.State)

	plantHead := gate.Actor{Auth: gate.AuthAuthenticated, Role: models.RolePlantHead}
	d = g.Evaluate(plantHead, activeTenant(), gate.Resource{Path: "/settings", AllowedRoles: restricted})
	assert.True(t, d.Allowed())
}

func TestEvaluate_FirstFailureWins(t *testing.T) {
	g := gate.New(gate.Config{})
	tenant := activeTenant()
	tenant.SubscriptionStatus = "cancelled"

	d, ran := g.Trace(worker(), tenant, gate.Resource{
		Path:           "/ims",
		RequiredModule: models.ModuleIMS,
		AllowedRoles:   []models.Role{models.RolePlantHead},
	})
	assert.Equal(t, gate.StateSubscriptionInactive, d.State)
	assert.Len(t, ran, 5)
}

func TestEvaluate_CustomPaths(t *testing.T) {
	g := gate.New(gate.Config{DashboardPath: "/home"})
	d := g.Evaluate(worker(), activeTenant(), gate.Resource{
		Path:         "/home",
		AllowedRoles: []models.Role{models.RolePlantHead},
	})
	assert.True(t, d.Allowed())

	d = g.Evaluate(gate.Actor{Auth: gate.AuthAnonymous}, activeTenant(), gate.Resource{Path: "/home"})
	assert.Equal(t, "/login", d.Target)
}
