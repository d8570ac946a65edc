package gate

import (
	"fmt"
	"strings"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// Chain returns the guards in their fixed order.
func Chain() []Guard {
	return []Guard{
		{Name: "auth_resolved", Check: authResolved},
		{Name: "authenticated", Check: authenticated},
		{Name: "platform_owner", Check: platformOwner},
		{Name: "tenant_loaded", Check: tenantLoaded},
		{Name: "subscription", Check: subscription},
		{Name: "module_enabled", Check: moduleEnabled},
		{Name: "role_allowed", Check: roleAllowed},
	}
}

func authResolved(_ Config, r Request) (Decision, bool) {
	if r.Actor.Auth == AuthUnknown || r.Actor.Auth == "" {
		return Decision{Outcome: OutcomeWait, State: StateLoading}, true
	}
	return Decision{}, false
}

func authenticated(cfg Config, r Request) (Decision, bool) {
	if r.Actor.Auth != AuthAuthenticated {
		return Decision{
			Outcome: OutcomeRedirectLogin,
			State:   StateUnauthenticated,
			Target:  cfg.LoginPath,
			Reason:  "not authenticated",
		}, true
	}
	return Decision{}, false
}

func platformOwner(_ Config, r Request) (Decision, bool) {
	if r.Actor.Role == models.RolePlatformOwner {
		return Decision{Outcome: OutcomeAllow, State: StatePlatformOwnerBypass}, true
	}
	return Decision{}, false
}

func tenantLoaded(_ Config, r Request) (Decision, bool) {
	if !r.Tenant.Loaded {
		return Decision{Outcome: OutcomeWait, State: StateCompanyLoading}, true
	}
	return Decision{}, false
}

// subscription sends inactive tenants to payment, except when they are
// already there.
func subscription(cfg Config, r Request) (Decision, bool) {
	if strings.EqualFold(r.Tenant.SubscriptionStatus, SubscriptionActive) {
		return Decision{}, false
	}
	if samePath(r.Resource.Path, cfg.PaymentPath) {
		return Decision{}, false
	}
	return Decision{
		Outcome: OutcomeRedirectPayment,
		State:   StateSubscriptionInactive,
		Target:  cfg.PaymentPath,
		Reason:  fmt.Sprintf("subscription status %q", r.Tenant.SubscriptionStatus),
	}, true
}

// moduleEnabled denies a module-scoped resource when the tenant has the module
// off or the enabled set is unknown.
func moduleEnabled(cfg Config, r Request) (Decision, bool) {
	m := r.Resource.RequiredModule
	if m == "" || samePath(r.Resource.Path, cfg.DashboardPath) {
		return Decision{}, false
	}
	if r.Tenant.Modules != nil && r.Tenant.Modules.ModuleEnabled(m) {
		return Decision{}, false
	}
	return Decision{
		Outcome: OutcomeRedirectDashboard,
		State:   StateModuleDisabled,
		Target:  cfg.DashboardPath,
		Reason:  fmt.Sprintf("module %s is disabled", m),
	}, true
}

func roleAllowed(cfg Config, r Request) (Decision, bool) {
	if len(r.Resource.AllowedRoles) == 0 || samePath(r.Resource.Path, cfg.DashboardPath) {
		return Decision{}, false
	}
	if models.ContainsRole(r.Resource.AllowedRoles, r.Actor.Role) {
		return Decision{}, false
	}
	return Decision{
		Outcome: OutcomeRedirectDashboard,
		State:   StateRoleDenied,
		Target:  cfg.DashboardPath,
		Reason:  fmt.Sprintf("role %q not allowed", r.Actor.Role),
	}, true
}
