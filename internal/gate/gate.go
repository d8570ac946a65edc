// Package gate decides whether an actor may reach a protected resource. The
// decision is an ordered chain of guards; the first guard that returns a
// terminal decision wins and later guards never run.
package gate

import (
	"strings"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// AuthState is what the caller knows about authentication.
type AuthState string

const (
	AuthUnknown       AuthState = "unknown" // still resolving
	AuthAnonymous     AuthState = "anonymous"
	AuthAuthenticated AuthState = "authenticated"
)

// State names a node of the guard state machine.
type State string

const (
	StateLoading              State = "loading"
	StateUnauthenticated      State = "unauthenticated"
	StatePlatformOwnerBypass  State = "platform_owner_bypass"
	StateCompanyLoading       State = "company_loading"
	StateSubscriptionInactive State = "subscription_inactive"
	StateModuleDisabled       State = "module_disabled"
	StateRoleDenied           State = "role_denied"
	StateAllowed              State = "allowed"
)

// Outcome is what the caller should do.
type Outcome string

const (
	OutcomeWait              Outcome = "wait"
	OutcomeAllow             Outcome = "allow"
	OutcomeRedirectLogin     Outcome = "redirect_login"
	OutcomeRedirectPayment   Outcome = "redirect_payment"
	OutcomeRedirectDashboard Outcome = "redirect_dashboard"
)

// SubscriptionActive is the only subscription status that passes the gate.
const SubscriptionActive = "active"

// Actor is the already-authenticated caller.
type Actor struct {
	Auth AuthState
	Role models.Role
}

// ModuleEnabler reports whether a module is switched on for a tenant.
type ModuleEnabler interface {
	ModuleEnabled(module models.ModuleKey) bool
}

// TenantContext is what the caller has loaded about the tenant.
type TenantContext struct {
	ID                 string
	Loaded             bool
	SubscriptionStatus string
	Modules            ModuleEnabler
}

// Resource is the protected target.
type Resource struct {
	Path           string
	RequiredModule models.ModuleKey // empty when no module is required
	AllowedRoles   []models.Role    // empty when any role may enter
}

// Decision is the terminal result of the chain. It is computed per request
// and must not be reused across actors or tenants.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	State   State   `json:"state"`
	Target  string  `json:"target,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Allowed reports whether the actor may proceed.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

// Config holds the fallback paths.
type Config struct {
	LoginPath     string
	PaymentPath   string
	DashboardPath string
}

// DefaultConfig returns the standard paths.
func DefaultConfig() Config {
	return Config{LoginPath: "/login", PaymentPath: "/payment", DashboardPath: "/dashboard"}
}

// Request bundles the inputs every guard sees.
type Request struct {
	Actor    Actor
	Tenant   TenantContext
	Resource Resource
}

// Guard inspects a request and either returns a terminal decision (true) or
// lets the chain continue (false).
type Guard struct {
	Name  string
	Check func(cfg Config, r Request) (Decision, bool)
}

// Gate evaluates the ordered guard chain. It holds no mutable state.
type Gate struct {
	cfg    Config
	guards []Guard
}

// New returns a gate with the standard chain. Empty paths take their defaults.
func New(cfg Config) *Gate {
	def := DefaultConfig()
	if cfg.LoginPath == "" {
		cfg.LoginPath = def.LoginPath
	}
	if cfg.PaymentPath == "" {
		cfg.PaymentPath = def.PaymentPath
	}
	if cfg.DashboardPath == "" {
		cfg.DashboardPath = def.DashboardPath
	}
	return &Gate{cfg: cfg, guards: Chain()}
}

// Guards returns the names of the chain in evaluation order.
func (g *Gate) Guards() []string {
	names := make([]string, len(g.guards))
	for i, gd := range g.guards {
		names[i] = gd.Name
	}
	return names
}

// Evaluate runs the chain and returns the first terminal decision. If every
// guard passes the actor is allowed.
func (g *Gate) Evaluate(actor Actor, tenant TenantContext, resource Resource) Decision {
	d, _ := g.Trace(actor, tenant, resource)
	return d
}

// Trace is Evaluate that also returns the names of the guards that ran.
func (g *Gate) Trace(actor Actor, tenant TenantContext, resource Resource) (Decision, []string) {
	r := Request{Actor: actor, Tenant: tenant, Resource: resource}
	ran := make([]string, 0, len(g.guards))
	for _, gd := range g.guards {
		ran = append(ran, gd.Name)
		if d, done := gd.Check(g.cfg, r); done {
			return d, ran
		}
	}
	return Decision{Outcome: OutcomeAllow, State: StateAllowed}, ran
}

// samePath compares paths ignoring a trailing slash and query string.
func samePath(a, b string) bool {
	clean := func(p string) string {
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
		if len(p) > 1 {
			p = strings.TrimRight(p, "/")
		}
		return p
	}
	return clean(a) == clean(b)
}
