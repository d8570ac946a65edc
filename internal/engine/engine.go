// Package engine is the single call surface over the rule packages. A View
// pins one tenant snapshot so that every answer within a request comes from
// the same configuration epoch.
package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/safety-engine/internal/gate"
	"github.com/p-blackswan/safety-engine/internal/metrics"
	"github.com/p-blackswan/safety-engine/internal/policy"
	"github.com/p-blackswan/safety-engine/internal/tenantconfig"
	"github.com/p-blackswan/safety-engine/internal/workflow"
)

// Decision kinds used as metric labels.
const (
	KindTransition = "transition"
	KindAction     = "action"
	KindEscalation = "escalation"
	KindSLA        = "sla"
	KindAccess     = "access"
)

// Engine wires the transition table, the authorizer, the access gate and the
// config store together.
type Engine struct {
	store   *tenantconfig.Store
	table   *workflow.Table
	authz   *policy.Authorizer
	gate    *gate.Gate
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTable replaces the built-in transition table.
func WithTable(t *workflow.Table) Option {
	return func(e *Engine) { e.table = t }
}

// WithAuthorizer replaces the built-in permission table.
func WithAuthorizer(a *policy.Authorizer) Option {
	return func(e *Engine) { e.authz = a }
}

// WithGate replaces the access gate, typically to change fallback paths.
func WithGate(g *gate.Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithClock sets the time source used by SLA checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over store. m may be nil.
func New(store *tenantconfig.Store, m *metrics.Metrics, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		table:   workflow.Default(),
		authz:   policy.Default(),
		gate:    gate.New(gate.DefaultConfig()),
		metrics: m,
		logger:  logger.With().Str("component", "engine").Logger(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Store returns the config store behind the engine.
func (e *Engine) Store() *tenantconfig.Store { return e.store }

// Table returns the transition table in use.
func (e *Engine) Table() *workflow.Table { return e.table }

// At pins the tenant's current snapshot.
func (e *Engine) At(tenantID string) *View {
	return &View{e: e, snap: e.store.Snapshot(tenantID)}
}

func (e *Engine) record(kind, module, outcome string) {
	if e.metrics != nil {
		e.metrics.RecordDecision(kind, module, outcome)
	}
}

// ConfigHook returns a store change hook that feeds m: it counts swaps by
// kind and tracks how many tenants have a snapshot.
func ConfigHook(m *metrics.Metrics) func(tenantconfig.Change) {
	var seen sync.Map
	var mu sync.Mutex
	count := 0
	return func(c tenantconfig.Change) {
		m.RecordConfigChange(string(c.Kind))
		if _, loaded := seen.LoadOrStore(c.TenantID, struct{}{}); !loaded {
			mu.Lock()
			count++
			m.SetActiveTenants(count)
			mu.Unlock()
		}
	}
}
