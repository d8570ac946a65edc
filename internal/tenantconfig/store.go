package tenantconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	errs "github.com/p-blackswan/safety-engine/internal/errors"
	"github.com/p-blackswan/safety-engine/internal/models"
)

// Snapshot is an immutable view of one tenant's configuration at one epoch.
// Accessors return deep copies.
type Snapshot struct {
	tenantID  string
	epoch     uint64
	modules   map[models.ModuleKey]EffectiveConfig
	overrides map[models.ModuleKey][]byte
	parsed    map[models.ModuleKey]TenantModuleConfig
}

// TenantID returns the tenant the snapshot belongs to.
func (s *Snapshot) TenantID() string { return s.tenantID }

// Epoch returns the version of the snapshot. An unseen tenant is at epoch 0.
func (s *Snapshot) Epoch() uint64 { return s.epoch }

// Module returns the effective config of module. ok is false for an unknown
// module, in which case the returned config is disabled.
func (s *Snapshot) Module(module models.ModuleKey) (EffectiveConfig, bool) {
	cfg, ok := s.modules[module]
	if !ok {
		return EffectiveConfig{Module: module}, false
	}
	return cfg.Clone(), true
}

// ModuleEnabled reports whether module is switched on.
func (s *Snapshot) ModuleEnabled(module models.ModuleKey) bool {
	cfg, ok := s.modules[module]
	return ok && cfg.Enabled
}

// Override returns the accepted override document of module, if any.
func (s *Snapshot) Override(module models.ModuleKey) ([]byte, bool) {
	raw, ok := s.overrides[module]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), raw...), true
}

// OverrideConfig returns the parsed override of module. A module without an
// override yields the zero config, which sets nothing.
func (s *Snapshot) OverrideConfig(module models.ModuleKey) (TenantModuleConfig, bool) {
	o, ok := s.parsed[module]
	if !ok {
		return TenantModuleConfig{}, false
	}
	return o.Clone(), true
}

// OverriddenModules lists the modules that carry an override, sorted.
func (s *Snapshot) OverriddenModules() []models.ModuleKey {
	out := make([]models.ModuleKey, 0, len(s.overrides))
	for m := range s.overrides {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// with copies s and sets module. A nil raw drops the module's override.
func (s *Snapshot) with(module models.ModuleKey, cfg EffectiveConfig, o TenantModuleConfig, raw []byte) *Snapshot {
	next := &Snapshot{
		tenantID:  s.tenantID,
		modules:   make(map[models.ModuleKey]EffectiveConfig, len(s.modules)),
		overrides: make(map[models.ModuleKey][]byte, len(s.overrides)+1),
		parsed:    make(map[models.ModuleKey]TenantModuleConfig, len(s.parsed)+1),
	}
	for k, v := range s.modules {
		next.modules[k] = v
	}
	for k, v := range s.overrides {
		next.overrides[k] = v
	}
	for k, v := range s.parsed {
		next.parsed[k] = v
	}
	next.modules[module] = cfg
	if raw == nil {
		delete(next.overrides, module)
		delete(next.parsed, module)
	} else {
		next.overrides[module] = raw
		next.parsed[module] = o
	}
	return next
}

// Persister receives every accepted change before it becomes visible.
type Persister interface {
	SaveOverride(ctx context.Context, tenantID string, module models.ModuleKey, raw []byte) error
	DeleteOverride(ctx context.Context, tenantID string, module models.ModuleKey) error
}

// Source supplies stored overrides at startup, keyed by tenant then module.
type Source interface {
	LoadOverrides(ctx context.Context) (map[string]map[models.ModuleKey][]byte, error)
}

// ChangeKind classifies a published change.
type ChangeKind string

const (
	ChangePublished ChangeKind = "published"
	ChangeReset     ChangeKind = "reset"
	ChangeRejected  ChangeKind = "rejected"
	ChangeLoaded    ChangeKind = "loaded"
)

// Change describes one snapshot swap.
type Change struct {
	TenantID string
	Module   models.ModuleKey // empty for a bulk load
	Kind     ChangeKind
	Epoch    uint64
	Err      error
}

// Option configures a Store.
type Option func(*Store)

// WithPersister writes every change through p before publishing it.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithChangeHook registers fn to run after each snapshot swap.
func WithChangeHook(fn func(Change)) Option {
	return func(s *Store) { s.hooks = append(s.hooks, fn) }
}

// Store holds the current snapshot of every tenant. Readers never block;
// writers are serialized and publish by swapping a whole snapshot.
type Store struct {
	mu        sync.Mutex
	tenants   sync.Map // tenant ID -> *atomic.Pointer[Snapshot]
	defaults  map[models.ModuleKey]EffectiveConfig
	persister Persister
	hooks     []func(Change)
	logger    zerolog.Logger
}

// NewStore creates an empty store. Every tenant starts on the defaults.
func NewStore(logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		defaults: AllDefaults(),
		logger:   logger.With().Str("component", "tenantconfig.store").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns the tenant's current snapshot. It never blocks on writers.
func (s *Store) Snapshot(tenantID string) *Snapshot {
	if p, ok := s.tenants.Load(tenantID); ok {
		if snap := p.(*atomic.Pointer[Snapshot]).Load(); snap != nil {
			return snap
		}
	}
	return &Snapshot{tenantID: tenantID, modules: s.defaults}
}

// CurrentEpoch returns the tenant's epoch, 0 when nothing was ever published.
func (s *Store) CurrentEpoch(tenantID string) uint64 {
	return s.Snapshot(tenantID).Epoch()
}

// Resolve returns the effective config of one module for one tenant.
func (s *Store) Resolve(tenantID string, module models.ModuleKey) (EffectiveConfig, error) {
	cfg, ok := s.Snapshot(tenantID).Module(module)
	if !ok {
		return cfg, fmt.Errorf("resolve %s/%s: %w", tenantID, module, errs.ErrUnknownModule)
	}
	return cfg, nil
}

// Tenants lists the tenants that have a published snapshot, sorted.
func (s *Store) Tenants() []string {
	var out []string
	s.tenants.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

// Publish validates o and makes it the tenant's override for module.
func (s *Store) Publish(ctx context.Context, tenantID string, module models.ModuleKey, o TenantModuleConfig) (uint64, error) {
	if err := checkKey(tenantID, module); err != nil {
		return s.CurrentEpoch(tenantID), err
	}
	if err := Validate(module, o); err != nil {
		return s.CurrentEpoch(tenantID), err
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return s.CurrentEpoch(tenantID), fmt.Errorf("encode override: %w", err)
	}
	return s.apply(ctx, tenantID, module, o, raw)
}

// PublishRaw parses raw and publishes it. A malformed document is discarded
// together with the module's previous override: the module falls back to its
// built-in default, the stored override is deleted, the new snapshot is
// published and the parse error is still returned. Callers that want to keep
// the last accepted override on a bad edit must validate with ParseOverride
// first.
func (s *Store) PublishRaw(ctx context.Context, tenantID string, module models.ModuleKey, raw []byte) (uint64, error) {
	if err := checkKey(tenantID, module); err != nil {
		return s.CurrentEpoch(tenantID), err
	}
	o, perr := ParseOverride(module, raw)
	if perr == nil {
		return s.apply(ctx, tenantID, module, o, append([]byte(nil), raw...))
	}

	s.logger.Warn().Err(perr).
		Str("tenant_id", tenantID).
		Str("module", string(module)).
		Msg("discarding malformed override, using default")

	change := Change{TenantID: tenantID, Module: module, Kind: ChangeRejected, Err: perr}
	epoch, err := s.commit(ctx, change, nil, func(prev *Snapshot) *Snapshot {
		return prev.with(module, s.defaults[module], TenantModuleConfig{}, nil)
	})
	if err != nil {
		return epoch, err
	}
	return epoch, perr
}

// Reset drops the tenant's override for module. Other modules keep theirs.
func (s *Store) Reset(ctx context.Context, tenantID string, module models.ModuleKey) (uint64, error) {
	if err := checkKey(tenantID, module); err != nil {
		return s.CurrentEpoch(tenantID), err
	}
	change := Change{TenantID: tenantID, Module: module, Kind: ChangeReset}
	return s.commit(ctx, change, nil, func(prev *Snapshot) *Snapshot {
		return prev.with(module, s.defaults[module], TenantModuleConfig{}, nil)
	})
}

func (s *Store) apply(ctx context.Context, tenantID string, module models.ModuleKey, o TenantModuleConfig, raw []byte) (uint64, error) {
	merged := Merge(s.defaults[module], o)
	change := Change{TenantID: tenantID, Module: module, Kind: ChangePublished}
	return s.commit(ctx, change, raw, func(prev *Snapshot) *Snapshot {
		return prev.with(module, merged, o.Clone(), raw)
	})
}

// commit persists the change, then swaps in the snapshot built by next. raw
// nil means the override is deleted.
func (s *Store) commit(ctx context.Context, c Change, raw []byte, next func(*Snapshot) *Snapshot) (uint64, error) {
	tenantID, module := c.TenantID, c.Module
	s.mu.Lock()
	prev := s.Snapshot(tenantID)
	if s.persister != nil {
		var err error
		if raw == nil {
			err = s.persister.DeleteOverride(ctx, tenantID, module)
		} else {
			err = s.persister.SaveOverride(ctx, tenantID, module, raw)
		}
		if err != nil {
			s.mu.Unlock()
			return prev.epoch, fmt.Errorf("persist %s/%s: %w", tenantID, module, err)
		}
	}
	snap := next(prev)
	snap.epoch = prev.epoch + 1
	s.pointer(tenantID).Store(snap)
	s.mu.Unlock()

	s.logger.Debug().
		Str("tenant_id", tenantID).
		Str("module", string(module)).
		Str("kind", string(c.Kind)).
		Uint64("epoch", snap.epoch).
		Msg("config snapshot published")
	c.Epoch = snap.epoch
	s.notify(c)
	return snap.epoch, nil
}

// Load replaces the tenant's snapshot with defaults overlaid by docs. Each
// malformed document falls back to its module default on its own; the errors
// are returned but never stop the load. Load does not write through.
func (s *Store) Load(tenantID string, docs map[models.ModuleKey][]byte) (uint64, []error) {
	if tenantID == "" {
		return 0, []error{fmt.Errorf("load: %w: empty tenant id", errs.ErrInvalidInput)}
	}
	snap := &Snapshot{
		tenantID:  tenantID,
		modules:   make(map[models.ModuleKey]EffectiveConfig, len(s.defaults)),
		overrides: make(map[models.ModuleKey][]byte, len(docs)),
		parsed:    make(map[models.ModuleKey]TenantModuleConfig, len(docs)),
	}
	for m, cfg := range s.defaults {
		snap.modules[m] = cfg
	}

	var problems []error
	for _, module := range sortedKeys(docs) {
		raw := docs[module]
		o, err := ParseOverride(module, raw)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("tenant_id", tenantID).
				Str("module", string(module)).
				Msg("discarding malformed override, using default")
			problems = append(problems, err)
			continue
		}
		snap.modules[module] = Merge(s.defaults[module], o)
		snap.overrides[module] = append([]byte(nil), raw...)
		snap.parsed[module] = o
	}

	s.mu.Lock()
	snap.epoch = s.Snapshot(tenantID).epoch + 1
	s.pointer(tenantID).Store(snap)
	s.mu.Unlock()

	s.notify(Change{TenantID: tenantID, Kind: ChangeLoaded, Epoch: snap.epoch})
	return snap.epoch, problems
}

// Hydrate loads every tenant from srcs. Sources are overlaid module by
// module in order, so a later source replaces an earlier one's document for
// the same tenant and module while the earlier source's other modules are
// kept. A source that cannot be read is skipped and its error returned after
// the rest are loaded. Malformed documents are logged and fall back to their
// defaults.
func (s *Store) Hydrate(ctx context.Context, srcs ...Source) error {
	all := make(map[string]map[models.ModuleKey][]byte)
	var readErrs []error
	for _, src := range srcs {
		docs, err := src.LoadOverrides(ctx)
		if err != nil {
			readErrs = append(readErrs, fmt.Errorf("hydrate: %w", err))
			continue
		}
		for tenant, modules := range docs {
			if all[tenant] == nil {
				all[tenant] = make(map[models.ModuleKey][]byte, len(modules))
			}
			for module, raw := range modules {
				all[tenant][module] = raw
			}
		}
	}

	tenants := make([]string, 0, len(all))
	for t := range all {
		tenants = append(tenants, t)
	}
	sort.Strings(tenants)

	rejected := 0
	for _, t := range tenants {
		_, problems := s.Load(t, all[t])
		rejected += len(problems)
	}
	s.logger.Info().
		Int("sources", len(srcs)).
		Int("tenants", len(tenants)).
		Int("rejected", rejected).
		Msg("tenant overrides hydrated")
	return errors.Join(readErrs...)
}

func (s *Store) pointer(tenantID string) *atomic.Pointer[Snapshot] {
	p, _ := s.tenants.LoadOrStore(tenantID, &atomic.Pointer[Snapshot]{})
	return p.(*atomic.Pointer[Snapshot])
}

func (s *Store) notify(c Change) {
	for _, fn := range s.hooks {
		fn(c)
	}
}

func checkKey(tenantID string, module models.ModuleKey) error {
	if tenantID == "" {
		return fmt.Errorf("%w: empty tenant id", errs.ErrInvalidInput)
	}
	if !module.Valid() {
		return fmt.Errorf("%w: %q", errs.ErrUnknownModule, module)
	}
	return nil
}

func sortedKeys(docs map[models.ModuleKey][]byte) []models.ModuleKey {
	keys := make([]models.ModuleKey, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
