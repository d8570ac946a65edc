// Package audit records who changed tenant configuration and what happened.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Actions recorded in the trail.
const (
	ActionPublish = "config.publish"
	ActionReset   = "config.reset"
	ActionHydrate = "config.hydrate"
)

// Results recorded in the trail.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Entry is one audited config change.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenantId"`
	Module    string    `json:"module,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Role      string    `json:"role,omitempty"`
	Action    string    `json:"action"`
	Result    string    `json:"result"`
	Epoch     uint64    `json:"epoch"`
	Details   string    `json:"details,omitempty"`
}

// Sink stores entries durably.
type Sink interface {
	AppendAudit(ctx context.Context, e Entry) error
}

// Reader reads entries back from durable storage, newest first.
type Reader interface {
	ListAudit(ctx context.Context, tenantID string, limit int) ([]Entry, error)
}

// Log keeps recent entries in memory and forwards each one to an optional
// sink. A sink failure is logged and never blocks the change it describes.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
	sink    Sink
	logger  zerolog.Logger
	now     func() time.Time
}

// NewLog creates an audit log that retains up to capacity entries in memory.
// sink may be nil.
func NewLog(capacity int, sink Sink, logger zerolog.Logger) *Log {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Log{
		entries: make([]Entry, 0, capacity),
		limit:   capacity,
		sink:    sink,
		logger:  logger.With().Str("component", "audit").Logger(),
		now:     time.Now,
	}
}

// Record stamps e with an ID and time, keeps it and forwards it to the sink.
func (a *Log) Record(ctx context.Context, e Entry) Entry {
	e.ID = uuid.New().String()
	e.Timestamp = a.now().UTC()

	a.mu.Lock()
	if len(a.entries) == a.limit {
		copy(a.entries, a.entries[1:])
		a.entries = a.entries[:a.limit-1]
	}
	a.entries = append(a.entries, e)
	a.mu.Unlock()

	a.logger.Info().
		Str("tenant_id", e.TenantID).
		Str("module", e.Module).
		Str("actor", e.Actor).
		Str("action", e.Action).
		Str("result", e.Result).
		Uint64("epoch", e.Epoch).
		Msg("audit event")

	if a.sink != nil {
		if err := a.sink.AppendAudit(ctx, e); err != nil {
			a.logger.Error().Err(err).Str("id", e.ID).Msg("failed to persist audit entry")
		}
	}
	return e
}

// Entries returns up to limit entries, newest first, optionally filtered by
// tenant.
func (a *Log) Entries(tenantID string, limit int) []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []Entry
	for i := len(a.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if tenantID == "" || a.entries[i].TenantID == tenantID {
			result = append(result, a.entries[i])
		}
	}
	return result
}

// Count returns the number of entries held in memory.
func (a *Log) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// History returns up to limit entries of one tenant, newest first. When the
// sink can be read back it is the source, so entries survive a restart;
// otherwise, or when the read fails, the in-memory entries are returned.
func (a *Log) History(ctx context.Context, tenantID string, limit int) []Entry {
	if r, ok := a.sink.(Reader); ok && tenantID != "" {
		entries, err := r.ListAudit(ctx, tenantID, limit)
		if err == nil {
			return entries
		}
		a.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to read audit history, using memory")
	}
	return a.Entries(tenantID, limit)
}
