package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// Override is one stored tenant override document.
type Override struct {
	TenantID  string
	Module    models.ModuleKey
	Document  []byte
	Revision  int64
	CreatedAt int64
	UpdatedAt int64
}

// SaveOverride inserts or replaces the override of one tenant module and
// bumps its revision.
func (s *Store) SaveOverride(ctx context.Context, tenantID string, module models.ModuleKey, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	query := `
	INSERT INTO tenant_overrides (tenant_id, module, document, revision, created_at, updated_at)
	VALUES (?, ?, ?, 1, ?, ?)
	ON CONFLICT(tenant_id, module) DO UPDATE SET
		document = excluded.document,
		revision = tenant_overrides.revision + 1,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, tenantID, string(module), string(raw), now, now); err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}

// DeleteOverride removes the override of one tenant module. Deleting a
// missing row is not an error.
func (s *Store) DeleteOverride(ctx context.Context, tenantID string, module models.ModuleKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `DELETE FROM tenant_overrides WHERE tenant_id = ? AND module = ?`
	if _, err := s.db.ExecContext(ctx, query, tenantID, string(module)); err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return nil
}

// GetOverride retrieves one override. It returns nil, nil when none exists.
func (s *Store) GetOverride(ctx context.Context, tenantID string, module models.ModuleKey) (*Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o := &Override{}
	var mod, doc string
	query := `
	SELECT tenant_id, module, document, revision, created_at, updated_at
	FROM tenant_overrides WHERE tenant_id = ? AND module = ?
	`
	err := s.db.QueryRowContext(ctx, query, tenantID, string(module)).Scan(
		&o.TenantID, &mod, &doc, &o.Revision, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get override: %w", err)
	}
	o.Module = models.ModuleKey(mod)
	o.Document = []byte(doc)
	return o, nil
}

// LoadOverrides returns every stored document keyed by tenant then module.
// Rows are returned as stored; validation happens when they are published.
func (s *Store) LoadOverrides(ctx context.Context) (map[string]map[models.ModuleKey][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT tenant_id, module, document FROM tenant_overrides ORDER BY tenant_id, module`)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[models.ModuleKey][]byte)
	for rows.Next() {
		var tenantID, module, doc string
		if err := rows.Scan(&tenantID, &module, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		if out[tenantID] == nil {
			out[tenantID] = make(map[models.ModuleKey][]byte)
		}
		out[tenantID][models.ModuleKey(module)] = []byte(doc)
	}
	return out, rows.Err()
}

// CountOverrides returns the number of stored override rows.
func (s *Store) CountOverrides(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenant_overrides`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count overrides: %w", err)
	}
	return n, nil
}
