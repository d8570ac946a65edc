package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/p-blackswan/safety-engine/internal/audit"
)

// AppendAudit stores one audit entry. It implements audit.Sink.
func (s *Store) AppendAudit(ctx context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO config_audit (id, tenant_id, module, actor, role, action, result, epoch, details, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.TenantID, e.Module, e.Actor, e.Role, e.Action, e.Result, int64(e.Epoch),
		sql.NullString{String: e.Details, Valid: e.Details != ""},
		e.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns up to limit entries of one tenant, newest first.
func (s *Store) ListAudit(ctx context.Context, tenantID string, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, tenant_id, module, actor, role, action, result, epoch, details, created_at
	FROM config_audit WHERE tenant_id = ?
	ORDER BY created_at DESC, id
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var epoch, createdAt int64
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Module, &e.Actor, &e.Role,
			&e.Action, &e.Result, &epoch, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Epoch = uint64(epoch)
		e.Details = details.String
		e.Timestamp = time.UnixMilli(createdAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
