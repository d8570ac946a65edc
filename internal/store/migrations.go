package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

type migration struct {
	version int
	stmts   string
}

// migrations are applied in order, each in its own transaction together with
// the schema_version bump. Never edit an applied entry; append a new one.
var migrations = []migration{
	{
		version: 1,
		stmts: `
	CREATE TABLE IF NOT EXISTS tenant_overrides (
		tenant_id  TEXT NOT NULL,
		module     TEXT NOT NULL,
		document   TEXT NOT NULL,
		revision   INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (tenant_id, module)
	);
	CREATE INDEX IF NOT EXISTS idx_overrides_tenant ON tenant_overrides(tenant_id);
	`,
	},
	{
		version: 2,
		stmts: `
	CREATE TABLE IF NOT EXISTS config_audit (
		id         TEXT PRIMARY KEY,
		tenant_id  TEXT NOT NULL,
		module     TEXT NOT NULL DEFAULT '',
		actor      TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL DEFAULT '',
		action     TEXT NOT NULL,
		result     TEXT NOT NULL,
		epoch      INTEGER NOT NULL DEFAULT 0,
		details    TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_tenant ON config_audit(tenant_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON config_audit(created_at);
	`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create meta table: %w", err)
	}
	current, err := s.appliedVersion(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.logger.Info().Int("version", m.version).Msg("schema migrated")
	}
	return nil
}

func (s *Store) appliedVersion(ctx context.Context) (int, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", v, err)
	}
	return n, nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration v%d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.stmts); err != nil {
		return fmt.Errorf("failed to execute migration v%d: %w", m.version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(m.version)); err != nil {
		return fmt.Errorf("failed to record migration v%d: %w", m.version, err)
	}
	return tx.Commit()
}
