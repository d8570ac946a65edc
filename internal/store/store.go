// Package store persists tenant overrides and the config audit trail in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const openTimeout = 10 * time.Second

// connPragmas apply to the single pooled connection.
var connPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// Store is the SQLite backing for tenant overrides and the audit trail.
// Writes are serialized by mu; the pool holds one connection so PRAGMAs set
// at open apply to every statement.
type Store struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
	mu     sync.RWMutex
}

// New opens (or creates) the database at dbPath and brings its schema up to
// date.
func New(dbPath string, logger zerolog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		path:   dbPath,
		logger: logger.With().Str("component", "store").Logger(),
	}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}

	version, _ := s.SchemaVersion()
	s.logger.Info().
		Str("path", dbPath).
		Str("schema_version", version).
		Msg("override store ready")
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database %s: %w", s.path, err)
	}
	for _, pragma := range connPragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", s.path, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Ping checks the database is reachable. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.path, err)
	}
	return nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SchemaVersion returns the last applied migration.
func (s *Store) SchemaVersion() (string, error) {
	var v string
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v); err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
