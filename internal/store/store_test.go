package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/safety-engine/internal/audit"
	"github.com/p-blackswan/safety-engine/internal/models"
	"github.com/p-blackswan/safety-engine/internal/tenantconfig"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNew_CreatesDB(t *testing.T) {
	store := newTestStore(t)

	for _, table := range []string{"tenant_overrides", "config_audit", "meta"} {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	v, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNew_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s1, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s1.SaveOverride(ctx, "acme", models.ModulePTW, []byte(`{"enabled":false}`)))
	require.NoError(t, s1.Close())

	s2, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()

	v, err := s2.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	o, err := s2.GetOverride(ctx, "acme", models.ModulePTW)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.JSONEq(t, `{"enabled":false}`, string(o.Document))
}

func TestOverride_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveOverride(ctx, "acme", models.ModulePTW, []byte(`{"enabled":false}`)))
	require.NoError(t, store.SaveOverride(ctx, "acme", models.ModulePTW, []byte(`{"enabled":true}`)))
	require.NoError(t, store.SaveOverride(ctx, "acme", models.ModuleIMS, []byte(`{}`)))
	require.NoError(t, store.SaveOverride(ctx, "globex", models.ModuleIMS, []byte(`{}`)))

	o, err := store.GetOverride(ctx, "acme", models.ModulePTW)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, int64(2), o.Revision)
	assert.Equal(t, models.ModulePTW, o.Module)
	assert.JSONEq(t, `{"enabled":true}`, string(o.Document))
	assert.GreaterOrEqual(t, o.UpdatedAt, o.CreatedAt)

	all, err := store.LoadOverrides(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, all["acme"], 2)

	n, err := store.CountOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, store.DeleteOverride(ctx, "acme", models.ModulePTW))
	require.NoError(t, store.DeleteOverride(ctx, "acme", models.ModulePTW), "deleting twice is fine")

	o, err = store.GetOverride(ctx, "acme", models.ModulePTW)
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestAudit_AppendAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, mod := range []string{"ptw", "ims", "hira"} {
		require.NoError(t, store.AppendAudit(ctx, audit.Entry{
			ID: "e-" + mod, Timestamp: base.Add(time.Duration(i) * time.Minute),
			TenantID: "acme", Module: mod, Actor: "u-1", Role: "company_owner",
			Action: audit.ActionPublish, Result: audit.ResultOK, Epoch: uint64(i + 1),
		}))
	}
	require.NoError(t, store.AppendAudit(ctx, audit.Entry{
		ID: "other", Timestamp: base, TenantID: "globex", Action: audit.ActionReset,
		Result: audit.ResultOK, Details: "manual",
	}))

	got, err := store.ListAudit(ctx, "acme", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hira", got[0].Module)
	assert.Equal(t, uint64(3), got[0].Epoch)
	assert.True(t, got[0].Timestamp.Equal(base.Add(2*time.Minute)))

	got, err = store.ListAudit(ctx, "globex", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "manual", got[0].Details)
}

func TestRetention(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendAudit(ctx, audit.Entry{
		ID: "old", Timestamp: time.Now().Add(-100 * 24 * time.Hour), TenantID: "acme",
		Action: audit.ActionPublish, Result: audit.ResultOK,
	}))
	require.NoError(t, store.AppendAudit(ctx, audit.Entry{
		ID: "new", Timestamp: time.Now(), TenantID: "acme",
		Action: audit.ActionPublish, Result: audit.ResultOK,
	}))

	n, err := store.RunRetention(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.ListAudit(ctx, "acme", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
}

func TestDBSize(t *testing.T) {
	store := newTestStore(t)
	size, err := store.DBSizeBytes()
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}

func TestHydrate_SeedDirThenStoredOverrides(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "acme"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme", "ptw.yaml"), []byte("enabled: false\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme", "ims.yaml"), []byte("enabled: false\n"), 0o644))
	require.NoError(t, store.SaveOverride(ctx, "acme", models.ModulePTW, []byte(`{"enabled":true}`)))

	configs := tenantconfig.NewStore(zerolog.Nop())
	seed := tenantconfig.DirSource{Dir: dir, Logger: zerolog.Nop()}
	require.NoError(t, configs.Hydrate(ctx, seed, store))

	snap := configs.Snapshot("acme")
	assert.True(t, snap.ModuleEnabled(models.ModulePTW), "stored override replaces the seed file")
	assert.False(t, snap.ModuleEnabled(models.ModuleIMS), "seeded module without a stored row is kept")
	assert.Equal(t, []models.ModuleKey{models.ModuleIMS, models.ModulePTW}, snap.OverriddenModules())
}

func TestMigrate_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.migrate(ctx))
	v, err := store.appliedVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].version, v)
}

func TestPing_AfterClose(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "closed.db"), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
}
