package persistence

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalyzer/cabinet/domain/catalog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLocalTenants(t *testing.T) (*Tenants, string) {
	t.Helper()
	dir := t.TempDir()
	tenants := NewLocalTenants(dir, 5*time.Second, discardLogger())
	t.Cleanup(func() { _ = tenants.Close() })
	return tenants, dir
}

func mustTenant(t *testing.T, org, group, user string) catalog.Tenant {
	t.Helper()
	tenant, err := catalog.NewTenant(org, group, user)
	require.NoError(t, err)
	return tenant
}

func TestTenants_ProvisionsOnFirstUse(t *testing.T) {
	tenants, dir := newLocalTenants(t)
	ctx := context.Background()

	store, err := tenants.StoreFor(ctx, mustTenant(t, "acme", "eng", "alice"))
	require.NoError(t, err)

	created, err := store.Create(ctx, sampleCatalog("first"))
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title())

	_, err = os.Stat(filepath.Join(dir, "acme.db"))
	assert.NoError(t, err, "organization gets its own database file")
}

func TestTenants_IsolatesUsersWithinOrg(t *testing.T) {
	tenants, _ := newLocalTenants(t)
	ctx := context.Background()

	alice, err := tenants.StoreFor(ctx, mustTenant(t, "acme", "eng", "alice"))
	require.NoError(t, err)
	bob, err := tenants.StoreFor(ctx, mustTenant(t, "acme", "eng", "bob"))
	require.NoError(t, err)

	created, err := alice.Create(ctx, sampleCatalog("private"))
	require.NoError(t, err)

	_, err = bob.Get(ctx, created.ID())
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	records, err := bob.Search(ctx, nil, "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTenants_IsolatesOrganizations(t *testing.T) {
	tenants, dir := newLocalTenants(t)
	ctx := context.Background()

	acme, err := tenants.StoreFor(ctx, mustTenant(t, "acme", "eng", "alice"))
	require.NoError(t, err)
	umbrella, err := tenants.StoreFor(ctx, mustTenant(t, "umbrella", "eng", "alice"))
	require.NoError(t, err)

	created, err := acme.Create(ctx, sampleCatalog("acme-only"))
	require.NoError(t, err)

	_, err = umbrella.Get(ctx, created.ID())
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = os.Stat(filepath.Join(dir, "acme.db"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "umbrella.db"))
	assert.NoError(t, err)
}

func TestTenants_RepeatedAcquisitionReusesStorage(t *testing.T) {
	tenants, _ := newLocalTenants(t)
	ctx := context.Background()
	tenant := mustTenant(t, "acme", "eng", "alice")

	first, err := tenants.StoreFor(ctx, tenant)
	require.NoError(t, err)
	created, err := first.Create(ctx, sampleCatalog("persisted"))
	require.NoError(t, err)

	second, err := tenants.StoreFor(ctx, tenant)
	require.NoError(t, err)
	got, err := second.Get(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, created.ID(), got.ID())
}

func TestTenants_ConcurrentFirstAcquisition(t *testing.T) {
	tenants, _ := newLocalTenants(t)
	ctx := context.Background()
	tenant := mustTenant(t, "acme", "eng", "alice")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := tenants.StoreFor(ctx, tenant)
			if err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = store.Create(ctx, sampleCatalog("concurrent"))
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	store, err := tenants.StoreFor(ctx, tenant)
	require.NoError(t, err)
	records, err := store.Search(ctx, nil, "")
	require.NoError(t, err)
	assert.Len(t, records, workers)
}

func TestTenants_UnopenableDatabaseIsUnavailable(t *testing.T) {
	// A dataDir whose parent does not exist makes the SQLite open fail.
	dir := filepath.Join(t.TempDir(), "missing", "nested")
	tenants := NewLocalTenants(dir, 5*time.Second, discardLogger())
	t.Cleanup(func() { _ = tenants.Close() })

	_, err := tenants.StoreFor(context.Background(), mustTenant(t, "acme", "eng", "alice"))
	assert.ErrorIs(t, err, catalog.ErrStorageUnavailable,
		"a handle that cannot be opened is a retryable acquisition failure")
}

func TestTenants_IsRemote(t *testing.T) {
	tenants, _ := newLocalTenants(t)
	assert.False(t, tenants.IsRemote())
}
