package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/catalyzer/cabinet/domain/catalog"
	"github.com/catalyzer/cabinet/internal/database"
	"golang.org/x/sync/singleflight"
)

// Tenant table columns are identical in both backends; only the
// timestamp type differs. Identifiers are interpolated directly, which
// is safe because every segment has already passed the identifier
// allow-list in catalog.NewTenant.
const (
	sqliteTableDDL = `CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		locations TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		markdown TEXT NOT NULL DEFAULT '',
		properties TEXT,
		vector TEXT
	)`

	postgresSchemaDDL = `CREATE SCHEMA IF NOT EXISTS %s`

	postgresTableDDL = `CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		locations TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		markdown TEXT NOT NULL DEFAULT '',
		properties TEXT,
		vector TEXT
	)`
)

// Tenants lazily provisions per-tenant storage and hands out stores
// bound to the tenant's table. In local mode each organization gets its
// own embedded SQLite file under dataDir and each group/user pair a
// table in it. In remote mode all tenants share one PostgreSQL database
// with a schema per organization/group and a table per user.
//
// Provisioning is cached after first success and deduplicated with
// singleflight so a burst of first requests for the same tenant runs
// the DDL once.
type Tenants struct {
	dataDir        string
	shared         *database.Database
	acquireTimeout time.Duration
	logger         *slog.Logger

	flight singleflight.Group

	mu     sync.Mutex
	orgDBs map[string]database.Database
	ready  map[string]struct{}
}

// NewLocalTenants creates a provisioner backed by per-organization
// SQLite files under dataDir.
func NewLocalTenants(dataDir string, acquireTimeout time.Duration, logger *slog.Logger) *Tenants {
	return &Tenants{
		dataDir:        dataDir,
		acquireTimeout: acquireTimeout,
		logger:         logger,
		orgDBs:         make(map[string]database.Database),
		ready:          make(map[string]struct{}),
	}
}

// NewRemoteTenants creates a provisioner backed by a shared PostgreSQL
// database.
func NewRemoteTenants(db database.Database, acquireTimeout time.Duration, logger *slog.Logger) *Tenants {
	return &Tenants{
		shared:         &db,
		acquireTimeout: acquireTimeout,
		logger:         logger,
		ready:          make(map[string]struct{}),
	}
}

// IsRemote reports whether tenants share a remote database.
func (t *Tenants) IsRemote() bool {
	return t.shared != nil
}

// StoreFor returns a store for the tenant, provisioning its database
// and table on first use. Acquisition is bounded by the configured
// timeout; hitting it reports catalog.ErrStorageUnavailable so callers
// can surface a retryable condition instead of hanging.
func (t *Tenants) StoreFor(ctx context.Context, tenant catalog.Tenant) (CatalogStore, error) {
	ctx, cancel := context.WithTimeout(ctx, t.acquireTimeout)
	defer cancel()

	db, table, err := t.resolve(ctx, tenant)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return CatalogStore{}, fmt.Errorf("%w: acquire storage for %s: %v", catalog.ErrStorageUnavailable, tenant, err)
		}
		return CatalogStore{}, err
	}
	return NewCatalogStore(db, table), nil
}

// resolve picks the backing database and fully qualified table name for
// the tenant, running provisioning DDL when the tenant is new.
func (t *Tenants) resolve(ctx context.Context, tenant catalog.Tenant) (database.Database, string, error) {
	if t.shared != nil {
		table := fmt.Sprintf("%s_%s.%s", tenant.Org(), tenant.Group(), tenant.User())
		if err := t.ensure(ctx, *t.shared, tenant, table); err != nil {
			return database.Database{}, "", err
		}
		return *t.shared, table, nil
	}

	db, err := t.orgDatabase(ctx, tenant.Org())
	if err != nil {
		return database.Database{}, "", err
	}
	table := fmt.Sprintf("%s_%s", tenant.Group(), tenant.User())
	if err := t.ensure(ctx, db, tenant, table); err != nil {
		return database.Database{}, "", err
	}
	return db, table, nil
}

// orgDatabase opens (once) the SQLite file for an organization.
func (t *Tenants) orgDatabase(ctx context.Context, org string) (database.Database, error) {
	t.mu.Lock()
	db, ok := t.orgDBs[org]
	t.mu.Unlock()
	if ok {
		return db, nil
	}

	ch := t.flight.DoChan("open:"+org, func() (any, error) {
		path := filepath.Join(t.dataDir, org+".db")
		opened, err := database.NewDatabase(ctx, "sqlite:///"+path)
		if err != nil {
			// An unopenable handle is a retryable acquisition failure,
			// not a statement-level storage error.
			return nil, fmt.Errorf("%w: open organization database %s: %v", catalog.ErrStorageUnavailable, org, err)
		}

		t.mu.Lock()
		t.orgDBs[org] = opened
		t.mu.Unlock()

		t.logger.DebugContext(ctx, "opened organization database", slog.String("org", org), slog.String("path", path))
		return opened, nil
	})

	select {
	case <-ctx.Done():
		return database.Database{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return database.Database{}, res.Err
		}
		return res.Val.(database.Database), nil
	}
}

// ensure runs the provisioning DDL for a tenant exactly once per
// process lifetime.
func (t *Tenants) ensure(ctx context.Context, db database.Database, tenant catalog.Tenant, table string) error {
	key := tenant.String()

	t.mu.Lock()
	_, ok := t.ready[key]
	t.mu.Unlock()
	if ok {
		return nil
	}

	ch := t.flight.DoChan("ensure:"+key, func() (any, error) {
		session := db.Session(ctx)

		if t.shared != nil {
			schema := fmt.Sprintf("%s_%s", tenant.Org(), tenant.Group())
			if err := session.Exec(fmt.Sprintf(postgresSchemaDDL, schema)).Error; err != nil {
				return nil, fmt.Errorf("%w: create schema %s: %v", catalog.ErrStorage, schema, err)
			}
			if err := session.Exec(fmt.Sprintf(postgresTableDDL, table)).Error; err != nil {
				return nil, fmt.Errorf("%w: create table %s: %v", catalog.ErrStorage, table, err)
			}
		} else {
			if err := session.Exec(fmt.Sprintf(sqliteTableDDL, table)).Error; err != nil {
				return nil, fmt.Errorf("%w: create table %s: %v", catalog.ErrStorage, table, err)
			}
		}

		t.mu.Lock()
		t.ready[key] = struct{}{}
		t.mu.Unlock()

		t.logger.DebugContext(ctx, "provisioned tenant table", slog.String("tenant", key), slog.String("table", table))
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// Close closes every organization database opened in local mode. The
// shared remote database is owned by the caller and left open.
func (t *Tenants) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for org, db := range t.orgDBs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", org, err))
		}
		delete(t.orgDBs, org)
	}
	return errors.Join(errs...)
}
