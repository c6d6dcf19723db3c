package cabinet

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalyzer/cabinet/domain/catalog"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := New(
		WithDataDir(t.TempDir()),
		WithAcquireTimeout(5*time.Second),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_CatalogLifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	tenant, err := catalog.NewTenant("acme", "research", "jane")
	require.NoError(t, err)

	created, err := client.Catalogs.CreateFromMarkdown(ctx, tenant, "notes.md",
		"---\ntitle: Field Notes\ntags: research\n---\nObservations.")
	require.NoError(t, err)
	assert.Equal(t, "Field Notes", created.Title())

	got, err := client.Catalogs.Get(ctx, tenant, created.ID())
	require.NoError(t, err)
	assert.Equal(t, "Observations.", got.Markdown())

	records, err := client.Catalogs.Search(ctx, tenant, []string{"research"}, "")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	removed, err := client.Catalogs.Delete(ctx, tenant, created.ID())
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestClient_CloseIdempotent(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestClient_APIKeysCopied(t *testing.T) {
	client, err := New(
		WithDataDir(t.TempDir()),
		WithAPIKeys([]string{"secret"}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	keys := client.APIKeys()
	keys[0] = "mutated"
	assert.Equal(t, []string{"secret"}, client.APIKeys())
}
