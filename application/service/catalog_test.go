package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalyzer/cabinet/domain/catalog"
	"github.com/catalyzer/cabinet/infrastructure/persistence"
	"github.com/catalyzer/cabinet/infrastructure/reader"
)

// fakeEmbedder hands out queued vectors in order, or fails when err is
// set. A nil queue repeats the last vector forever.
type fakeEmbedder struct {
	queue [][]float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.queue) == 0 {
		return []float32{1, 0, 0}, nil
	}
	vec := f.queue[0]
	if len(f.queue) > 1 {
		f.queue = f.queue[1:]
	}
	return vec, nil
}

type fakeFetcher struct {
	page   reader.Page
	err    error
	gotURL string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (reader.Page, error) {
	f.gotURL = url
	return f.page, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, embedder Embedder, fetcher Fetcher) (*CatalogService, catalog.Tenant) {
	t.Helper()
	tenants := persistence.NewLocalTenants(t.TempDir(), 5*time.Second, discardLogger())
	t.Cleanup(func() { _ = tenants.Close() })

	tenant, err := catalog.NewTenant("acme", "eng", "alice")
	require.NoError(t, err)

	return NewCatalogService(tenants, embedder, fetcher, discardLogger()), tenant
}

func TestCreate_DefaultsTitle(t *testing.T) {
	svc, tenant := newTestService(t, nil, nil)

	record, err := svc.Create(context.Background(), tenant, catalog.NewCatalog("", "", "", nil, nil, "body", nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, record.Title())
}

func TestCreate_StoresVector(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc, tenant := newTestService(t, embedder, nil)

	record, err := svc.Create(context.Background(), tenant, catalog.NewCatalog("vectorized", "", "", nil, nil, "body", nil))
	require.NoError(t, err)
	assert.True(t, record.HasVector())
	assert.Equal(t, 1, embedder.calls)
}

func TestCreate_ToleratesEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("model overloaded")}
	svc, tenant := newTestService(t, embedder, nil)

	record, err := svc.Create(context.Background(), tenant, catalog.NewCatalog("resilient", "", "", nil, nil, "body", nil))
	require.NoError(t, err, "ingestion must not depend on the embedding service")
	assert.False(t, record.HasVector())
}

func TestCreateFromMarkdown_MapsFrontmatter(t *testing.T) {
	svc, tenant := newTestService(t, nil, nil)

	doc := `---
title: Postgres Guide
author: Ada Lovelace
url: https://example.com/postgres
tags:
  - db
  - postgres
locations:
  - /library/postgres.md
rating: 5
---
# Postgres Guide

Tuning notes.`

	record, err := svc.CreateFromMarkdown(context.Background(), tenant, "upload.md", doc)
	require.NoError(t, err)

	assert.Equal(t, "Postgres Guide", record.Title())
	assert.Equal(t, "Ada Lovelace", record.Author())
	assert.Equal(t, "https://example.com/postgres", record.URL())
	assert.Equal(t, []string{"db", "postgres"}, record.Tags())
	assert.Equal(t, []string{"/library/postgres.md"}, record.Locations())
	assert.Equal(t, "# Postgres Guide\n\nTuning notes.", record.Markdown())
	assert.Contains(t, record.Properties(), "rating", "the full frontmatter map is preserved")
}

func TestCreateFromMarkdown_TitleFromFilename(t *testing.T) {
	svc, tenant := newTestService(t, nil, nil)

	record, err := svc.CreateFromMarkdown(context.Background(), tenant, "notes/runbooks/failover.md", "---\nauthor: Ops\n---\nSteps.")
	require.NoError(t, err)
	assert.Equal(t, "failover", record.Title())
}

func TestCreateFromMarkdown_UntitledFallback(t *testing.T) {
	svc, tenant := newTestService(t, nil, nil)

	record, err := svc.CreateFromMarkdown(context.Background(), tenant, "", "---\nauthor: Ops\n---\nSteps.")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, record.Title())
}

func TestCreateFromMarkdown_HonorsFrontmatterTimestamps(t *testing.T) {
	svc, tenant := newTestService(t, nil, nil)

	doc := `---
title: Archive Entry
created_at: 2020-01-02T03:04:05Z
updated_at: 2021-06-07T08:09:10Z
---
Recovered from the old wiki.`

	record, err := svc.CreateFromMarkdown(context.Background(), tenant, "archive.md", doc)
	require.NoError(t, err)

	assert.True(t, record.CreatedAt().Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)),
		"re-imported documents keep their original creation time")
	assert.True(t, record.UpdatedAt().Equal(time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)))
}

func TestCreateFromMarkdown_MintsTimestampsWhenAbsent(t *testing.T) {
	svc, tenant := newTestService(t, nil, nil)
	before := time.Now().UTC().Add(-time.Second)

	record, err := svc.CreateFromMarkdown(context.Background(), tenant, "fresh.md", "---\ntitle: Fresh\n---\nBody.")
	require.NoError(t, err)
	assert.True(t, record.CreatedAt().After(before))
	assert.True(t, record.UpdatedAt().Equal(record.CreatedAt()))
}

func TestCreateFromMarkdown_RejectsMissingFrontmatter(t *testing.T) {
	svc, tenant := newTestService(t, nil, nil)

	_, err := svc.CreateFromMarkdown(context.Background(), tenant, "plain.md", "# No frontmatter here")
	assert.ErrorIs(t, err, catalog.ErrInvalidDocument)
}

func TestCreateFromURL_StoresFetchedPage(t *testing.T) {
	fetcher := &fakeFetcher{page: reader.Page{Title: "Example Docs", Markdown: "# Example Docs\n\nContent."}}
	svc, tenant := newTestService(t, nil, fetcher)

	record, err := svc.CreateFromURL(context.Background(), tenant, "https://example.com/docs")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/docs", fetcher.gotURL)
	assert.Equal(t, "Example Docs", record.Title())
	assert.Equal(t, "https://example.com/docs", record.URL())
	assert.Equal(t, []string{"https://example.com/docs"}, record.Locations())
	assert.Equal(t, "# Example Docs\n\nContent.", record.Markdown())
}

func TestCreateFromURL_SynthesizesProperties(t *testing.T) {
	fetcher := &fakeFetcher{page: reader.Page{Title: "Example Docs", Markdown: "content"}}
	svc, tenant := newTestService(t, nil, fetcher)

	record, err := svc.CreateFromURL(context.Background(), tenant, "https://example.com/docs")
	require.NoError(t, err)

	props := record.Properties()
	assert.Equal(t, "Example Docs", props["title"])
	assert.Equal(t, "https://example.com/docs", props["url"])
	assert.Equal(t, []any{"https://example.com/docs"}, props["locations"])
	assert.Contains(t, props, "created_at")
	assert.Contains(t, props, "updated_at")
}

func TestCreateFromURL_WithoutFetcher(t *testing.T) {
	svc, tenant := newTestService(t, nil, nil)

	_, err := svc.CreateFromURL(context.Background(), tenant, "https://example.com")
	assert.ErrorIs(t, err, catalog.ErrFetchFailed)
}

func TestCreateFromURL_PropagatesFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: catalog.ErrFetchFailed}
	svc, tenant := newTestService(t, nil, fetcher)

	_, err := svc.CreateFromURL(context.Background(), tenant, "https://example.com")
	assert.ErrorIs(t, err, catalog.ErrFetchFailed)
}

func TestUpdate_ReembedsWhenContentChanges(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc, tenant := newTestService(t, embedder, nil)
	ctx := context.Background()

	record, err := svc.Create(ctx, tenant, catalog.NewCatalog("doc", "", "", nil, nil, "v1", nil))
	require.NoError(t, err)
	require.Equal(t, 1, embedder.calls)

	_, err = svc.Update(ctx, tenant, record.ID(), catalog.Patch{Markdown: catalog.Set("v2")})
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.calls, "markdown change triggers a re-embed")

	_, err = svc.Update(ctx, tenant, record.ID(), catalog.Patch{Author: catalog.Set("Ada")})
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.calls, "metadata-only change does not re-embed")
}

func TestUpdate_KeepsStaleVectorOnEmbedFailure(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc, tenant := newTestService(t, embedder, nil)
	ctx := context.Background()

	record, err := svc.Create(ctx, tenant, catalog.NewCatalog("doc", "", "", nil, nil, "v1", nil))
	require.NoError(t, err)

	embedder.err = errors.New("model overloaded")
	updated, err := svc.Update(ctx, tenant, record.ID(), catalog.Patch{Markdown: catalog.Set("v2")})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Markdown())
	assert.True(t, updated.HasVector(), "the previous vector survives an embed failure")
}

func TestSearchSimilar_RanksByVector(t *testing.T) {
	embedder := &fakeEmbedder{queue: [][]float32{
		{1, 0, 0},   // "near" at create
		{0, 1, 0},   // "far" at create
		{0.9, 0.1, 0}, // query
	}}
	svc, tenant := newTestService(t, embedder, nil)
	ctx := context.Background()

	near, err := svc.Create(ctx, tenant, catalog.NewCatalog("near", "", "", nil, nil, "a", nil))
	require.NoError(t, err)
	_, err = svc.Create(ctx, tenant, catalog.NewCatalog("far", "", "", nil, nil, "b", nil))
	require.NoError(t, err)

	records, err := svc.SearchSimilar(ctx, tenant, "query", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, near.ID(), records[0].ID())
}

func TestSearchSimilar_FallsBackWithoutEmbedder(t *testing.T) {
	svc, tenant := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, tenant, catalog.NewCatalog("postgres tips", "", "", nil, nil, "body", nil))
	require.NoError(t, err)
	_, err = svc.Create(ctx, tenant, catalog.NewCatalog("redis tips", "", "", nil, nil, "body", nil))
	require.NoError(t, err)

	records, err := svc.SearchSimilar(ctx, tenant, "postgres", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "postgres tips", records[0].Title())
}

func TestSearchSimilar_FallsBackOnEmbedFailure(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc, tenant := newTestService(t, embedder, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, tenant, catalog.NewCatalog("postgres tips", "", "", nil, nil, "body", nil))
	require.NoError(t, err)

	embedder.err = errors.New("model overloaded")
	records, err := svc.SearchSimilar(ctx, tenant, "postgres", 10)
	require.NoError(t, err, "a broken embedding service degrades to text search")
	require.Len(t, records, 1)
	assert.Equal(t, "postgres tips", records[0].Title())
}
