// Package service orchestrates catalog operations across tenant
// storage, ingestion, and embedding.
package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/catalyzer/cabinet/domain/catalog"
	"github.com/catalyzer/cabinet/infrastructure/markdown"
	"github.com/catalyzer/cabinet/infrastructure/persistence"
	"github.com/catalyzer/cabinet/infrastructure/reader"
)

// DefaultTitle is used when an ingested document carries no title.
const DefaultTitle = "Untitled"

// Embedder generates an embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Fetcher converts a URL into a markdown page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (reader.Page, error)
}

// CatalogService implements catalog use cases on top of per-tenant
// stores. The embedder and fetcher are optional; without an embedder
// records are stored unvectorized and similarity search degrades to
// text search, without a fetcher URL ingestion is disabled.
type CatalogService struct {
	tenants  *persistence.Tenants
	embedder Embedder
	fetcher  Fetcher
	logger   *slog.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(tenants *persistence.Tenants, embedder Embedder, fetcher Fetcher, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		tenants:  tenants,
		embedder: embedder,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// Create stores a new catalog record for the tenant. When an embedder
// is configured the record is vectorized first; an embedding failure is
// logged and tolerated so ingestion never depends on the AI service
// being up.
func (s *CatalogService) Create(ctx context.Context, tenant catalog.Tenant, record catalog.Catalog) (catalog.Catalog, error) {
	store, err := s.tenants.StoreFor(ctx, tenant)
	if err != nil {
		return catalog.Catalog{}, err
	}

	if record.Title() == "" {
		record = record.WithTitle(DefaultTitle)
	}

	record = s.vectorize(ctx, record)
	return store.Create(ctx, record)
}

// CreateFromMarkdown ingests a raw markdown document with YAML
// frontmatter. Known frontmatter fields populate the bibliographic
// columns and the complete frontmatter map is preserved as properties.
// The title falls back to the source filename when the frontmatter has
// none, then to DefaultTitle. Explicit created_at/updated_at fields
// override the server-minted timestamps so re-imported archives keep
// their history.
func (s *CatalogService) CreateFromMarkdown(ctx context.Context, tenant catalog.Tenant, filename, raw string) (catalog.Catalog, error) {
	doc, err := markdown.Parse(raw)
	if err != nil {
		return catalog.Catalog{}, err
	}

	title := doc.String("title")
	if title == "" {
		title = titleFromFilename(filename)
	}

	record := catalog.NewCatalog(
		title,
		doc.String("author"),
		doc.String("url"),
		doc.Strings("tags"),
		doc.Strings("locations"),
		doc.Body(),
		doc.Meta(),
	)

	created, hasCreated := doc.Time("created_at")
	updated, hasUpdated := doc.Time("updated_at")
	if hasCreated || hasUpdated {
		record = record.WithTimestamps(created, updated)
	}

	return s.Create(ctx, tenant, record)
}

// CreateFromURL fetches a web page through the reader service and
// stores its markdown rendition as a new record. The minimal metadata
// a frontmatter document would carry is synthesized and preserved as
// properties, so from-URL records look like any other ingested
// document.
func (s *CatalogService) CreateFromURL(ctx context.Context, tenant catalog.Tenant, url string) (catalog.Catalog, error) {
	if s.fetcher == nil {
		return catalog.Catalog{}, catalog.ErrFetchFailed
	}

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return catalog.Catalog{}, err
	}

	now := time.Now().UTC()
	properties := map[string]any{
		"title":      page.Title,
		"author":     "",
		"url":        url,
		"tags":       []string{},
		"locations":  []string{url},
		"created_at": now.Format(time.RFC3339),
		"updated_at": now.Format(time.RFC3339),
	}

	record := catalog.NewCatalog(page.Title, "", url, nil, []string{url}, page.Markdown, properties)
	record = record.WithTimestamps(now, now)
	return s.Create(ctx, tenant, record)
}

// Get retrieves one record by id.
func (s *CatalogService) Get(ctx context.Context, tenant catalog.Tenant, id uuid.UUID) (catalog.Catalog, error) {
	store, err := s.tenants.StoreFor(ctx, tenant)
	if err != nil {
		return catalog.Catalog{}, err
	}
	return store.Get(ctx, id)
}

// Update applies a partial update to a record. When the patch touches
// the title or markdown and an embedder is configured, the vector is
// recomputed from the stored record afterward.
func (s *CatalogService) Update(ctx context.Context, tenant catalog.Tenant, id uuid.UUID, patch catalog.Patch) (catalog.Catalog, error) {
	store, err := s.tenants.StoreFor(ctx, tenant)
	if err != nil {
		return catalog.Catalog{}, err
	}

	if s.embedder != nil && (patch.Title.IsSet() || patch.Markdown.IsSet()) && !patch.Vector.IsSet() {
		current, err := store.Get(ctx, id)
		if err != nil {
			return catalog.Catalog{}, err
		}
		title := current.Title()
		if patch.Title.IsSet() {
			title = patch.Title.Value()
		}
		body := current.Markdown()
		if patch.Markdown.IsSet() {
			body = patch.Markdown.Value()
		}
		if vec, embErr := s.embedder.Embed(ctx, embeddingText(title, body)); embErr != nil {
			s.logger.WarnContext(ctx, "embedding failed, keeping stale vector",
				slog.String("id", id.String()), slog.String("error", embErr.Error()))
		} else {
			patch.Vector = catalog.Set(vec)
		}
	}

	return store.Update(ctx, id, patch)
}

// Delete removes a record, reporting whether it existed.
func (s *CatalogService) Delete(ctx context.Context, tenant catalog.Tenant, id uuid.UUID) (bool, error) {
	store, err := s.tenants.StoreFor(ctx, tenant)
	if err != nil {
		return false, err
	}
	return store.Delete(ctx, id)
}

// Search filters the tenant's records by tags (any match) and a
// case-insensitive text query over title and markdown.
func (s *CatalogService) Search(ctx context.Context, tenant catalog.Tenant, tags []string, text string) ([]catalog.Catalog, error) {
	store, err := s.tenants.StoreFor(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return store.Search(ctx, tags, text)
}

// SearchSimilar embeds the query text and ranks the tenant's records by
// cosine similarity. When no embedder is configured, or embedding the
// query fails, it degrades to the substring search so callers always
// get an answer.
func (s *CatalogService) SearchSimilar(ctx context.Context, tenant catalog.Tenant, text string, limit int) ([]catalog.Catalog, error) {
	store, err := s.tenants.StoreFor(ctx, tenant)
	if err != nil {
		return nil, err
	}

	if s.embedder != nil {
		query, embErr := s.embedder.Embed(ctx, text)
		if embErr == nil {
			return store.SearchByVector(ctx, query, limit)
		}
		s.logger.WarnContext(ctx, "query embedding failed, falling back to text search",
			slog.String("error", embErr.Error()))
	}

	records, err := store.Search(ctx, nil, text)
	if err != nil {
		return nil, err
	}
	return truncate(records, limit), nil
}

func truncate(records []catalog.Catalog, limit int) []catalog.Catalog {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}

// vectorize attaches an embedding to the record when possible. Failures
// are logged, never propagated.
func (s *CatalogService) vectorize(ctx context.Context, record catalog.Catalog) catalog.Catalog {
	if s.embedder == nil || record.HasVector() {
		return record
	}

	vec, err := s.embedder.Embed(ctx, embeddingText(record.Title(), record.Markdown()))
	if err != nil {
		s.logger.WarnContext(ctx, "embedding failed, storing without vector",
			slog.String("title", record.Title()), slog.String("error", err.Error()))
		return record
	}
	return record.WithVector(vec)
}

// embeddingText builds the text that gets embedded for a record.
func embeddingText(title, body string) string {
	if title == "" {
		return body
	}
	return title + "\n\n" + body
}

// titleFromFilename derives a title from an upload filename by
// stripping the directory and extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
