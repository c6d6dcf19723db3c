package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/catalyzer/cabinet/domain/catalog"
	"github.com/catalyzer/cabinet/internal/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogStore executes CRUD and search against one resolved tenant
// table. Stateless per call; all state lives in the table itself.
type CatalogStore struct {
	database.Repository[catalog.Catalog, CatalogModel]
	db database.Database
}

// NewCatalogStore creates a store bound to a tenant's table. The table
// name must already be validated and provisioned by the resolver.
func NewCatalogStore(db database.Database, table string) CatalogStore {
	return CatalogStore{
		Repository: database.NewRepositoryForTable[catalog.Catalog, CatalogModel](
			db, CatalogMapper{}, "catalog", table),
		db: db,
	}
}

// Create inserts a record, minting the id and timestamps when the
// caller did not supply them, then re-reads the canonical stored form
// so driver-level defaults never leak into the returned record.
func (s CatalogStore) Create(ctx context.Context, c catalog.Catalog) (catalog.Catalog, error) {
	if c.ID() == uuid.Nil {
		c = c.WithID(uuid.New())
	}

	now := time.Now().UTC()
	createdAt := c.CreatedAt()
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := c.UpdatedAt()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	c = c.WithTimestamps(createdAt, updatedAt)

	model := s.Mapper().ToModel(c)
	if result := s.DB(ctx).Create(&model); result.Error != nil {
		return catalog.Catalog{}, fmt.Errorf("%w: insert catalog %s: %v", catalog.ErrStorage, model.ID, result.Error)
	}

	return s.Get(ctx, c.ID())
}

// Get fetches a record by primary key. A missing row is reported as
// catalog.ErrNotFound, never as a driver error.
func (s CatalogStore) Get(ctx context.Context, id uuid.UUID) (catalog.Catalog, error) {
	c, err := s.FindOne(ctx, catalog.WithID(id))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return catalog.Catalog{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
		}
		return catalog.Catalog{}, fmt.Errorf("%w: get catalog %s: %v", catalog.ErrStorage, id, err)
	}
	return c, nil
}

// Update applies a partial update. Only fields explicitly set on the
// patch are written; updated_at is always overwritten with the current
// time, even for an empty patch. The existence check, write, and
// read-back run in one transaction so concurrent writers cannot
// interleave between them.
func (s CatalogStore) Update(ctx context.Context, id uuid.UUID, patch catalog.Patch) (catalog.Catalog, error) {
	model, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) (CatalogModel, error) {
		var count int64
		if result := tx.Table(s.Table()).Where("id = ?", id.String()).Count(&count); result.Error != nil {
			return CatalogModel{}, fmt.Errorf("%w: check catalog %s: %v", catalog.ErrStorage, id, result.Error)
		}
		if count == 0 {
			return CatalogModel{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
		}

		updates := patchUpdates(patch)
		updates["updated_at"] = time.Now().UTC()

		if result := tx.Table(s.Table()).Where("id = ?", id.String()).Updates(updates); result.Error != nil {
			return CatalogModel{}, fmt.Errorf("%w: update catalog %s: %v", catalog.ErrStorage, id, result.Error)
		}

		var updated CatalogModel
		if result := tx.Table(s.Table()).Where("id = ?", id.String()).First(&updated); result.Error != nil {
			return CatalogModel{}, fmt.Errorf("%w: read back catalog %s: %v", catalog.ErrStorage, id, result.Error)
		}
		return updated, nil
	})
	if err != nil {
		return catalog.Catalog{}, err
	}
	return s.Mapper().ToDomain(model), nil
}

// Delete removes a record and reports whether a row was actually
// removed. Deleting a nonexistent id returns false, not an error.
func (s CatalogStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	rows, err := s.DeleteBy(ctx, catalog.WithID(id))
	if err != nil {
		return false, fmt.Errorf("%w: delete catalog %s: %v", catalog.ErrStorage, id, err)
	}
	return rows > 0, nil
}

// Search filters the tenant's records. Supplied tags match rows whose
// tag array contains any of them (OR); a text query matches title or
// markdown case-insensitively; the two groups combine with AND. With no
// filters every record is returned. Results are ordered by updated_at
// descending so listings are deterministic.
func (s CatalogStore) Search(ctx context.Context, tags []string, text string) ([]catalog.Catalog, error) {
	q := database.NewQuery()

	if len(tags) > 0 {
		clauses := make([]database.Clause, len(tags))
		for i, tag := range tags {
			clauses[i] = database.ContainsElement("tags", tag)
		}
		q = q.WhereAny(clauses...)
	}

	if text != "" {
		q = q.WhereAny(
			database.MatchesText("title", text),
			database.MatchesText("markdown", text),
		)
	}

	q = q.Order("updated_at", database.SortDesc)

	var models []CatalogModel
	if result := q.Apply(s.DB(ctx)).Find(&models); result.Error != nil {
		return nil, fmt.Errorf("%w: search catalogs: %v", catalog.ErrStorage, result.Error)
	}

	records := make([]catalog.Catalog, len(models))
	for i, model := range models {
		records[i] = s.Mapper().ToDomain(model)
	}
	return records, nil
}

// SearchByVector ranks records carrying a similarity vector against the
// query vector by cosine similarity and returns the top limit matches.
// Ranking runs in-process; tenant tables are small enough that shipping
// the candidate vectors is cheaper than engine-side operators.
func (s CatalogStore) SearchByVector(ctx context.Context, query []float32, limit int) ([]catalog.Catalog, error) {
	var models []CatalogModel
	result := s.DB(ctx).Where("vector IS NOT NULL").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: vector search: %v", catalog.ErrStorage, result.Error)
	}

	type scored struct {
		record catalog.Catalog
		score  float64
	}
	matches := make([]scored, 0, len(models))
	for _, model := range models {
		record := s.Mapper().ToDomain(model)
		if !record.HasVector() {
			continue
		}
		matches = append(matches, scored{
			record: record,
			score:  CosineSimilarity(query, record.Vector()),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	records := make([]catalog.Catalog, len(matches))
	for i, m := range matches {
		records[i] = m.record
	}
	return records, nil
}

// patchUpdates builds the SET map from the fields explicitly supplied
// on the patch, using the same encoding as the row mapper.
func patchUpdates(patch catalog.Patch) map[string]any {
	updates := make(map[string]any)
	if patch.Title.IsSet() {
		updates["title"] = patch.Title.Value()
	}
	if patch.Author.IsSet() {
		updates["author"] = patch.Author.Value()
	}
	if patch.URL.IsSet() {
		updates["url"] = patch.URL.Value()
	}
	if patch.Tags.IsSet() {
		updates["tags"] = encodeStrings(patch.Tags.Value())
	}
	if patch.Locations.IsSet() {
		updates["locations"] = encodeStrings(patch.Locations.Value())
	}
	if patch.Markdown.IsSet() {
		updates["markdown"] = patch.Markdown.Value()
	}
	if patch.Properties.IsSet() {
		updates["properties"] = encodeProperties(patch.Properties.Value())
	}
	if patch.Vector.IsSet() {
		updates["vector"] = encodeVector(patch.Vector.Value())
	}
	return updates
}
