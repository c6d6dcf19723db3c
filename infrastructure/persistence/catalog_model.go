// Package persistence provides catalog storage over per-tenant tables.
package persistence

import (
	"encoding/json"
	"time"

	"github.com/catalyzer/cabinet/domain/catalog"
	"github.com/google/uuid"
)

// rawPropertiesKey carries an unparsable properties blob through decode
// instead of failing the whole row.
const rawPropertiesKey = "_raw"

// CatalogModel is the flat row representation of a catalog record.
// Tags, locations, and the optional vector are JSON-encoded text;
// properties is a JSON blob that is NULL when the map is empty.
// Timestamp auto-tracking is disabled because the store owns both
// values explicitly.
type CatalogModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Title      string    `gorm:"column:title"`
	Author     string    `gorm:"column:author"`
	URL        string    `gorm:"column:url"`
	Tags       string    `gorm:"column:tags"`
	Locations  string    `gorm:"column:locations"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	Markdown   string    `gorm:"column:markdown"`
	Properties *string   `gorm:"column:properties"`
	Vector     *string   `gorm:"column:vector"`
}

// CatalogMapper converts between domain Catalog records and rows.
type CatalogMapper struct{}

// ToModel encodes a catalog record for persistence.
func (m CatalogMapper) ToModel(c catalog.Catalog) CatalogModel {
	return CatalogModel{
		ID:         c.ID().String(),
		Title:      c.Title(),
		Author:     c.Author(),
		URL:        c.URL(),
		Tags:       encodeStrings(c.Tags()),
		Locations:  encodeStrings(c.Locations()),
		CreatedAt:  c.CreatedAt().UTC(),
		UpdatedAt:  c.UpdatedAt().UTC(),
		Markdown:   c.Markdown(),
		Properties: encodeProperties(c.Properties()),
		Vector:     encodeVector(c.Vector()),
	}
}

// ToDomain decodes a row back into a catalog record.
func (m CatalogMapper) ToDomain(e CatalogModel) catalog.Catalog {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		id = uuid.Nil
	}
	return catalog.ReconstructCatalog(
		id,
		e.Title,
		e.Author,
		e.URL,
		decodeStrings(e.Tags),
		decodeStrings(e.Locations),
		e.Markdown,
		decodeProperties(e.Properties),
		decodeVector(e.Vector),
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
}

func encodeStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeStrings(blob string) []string {
	if blob == "" {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal([]byte(blob), &values); err != nil {
		return []string{}
	}
	return values
}

// encodeProperties returns NULL for an empty or absent map, never the
// JSON text "null" or "{}".
func encodeProperties(props map[string]any) *string {
	if len(props) == 0 {
		return nil
	}
	// An unparsable blob read back earlier is written out unchanged.
	if raw, ok := props[rawPropertiesKey].(string); ok && len(props) == 1 {
		return &raw
	}
	b, err := json.Marshal(props)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// decodeProperties parses the JSON blob back into a map. A blob that
// does not parse is preserved under the "_raw" key rather than dropped.
func decodeProperties(blob *string) map[string]any {
	if blob == nil || *blob == "" {
		return nil
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(*blob), &props); err != nil {
		return map[string]any{rawPropertiesKey: *blob}
	}
	return props
}

func encodeVector(vec []float32) *string {
	if len(vec) == 0 {
		return nil
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func decodeVector(blob *string) []float32 {
	if blob == nil || *blob == "" {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(*blob), &vec); err != nil {
		return nil
	}
	return vec
}
