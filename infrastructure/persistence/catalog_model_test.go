package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalyzer/cabinet/domain/catalog"
)

func TestCatalogMapper_RoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 3, 2, 11, 30, 0, 0, time.UTC)
	original := catalog.ReconstructCatalog(
		uuid.New(),
		"Postgres Guide",
		"Ada Lovelace",
		"https://example.com/postgres",
		[]string{"db", "postgres"},
		[]string{"https://example.com/postgres", "/library/db/postgres.md"},
		"# Postgres Guide\n\nTuning notes.",
		map[string]any{"rating": "5", "draft": false},
		[]float32{0.1, -0.5, 0.25},
		created,
		updated,
	)

	mapper := CatalogMapper{}
	got := mapper.ToDomain(mapper.ToModel(original))

	assert.Equal(t, original.ID(), got.ID())
	assert.Equal(t, original.Title(), got.Title())
	assert.Equal(t, original.Author(), got.Author())
	assert.Equal(t, original.URL(), got.URL())
	assert.Equal(t, original.Tags(), got.Tags())
	assert.Equal(t, original.Locations(), got.Locations())
	assert.Equal(t, original.Markdown(), got.Markdown())
	assert.Equal(t, original.Vector(), got.Vector())
	assert.True(t, got.CreatedAt().Equal(created))
	assert.True(t, got.UpdatedAt().Equal(updated))

	// JSON decoding loses Go types: numbers come back as float64.
	assert.Equal(t, "5", got.Properties()["rating"])
	assert.Equal(t, false, got.Properties()["draft"])
}

func TestCatalogMapper_EmptyCollections(t *testing.T) {
	record := catalog.NewCatalog("Bare", "", "", nil, nil, "", nil)

	mapper := CatalogMapper{}
	model := mapper.ToModel(record)

	assert.Equal(t, "[]", model.Tags)
	assert.Equal(t, "[]", model.Locations)
	assert.Nil(t, model.Properties)
	assert.Nil(t, model.Vector)

	got := mapper.ToDomain(model)
	assert.Equal(t, []string{}, got.Tags())
	assert.Equal(t, []string{}, got.Locations())
	assert.Nil(t, got.Properties())
	assert.False(t, got.HasVector())
}

func TestEncodeProperties_EmptyMapIsNull(t *testing.T) {
	assert.Nil(t, encodeProperties(nil))
	assert.Nil(t, encodeProperties(map[string]any{}))
}

func TestDecodeProperties_UnparsableBlobPreserved(t *testing.T) {
	blob := "{not valid json"

	props := decodeProperties(&blob)
	require.Equal(t, map[string]any{rawPropertiesKey: blob}, props)

	// Writing the record back must not mangle the original blob.
	encoded := encodeProperties(props)
	require.NotNil(t, encoded)
	assert.Equal(t, blob, *encoded)
}

func TestDecodeStrings_BadBlob(t *testing.T) {
	assert.Equal(t, []string{}, decodeStrings("not json"))
	assert.Equal(t, []string{}, decodeStrings(""))
}

func TestDecodeVector_BadBlob(t *testing.T) {
	blob := "oops"
	assert.Nil(t, decodeVector(&blob))
	assert.Nil(t, decodeVector(nil))
}
