// Package catalog provides domain types for tenant-scoped catalog records.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Catalog represents one cataloged document: a markdown body plus
// bibliographic metadata and an open-ended properties map.
// Immutable value object identified by its ID once persisted.
type Catalog struct {
	id         uuid.UUID
	title      string
	author     string
	url        string
	tags       []string
	locations  []string
	markdown   string
	properties map[string]any
	vector     []float32
	createdAt  time.Time
	updatedAt  time.Time
}

// NewCatalog creates a catalog record that has not been persisted yet.
// The store assigns the ID and timestamps on create unless they were
// supplied via WithID or WithTimestamps.
func NewCatalog(title, author, url string, tags, locations []string, markdown string, properties map[string]any) Catalog {
	return Catalog{
		title:      title,
		author:     author,
		url:        url,
		tags:       tags,
		locations:  locations,
		markdown:   markdown,
		properties: properties,
	}
}

// ReconstructCatalog recreates a catalog from persistence.
func ReconstructCatalog(
	id uuid.UUID,
	title, author, url string,
	tags, locations []string,
	markdown string,
	properties map[string]any,
	vector []float32,
	createdAt, updatedAt time.Time,
) Catalog {
	return Catalog{
		id:         id,
		title:      title,
		author:     author,
		url:        url,
		tags:       tags,
		locations:  locations,
		markdown:   markdown,
		properties: properties,
		vector:     vector,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

// ID returns the catalog's identifier (uuid.Nil until assigned).
func (c Catalog) ID() uuid.UUID { return c.id }

// Title returns the display title.
func (c Catalog) Title() string { return c.title }

// Author returns the author display string.
func (c Catalog) Author() string { return c.author }

// URL returns the canonical source URL.
func (c Catalog) URL() string { return c.url }

// Tags returns the tag list.
func (c Catalog) Tags() []string { return c.tags }

// Locations returns the location URLs or paths.
func (c Catalog) Locations() []string { return c.locations }

// Markdown returns the full body text.
func (c Catalog) Markdown() string { return c.markdown }

// Properties returns the open key/value metadata map.
func (c Catalog) Properties() map[string]any { return c.properties }

// Vector returns the similarity vector, or nil when none was computed.
func (c Catalog) Vector() []float32 { return c.vector }

// HasVector reports whether a similarity vector is attached.
func (c Catalog) HasVector() bool { return len(c.vector) > 0 }

// CreatedAt returns the creation timestamp.
func (c Catalog) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the last-modification timestamp.
func (c Catalog) UpdatedAt() time.Time { return c.updatedAt }

// WithTitle returns a copy with the given title.
func (c Catalog) WithTitle(title string) Catalog {
	c.title = title
	return c
}

// WithID returns a copy with the given identifier.
func (c Catalog) WithID(id uuid.UUID) Catalog {
	c.id = id
	return c
}

// WithTimestamps returns a copy with explicit timestamps, used when an
// ingestion source supplies its own created_at/updated_at.
func (c Catalog) WithTimestamps(createdAt, updatedAt time.Time) Catalog {
	c.createdAt = createdAt
	c.updatedAt = updatedAt
	return c
}

// WithVector returns a copy carrying the given similarity vector.
func (c Catalog) WithVector(vector []float32) Catalog {
	c.vector = vector
	return c
}
