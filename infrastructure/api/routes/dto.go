package routes

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/catalyzer/cabinet/domain/catalog"
)

var validate = validator.New()

// CreateCatalogRequest is the JSON payload for creating a record.
type CreateCatalogRequest struct {
	Title      string         `json:"title" validate:"required"`
	Author     string         `json:"author"`
	URL        string         `json:"url" validate:"omitempty,url"`
	Tags       []string       `json:"tags"`
	Locations  []string       `json:"locations"`
	Markdown   string         `json:"markdown"`
	Properties map[string]any `json:"properties"`
}

// Validate checks payload constraints.
func (req CreateCatalogRequest) Validate() error {
	return validate.Struct(req)
}

// ToDomain converts the request into an unpersisted catalog record.
func (req CreateCatalogRequest) ToDomain() catalog.Catalog {
	return catalog.NewCatalog(req.Title, req.Author, req.URL, req.Tags, req.Locations, req.Markdown, req.Properties)
}

// UpdateCatalogRequest is the JSON payload for a partial update. Absent
// fields are left untouched; present fields, including explicit nulls
// decoded into empty values, are written.
type UpdateCatalogRequest struct {
	Title      *string         `json:"title"`
	Author     *string         `json:"author"`
	URL        *string         `json:"url" validate:"omitempty,url"`
	Tags       *[]string       `json:"tags"`
	Locations  *[]string       `json:"locations"`
	Markdown   *string         `json:"markdown"`
	Properties *map[string]any `json:"properties"`
}

// Validate checks payload constraints.
func (req UpdateCatalogRequest) Validate() error {
	return validate.Struct(req)
}

// ToPatch converts the request into a patch carrying only the supplied
// fields.
func (req UpdateCatalogRequest) ToPatch() catalog.Patch {
	var patch catalog.Patch
	if req.Title != nil {
		patch.Title = catalog.Set(*req.Title)
	}
	if req.Author != nil {
		patch.Author = catalog.Set(*req.Author)
	}
	if req.URL != nil {
		patch.URL = catalog.Set(*req.URL)
	}
	if req.Tags != nil {
		patch.Tags = catalog.Set(*req.Tags)
	}
	if req.Locations != nil {
		patch.Locations = catalog.Set(*req.Locations)
	}
	if req.Markdown != nil {
		patch.Markdown = catalog.Set(*req.Markdown)
	}
	if req.Properties != nil {
		patch.Properties = catalog.Set(*req.Properties)
	}
	return patch
}

// CatalogResponse is the wire representation of a catalog record.
type CatalogResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Author     string         `json:"author"`
	URL        string         `json:"url"`
	Tags       []string       `json:"tags"`
	Locations  []string       `json:"locations"`
	Markdown   string         `json:"markdown"`
	Properties map[string]any `json:"properties,omitempty"`
	HasVector  bool           `json:"has_vector"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewCatalogResponse converts a domain record for the wire.
func NewCatalogResponse(c catalog.Catalog) CatalogResponse {
	tags := c.Tags()
	if tags == nil {
		tags = []string{}
	}
	locations := c.Locations()
	if locations == nil {
		locations = []string{}
	}
	return CatalogResponse{
		ID:         c.ID().String(),
		Title:      c.Title(),
		Author:     c.Author(),
		URL:        c.URL(),
		Tags:       tags,
		Locations:  locations,
		Markdown:   c.Markdown(),
		Properties: c.Properties(),
		HasVector:  c.HasVector(),
		CreatedAt:  c.CreatedAt(),
		UpdatedAt:  c.UpdatedAt(),
	}
}

// CatalogListResponse wraps a search result.
type CatalogListResponse struct {
	Catalogs []CatalogResponse `json:"catalogs"`
	Total    int               `json:"total"`
}

// NewCatalogListResponse converts a slice of records for the wire.
func NewCatalogListResponse(records []catalog.Catalog) CatalogListResponse {
	out := make([]CatalogResponse, len(records))
	for i, c := range records {
		out[i] = NewCatalogResponse(c)
	}
	return CatalogListResponse{Catalogs: out, Total: len(out)}
}
