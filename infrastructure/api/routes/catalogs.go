// Package routes mounts the catalog REST endpoints.
package routes

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/catalyzer/cabinet/application/service"
	"github.com/catalyzer/cabinet/domain/catalog"
	"github.com/catalyzer/cabinet/infrastructure/api/middleware"
)

// maxDocumentBytes caps an uploaded markdown document at 10 MiB.
const maxDocumentBytes = 10 << 20

// defaultSimilarLimit bounds similarity results when no limit is given.
const defaultSimilarLimit = 10

// Catalogs handles the catalog REST endpoints.
type Catalogs struct {
	catalogs *service.CatalogService
	logger   *slog.Logger
}

// NewCatalogs creates the catalog handler set.
func NewCatalogs(catalogs *service.CatalogService, logger *slog.Logger) Catalogs {
	return Catalogs{catalogs: catalogs, logger: logger}
}

// Register mounts all routes. Mutating endpoints go behind the protect
// middleware; reads stay open.
func (h Catalogs) Register(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Get("/", h.info)
	r.Get("/health", h.health)
	r.With(protect).Get("/from_url", h.fromURL)

	r.Route("/{org}/{group}/{user}", func(r chi.Router) {
		r.Get("/search", h.search)
		r.Get("/similar", h.similar)
		r.Get("/{id}", h.get)

		r.Group(func(r chi.Router) {
			r.Use(protect)
			r.Post("/", h.create)
			r.Post("/new", h.createFromDocument)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.deleteRecord)
		})
	})
}

func (h Catalogs) info(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "cabinet",
		"status":  "ok",
	})
}

func (h Catalogs) health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h Catalogs) create(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFromPath(r)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}

	var req CreateCatalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "malformed JSON body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}

	record, err := h.catalogs.Create(r.Context(), tenant, req.ToDomain())
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, NewCatalogResponse(record))
}

// createFromDocument accepts a markdown document with YAML frontmatter,
// either as a raw text body or as a multipart "file" field.
func (h Catalogs) createFromDocument(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFromPath(r)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}

	filename, raw, err := readDocument(r)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	if strings.TrimSpace(raw) == "" {
		h.badRequest(w, r, "empty document body")
		return
	}

	record, err := h.catalogs.CreateFromMarkdown(r.Context(), tenant, filename, raw)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, NewCatalogResponse(record))
}

func (h Catalogs) search(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFromPath(r)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}

	records, err := h.catalogs.Search(r.Context(), tenant, tagParams(r), r.URL.Query().Get("q"))
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, NewCatalogListResponse(records))
}

func (h Catalogs) similar(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantFromPath(r)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.badRequest(w, r, "q query parameter is required")
		return
	}

	limit := defaultSimilarLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.badRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.catalogs.SearchSimilar(r.Context(), tenant, query, limit)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, NewCatalogListResponse(records))
}

func (h Catalogs) get(w http.ResponseWriter, r *http.Request) {
	tenant, id, ok := h.tenantAndID(w, r)
	if !ok {
		return
	}

	record, err := h.catalogs.Get(r.Context(), tenant, id)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, NewCatalogResponse(record))
}

func (h Catalogs) update(w http.ResponseWriter, r *http.Request) {
	tenant, id, ok := h.tenantAndID(w, r)
	if !ok {
		return
	}

	var req UpdateCatalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "malformed JSON body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}

	record, err := h.catalogs.Update(r.Context(), tenant, id, req.ToPatch())
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, NewCatalogResponse(record))
}

func (h Catalogs) deleteRecord(w http.ResponseWriter, r *http.Request) {
	tenant, id, ok := h.tenantAndID(w, r)
	if !ok {
		return
	}

	removed, err := h.catalogs.Delete(r.Context(), tenant, id)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	if !removed {
		middleware.WriteError(w, r, catalog.ErrNotFound, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fromURL ingests a web page: GET /from_url?url=&org=&group=&user=.
func (h Catalogs) fromURL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	target := q.Get("url")
	if target == "" {
		h.badRequest(w, r, "url query parameter is required")
		return
	}

	tenant, err := catalog.NewTenant(q.Get("org"), q.Get("group"), q.Get("user"))
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}

	record, err := h.catalogs.CreateFromURL(r.Context(), tenant, target)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, NewCatalogResponse(record))
}

func (h Catalogs) tenantAndID(w http.ResponseWriter, r *http.Request) (catalog.Tenant, uuid.UUID, bool) {
	tenant, err := tenantFromPath(r)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return catalog.Tenant{}, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, r, "malformed catalog id")
		return catalog.Tenant{}, uuid.Nil, false
	}
	return tenant, id, true
}

func (h Catalogs) badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{
		Errors: []middleware.APIError{{
			Status: http.StatusText(http.StatusBadRequest),
			Title:  "Validation Error",
			Detail: detail,
			ID:     middleware.GetCorrelationID(r.Context()),
		}},
	})
}

func tenantFromPath(r *http.Request) (catalog.Tenant, error) {
	return catalog.NewTenant(
		chi.URLParam(r, "org"),
		chi.URLParam(r, "group"),
		chi.URLParam(r, "user"),
	)
}

// tagParams collects tag filters from repeated tag= parameters, also
// splitting comma-separated values.
func tagParams(r *http.Request) []string {
	var tags []string
	for _, raw := range r.URL.Query()["tag"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// readDocument extracts the markdown document from the request: the
// "file" field of a multipart form, or the raw request body.
func readDocument(r *http.Request) (filename, raw string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxDocumentBytes); err != nil {
			return "", "", err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", "", err
		}
		defer func() { _ = file.Close() }()

		body, err := io.ReadAll(io.LimitReader(file, maxDocumentBytes))
		if err != nil {
			return "", "", err
		}
		return header.Filename, string(body), nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		return "", "", err
	}
	return r.URL.Query().Get("filename"), string(body), nil
}
