package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/catalyzer/cabinet/domain/catalog"
	"github.com/catalyzer/cabinet/internal/database"
)

// APIError represents one error in a structured error response.
type APIError struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	ID     string `json:"id,omitempty"`
}

// ErrorResponse wraps the error list of an error response body.
type ErrorResponse struct {
	Errors []APIError `json:"errors"`
}

// WriteError maps a domain error to its HTTP status and writes a
// structured error body. Unrecognized errors become 500s with the
// message passed through; storage internals never leak stack traces.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := http.StatusInternalServerError
	title := "Internal Server Error"

	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, catalog.ErrInvalidIdentifier),
		errors.Is(err, catalog.ErrInvalidDocument),
		errors.As(err, &validationErrs):
		status = http.StatusBadRequest
		title = "Validation Error"
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
		title = "Not Found"
	case errors.Is(err, catalog.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
		title = "Storage Unavailable"
	case errors.Is(err, catalog.ErrFetchFailed):
		status = http.StatusBadGateway
		title = "Fetch Failed"
	case errors.Is(err, catalog.ErrStorage):
		status = http.StatusInternalServerError
		title = "Storage Error"
	}

	correlationID := GetCorrelationID(r.Context())

	if logger != nil {
		logger.Error("request error",
			"correlation_id", correlationID,
			"status", status,
			"error", err.Error(),
			"path", r.URL.Path,
		)
	}

	resp := ErrorResponse{
		Errors: []APIError{
			{
				Status: http.StatusText(status),
				Title:  title,
				Detail: err.Error(),
				ID:     correlationID,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
