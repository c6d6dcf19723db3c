package catalog

import "errors"

// Sentinel errors returned by the catalog store and service. Callers
// match them with errors.Is; the API layer maps them to HTTP statuses.
var (
	// ErrNotFound indicates the targeted catalog id does not exist in
	// the tenant's table.
	ErrNotFound = errors.New("catalog not found")

	// ErrInvalidIdentifier indicates a tenant path segment failed
	// identifier validation and was never used in a statement.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrInvalidDocument indicates a markdown document had missing or
	// malformed frontmatter.
	ErrInvalidDocument = errors.New("invalid markdown document")

	// ErrStorageUnavailable indicates the tenant's storage handle could
	// not be acquired or opened. Transient; callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorage indicates the storage engine rejected a statement.
	ErrStorage = errors.New("storage operation failed")

	// ErrFetchFailed indicates the external reader service could not
	// convert a URL into markdown.
	ErrFetchFailed = errors.New("url fetch failed")
)
