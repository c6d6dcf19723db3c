package catalog

// Field wraps an optional patch value so a partial update can
// distinguish "not supplied" from "supplied as zero".
type Field[T any] struct {
	value T
	set   bool
}

// Set creates a Field carrying an explicit value.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// IsSet reports whether the field was supplied.
func (f Field[T]) IsSet() bool { return f.set }

// Value returns the supplied value (zero when not set).
func (f Field[T]) Value() T { return f.value }

// Patch is a partial update for a catalog record. Only fields that were
// explicitly set are written; updated_at is always refreshed by the
// store regardless of the patch contents.
type Patch struct {
	Title      Field[string]
	Author     Field[string]
	URL        Field[string]
	Tags       Field[[]string]
	Locations  Field[[]string]
	Markdown   Field[string]
	Properties Field[map[string]any]
	Vector     Field[[]float32]
}

// IsEmpty reports whether no field was supplied. An empty patch is still
// a valid update: it refreshes updated_at and nothing else.
func (p Patch) IsEmpty() bool {
	return !p.Title.IsSet() &&
		!p.Author.IsSet() &&
		!p.URL.IsSet() &&
		!p.Tags.IsSet() &&
		!p.Locations.IsSet() &&
		!p.Markdown.IsSet() &&
		!p.Properties.IsSet() &&
		!p.Vector.IsSet()
}
