// Package markdown parses markdown documents with YAML frontmatter.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/catalyzer/cabinet/domain/catalog"
)

// frontmatterPattern splits a document into its YAML header and body.
// The header must open at the first byte of the document.
var frontmatterPattern = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---\s*\n?(.*)\z`)

// Document is a parsed markdown document: the frontmatter fields plus
// the body with the header stripped.
type Document struct {
	meta map[string]any
	body string
}

// Parse splits raw content into frontmatter and body. A document with
// no frontmatter block, or whose header is not a YAML mapping, is
// rejected with catalog.ErrInvalidDocument.
func Parse(raw string) (Document, error) {
	match := frontmatterPattern.FindStringSubmatch(raw)
	if match == nil {
		return Document{}, fmt.Errorf("%w: missing frontmatter block", catalog.ErrInvalidDocument)
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(match[1]), &meta); err != nil {
		return Document{}, fmt.Errorf("%w: parse frontmatter: %v", catalog.ErrInvalidDocument, err)
	}
	if meta == nil {
		meta = map[string]any{}
	}

	return Document{meta: meta, body: match[2]}, nil
}

// Meta returns a copy of the frontmatter fields.
func (d Document) Meta() map[string]any {
	meta := make(map[string]any, len(d.meta))
	for k, v := range d.meta {
		meta[k] = v
	}
	return meta
}

// Body returns the markdown body with the frontmatter stripped.
func (d Document) Body() string {
	return d.body
}

// String returns the named frontmatter field coerced to a string, or
// empty when absent or not scalar.
func (d Document) String(key string) string {
	switch v := d.meta[key].(type) {
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

// Time returns the named frontmatter field as a UTC timestamp. YAML
// decodes unquoted ISO 8601 scalars into time.Time directly; quoted
// RFC 3339 strings are parsed as a fallback. The second return reports
// whether a usable timestamp was present.
func (d Document) Time(key string) (time.Time, bool) {
	switch v := d.meta[key].(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// Strings returns the named frontmatter field as a string slice. A YAML
// list yields its string elements; a scalar string is split on commas
// so compact "a, b, c" headers work too.
func (d Document) Strings(key string) []string {
	switch v := d.meta[key].(type) {
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				values = append(values, s)
			}
		}
		return values
	case string:
		var values []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
		return values
	default:
		return nil
	}
}
