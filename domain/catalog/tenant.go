package catalog

import (
	"fmt"
	"regexp"
)

// identPattern is the allow-list for tenant path segments. Segments are
// interpolated into identifier positions (schema and table names) where
// placeholders cannot be used, so anything outside this pattern is
// rejected before a statement is built.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Tenant identifies an isolated (organization, group, user) namespace.
type Tenant struct {
	org   string
	group string
	user  string
}

// NewTenant validates each segment against the identifier allow-list
// and returns ErrInvalidIdentifier naming the offending segment.
func NewTenant(org, group, user string) (Tenant, error) {
	for _, seg := range []struct{ name, value string }{
		{"org", org},
		{"group", group},
		{"user", user},
	} {
		if !identPattern.MatchString(seg.value) {
			return Tenant{}, fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, seg.name, seg.value)
		}
	}
	return Tenant{org: org, group: group, user: user}, nil
}

// Org returns the organization segment.
func (t Tenant) Org() string { return t.org }

// Group returns the group segment.
func (t Tenant) Group() string { return t.group }

// User returns the user segment.
func (t Tenant) User() string { return t.user }

// String returns the slash-joined namespace path.
func (t Tenant) String() string {
	return t.org + "/" + t.group + "/" + t.user
}

// ValidIdentifier reports whether s is usable as a SQL identifier.
func ValidIdentifier(s string) bool {
	return identPattern.MatchString(s)
}
