package database

import (
	"strings"

	"gorm.io/gorm"
)

// Clause is a single SQL condition with its bound arguments.
type Clause struct {
	expr string
	args []any
}

// Expr creates a raw condition clause with placeholder arguments.
func Expr(expr string, args ...any) Clause {
	return Clause{expr: expr, args: args}
}

// ContainsElement creates a clause matching rows whose JSON-array column
// contains the given string element. Elements are stored JSON-encoded, so
// an exact element always appears as a double-quoted token; matching on
// the quoted form cannot collide with substrings of other elements.
func ContainsElement(field, element string) Clause {
	return Expr(field+` LIKE ? ESCAPE '\'`, `%"`+escapeLike(element)+`"%`)
}

// MatchesText creates a case-insensitive substring clause on a text column.
func MatchesText(field, query string) Clause {
	return Expr(`LOWER(`+field+`) LIKE ? ESCAPE '\'`, "%"+strings.ToLower(escapeLike(query))+"%")
}

// escapeLike neutralizes LIKE metacharacters in user-supplied match text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// SortDirection represents sort direction.
type SortDirection int

// SortDirection values.
const (
	SortAsc SortDirection = iota
	SortDesc
)

// String returns the SQL representation.
func (s SortDirection) String() string {
	if s == SortDesc {
		return "DESC"
	}
	return "ASC"
}

// OrderBy represents a sort specification.
type OrderBy struct {
	field     string
	direction SortDirection
}

// Query represents a filtered query: clause groups are AND-joined, and
// the clauses inside one group are OR-joined. This is exactly the shape
// catalog search needs — (tag OR tag) AND (title match OR body match).
type Query struct {
	groups  [][]Clause
	orderBy []OrderBy
	limit   int
}

// NewQuery creates a new empty Query.
func NewQuery() Query {
	return Query{}
}

// Where adds a single AND condition.
func (q Query) Where(expr string, args ...any) Query {
	q.groups = append(q.groups, []Clause{Expr(expr, args...)})
	return q
}

// WhereAny adds a group of conditions joined with OR. Empty groups are
// dropped so optional filters can be appended unconditionally.
func (q Query) WhereAny(clauses ...Clause) Query {
	if len(clauses) == 0 {
		return q
	}
	q.groups = append(q.groups, clauses)
	return q
}

// Order adds a sort specification.
func (q Query) Order(field string, direction SortDirection) Query {
	q.orderBy = append(q.orderBy, OrderBy{field: field, direction: direction})
	return q
}

// Limit caps the number of results (0 means unlimited).
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// Apply attaches the query to a GORM session.
func (q Query) Apply(db *gorm.DB) *gorm.DB {
	for _, group := range q.groups {
		exprs := make([]string, len(group))
		args := make([]any, 0, len(group))
		for i, c := range group {
			exprs[i] = c.expr
			args = append(args, c.args...)
		}
		if len(exprs) == 1 {
			db = db.Where(exprs[0], args...)
		} else {
			db = db.Where("("+strings.Join(exprs, " OR ")+")", args...)
		}
	}

	for _, o := range q.orderBy {
		db = db.Order(o.field + " " + o.direction.String())
	}

	if q.limit > 0 {
		db = db.Limit(q.limit)
	}

	return db
}
