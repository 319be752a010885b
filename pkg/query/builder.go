package query

import (
	"fmt"
	"strings"
)

type condition struct {
	clause string
	args   []any
}

// SortField is one ORDER BY term. Field is a logical name from the projection.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses "state,-started_at" into sort fields. A leading
// "-" means descending. Returns nil for empty input.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if after, ok := strings.CutPrefix(part, "-"); ok {
			fields = append(fields, SortField{Field: after, Descending: true})
			continue
		}
		fields = append(fields, SortField{Field: part})
	}
	return fields
}

// Builder accumulates conditions and ordering for one projection.
// Conditions on unmapped fields and sorts on unmapped fields are ignored.
type Builder struct {
	projection  *Projection
	conditions  []condition
	orderBy     []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder that orders by defaultSort unless OrderBy is
// given other mapped fields.
func NewBuilder(projection *Projection, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// WhereEquals adds field = value. No-op for an empty value.
func (b *Builder) WhereEquals(field, value string) *Builder {
	col, ok := b.projection.Column(field)
	if !ok || value == "" {
		return b
	}
	b.conditions = append(b.conditions, condition{
		clause: col + " = $%d",
		args:   []any{value},
	})
	return b
}

// WhereSearch adds a case-insensitive substring match across fields joined
// with OR. No-op for an empty search.
func (b *Builder) WhereSearch(search string, fields ...string) *Builder {
	if search == "" {
		return b
	}

	var clauses []string
	var args []any
	pattern := "%" + search + "%"
	for _, f := range fields {
		col, ok := b.projection.Column(f)
		if !ok {
			continue
		}
		clauses = append(clauses, col+" ILIKE $%d")
		args = append(args, pattern)
	}
	if len(clauses) == 0 {
		return b
	}

	b.conditions = append(b.conditions, condition{
		clause: "(" + strings.Join(clauses, " OR ") + ")",
		args:   args,
	})
	return b
}

// OrderBy replaces the default sort with fields.
func (b *Builder) OrderBy(fields []SortField) *Builder {
	b.orderBy = fields
	return b
}

// BuildCount returns a COUNT(*) query with the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.Table(), where), args
}

// BuildPage returns a SELECT with conditions, ordering, and bound limit and
// offset parameters.
func (b *Builder) BuildPage(limit, offset int) (string, []any) {
	where, args := b.where()
	n := len(args)
	q := fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT $%d OFFSET $%d",
		b.projection.Columns(),
		b.projection.Table(),
		where,
		b.order(),
		n+1, n+2,
	)
	return q, append(args, limit, offset)
}

func (b *Builder) order() string {
	var parts []string
	for _, f := range b.orderBy {
		if col, ok := b.projection.Column(f.Field); ok {
			parts = append(parts, term(col, f.Descending))
		}
	}
	if len(parts) == 0 {
		for _, f := range b.defaultSort {
			if col, ok := b.projection.Column(f.Field); ok {
				parts = append(parts, term(col, f.Descending))
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func term(col string, desc bool) string {
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(b.conditions))
	var args []any
	for _, c := range b.conditions {
		clause := c.clause
		for _, arg := range c.args {
			args = append(args, arg)
			clause = strings.Replace(clause, "$%d", fmt.Sprintf("$%d", len(args)), 1)
		}
		clauses = append(clauses, clause)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
