// Package query builds parameterized list queries over a fixed column
// projection with optional filters and caller-selected sort order.
package query

import "strings"

// Projection maps logical field names to the column expressions of one table.
// Only mapped fields can be filtered or sorted on.
type Projection struct {
	table   string
	columns []string
	fields  map[string]string
}

// NewProjection creates a Projection selecting columns from table.
func NewProjection(table string, columns ...string) *Projection {
	p := &Projection{
		table:   table,
		columns: columns,
		fields:  make(map[string]string),
	}
	for _, c := range columns {
		p.fields[c] = c
	}
	return p
}

// Field maps a logical name to a column expression, for example a JSONB path.
func (p *Projection) Field(name, expr string) *Projection {
	p.fields[name] = expr
	return p
}

// Column returns the expression for name and whether it is mapped.
func (p *Projection) Column(name string) (string, bool) {
	expr, ok := p.fields[name]
	return expr, ok
}

// Columns returns the selected columns as a comma-separated list.
func (p *Projection) Columns() string {
	return strings.Join(p.columns, ", ")
}

// Table returns the table name.
func (p *Projection) Table() string {
	return p.table
}
