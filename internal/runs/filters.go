package runs

import (
	"net/url"

	"github.com/JaimeStill/intake/pkg/query"
)

var projection = query.NewProjection("runs",
	"id", "state", "label", "order_id", "summary", "facts", "started_at", "completed_at",
)

// Filters narrows a run listing. Sort uses the "state,-started_at" form.
type Filters struct {
	State string
	Label string
	Sort  string
}

// FiltersFromQuery reads state, label, and sort query parameters.
func FiltersFromQuery(values url.Values) Filters {
	return Filters{
		State: values.Get("state"),
		Label: values.Get("label"),
		Sort:  values.Get("sort"),
	}
}

func (f Filters) apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("state", f.State).
		WhereEquals("label", f.Label).
		OrderBy(query.ParseSortFields(f.Sort))
}

func newBuilder() *query.Builder {
	return query.NewBuilder(projection,
		query.SortField{Field: "started_at", Descending: true},
		query.SortField{Field: "id"},
	)
}
