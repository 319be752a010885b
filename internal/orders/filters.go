package orders

import (
	"net/url"

	"github.com/JaimeStill/intake/pkg/query"
)

var projection = query.NewProjection("orders",
	"id", "run_id", "storage_key", "digest", "fields", "created_at",
).
	Field("customer_name", "fields->>'customer_name'").
	Field("email", "fields->>'email'")

// Filters narrows an order listing. Search matches customer name or email.
type Filters struct {
	Search string
	Sort   string
}

// FiltersFromQuery reads search and sort query parameters.
func FiltersFromQuery(values url.Values) Filters {
	return Filters{
		Search: values.Get("search"),
		Sort:   values.Get("sort"),
	}
}

func (f Filters) apply(b *query.Builder) *query.Builder {
	return b.
		WhereSearch(f.Search, "customer_name", "email").
		OrderBy(query.ParseSortFields(f.Sort))
}

func newBuilder() *query.Builder {
	return query.NewBuilder(projection,
		query.SortField{Field: "created_at", Descending: true},
		query.SortField{Field: "id"},
	)
}
