package classifier

import (
	"slices"
	"strings"

	"github.com/JaimeStill/intake/internal/workflow"
)

// Category is a classification label with the description fed to the model.
type Category struct {
	Name        string `json:"name" toml:"name"`
	Description string `json:"description" toml:"description"`
}

// DefaultCategories returns the built-in category set.
func DefaultCategories() []Category {
	return []Category{
		{Name: workflow.LabelSalesOrder, Description: "A customer placing or confirming an order for goods, with items and quantities."},
		{Name: "quote_request", Description: "A request for pricing or availability without committing to a purchase."},
		{Name: "support", Description: "A question or complaint about an existing order, delivery, or product."},
		{Name: "invoice", Description: "A bill, payment reminder, or remittance advice."},
		{Name: workflow.LabelOther, Description: "Anything that fits none of the other categories."},
	}
}

// Normalize lowercases a label and replaces spaces and hyphens with
// underscores, so "Sales Order" and "sales-order" both become sales_order.
func Normalize(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(label)
}

// Prepare normalizes category names, drops blanks and duplicates, and
// guarantees sales_order and other are present.
func Prepare(categories []Category) []Category {
	var out []Category
	seen := map[string]bool{}

	for _, c := range categories {
		c.Name = Normalize(c.Name)
		if c.Name == "" || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}

	defaults := DefaultCategories()
	for _, required := range []string{workflow.LabelSalesOrder, workflow.LabelOther} {
		if seen[required] {
			continue
		}
		i := slices.IndexFunc(defaults, func(c Category) bool { return c.Name == required })
		out = append(out, defaults[i])
	}

	return out
}

// Labels returns the category names in order.
func Labels(categories []Category) []string {
	labels := make([]string, len(categories))
	for i, c := range categories {
		labels[i] = c.Name
	}
	return labels
}
