package api

import (
	"slices"

	"github.com/JaimeStill/intake/internal/config"
	"github.com/JaimeStill/intake/pkg/openapi"
)

func str(desc string) *openapi.Schema { return &openapi.Schema{Type: "string", Description: desc} }

func dateTime() *openapi.Schema { return &openapi.Schema{Type: "string", Format: "date-time"} }

func page(item string) *openapi.Schema {
	return &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        {Type: "array", Items: openapi.SchemaRef(item)},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	}
}

func schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Summary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"run_id":               str("Run identifier"),
				"state":                str("Terminal run state"),
				"label":                str("Classification label"),
				"stored":               {Type: "boolean"},
				"order_id":             str("Stored order identifier"),
				"path":                 str("Storage path of the order document"),
				"verification":         {Type: "string", Enum: []any{"passed", "mismatch", "not_performed"}},
				"verification_details": str("Mismatch details"),
				"notes":                {Type: "array", Items: str("")},
				"failed_step":          str("Step at which the run failed"),
				"failure_reason":       str("Failure reason"),
				"text":                 str("Human-readable summary"),
			},
		},
		"Run": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"state":        str("Terminal run state"),
				"label":        str("Classification label"),
				"order_id":     str("Stored order identifier"),
				"summary":      openapi.SchemaRef("Summary"),
				"facts":        {Type: "object", Description: "Full run record"},
				"started_at":   dateTime(),
				"completed_at": dateTime(),
			},
		},
		"Order": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":          {Type: "string", Pattern: "^ORD-[0-9A-F]{16}$"},
				"run_id":      str("Run that stored the order"),
				"storage_key": str("Blob key"),
				"path":        str("Storage path"),
				"digest":      str("SHA-256 of the stored fields"),
				"fields":      openapi.SchemaRef("OrderFields"),
				"created_at":  dateTime(),
			},
		},
		"OrderFields": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"items": {
					Type: "array",
					Items: &openapi.Schema{
						Type: "object",
						Properties: map[string]*openapi.Schema{
							"name":     str("Item name"),
							"quantity": {Type: "integer"},
						},
					},
				},
				"customer_name": str("Customer name"),
				"address":       str("Shipping address"),
				"email":         {Type: "string", Format: "email"},
			},
		},
		"Verification": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"matches": {Type: "boolean"},
				"details": str("Mismatch details"),
			},
		},
		"Category": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"name":        str("Label"),
				"description": str("What the label means"),
			},
		},
		"Thread": {
			Type:        "object",
			Description: "Email thread; any other body yields a rejected run",
			Required:    []string{"messages"},
			Properties: map[string]*openapi.Schema{
				"subject":  str("Thread subject"),
				"messages": {Type: "array", Items: &openapi.Schema{Type: "object"}},
			},
		},
		"RunPage":   page("Run"),
		"OrderPage": page("Order"),
	}
}

func pageParams(extra ...*openapi.Parameter) []*openapi.Parameter {
	return append([]*openapi.Parameter{
		openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
		openapi.QueryParam("page_size", "integer", "Results per page", false),
		openapi.QueryParam("sort", "string", "Comma-separated sort fields; prefix - for descending", false),
	}, extra...)
}

func errs(names ...string) map[int]*openapi.Response {
	codes := map[string]int{
		"BadRequest":      400,
		"Unauthorized":    401,
		"NotFound":        404,
		"PayloadTooLarge": 413,
		"BadGateway":      502,
	}
	out := make(map[int]*openapi.Response, len(names))
	for _, n := range names {
		out[codes[n]] = openapi.ResponseRef(n)
	}
	return out
}

func with(resp map[int]*openapi.Response, code int, r *openapi.Response) map[int]*openapi.Response {
	resp[code] = r
	return resp
}

// newSpec describes every route registered by registerRoutes.
func newSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec("Intake API", cfg.Version)
	spec.SetDescription("Email thread intake: classification, sales order storage, and verification.")
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(schemas())

	spec.Path("/runs").Post = &openapi.Operation{
		Summary:     "Execute an intake run",
		Description: "Runs the workflow on the request body. With ?format=text only the summary text is returned.",
		Tags:        []string{"runs"},
		Parameters:  []*openapi.Parameter{openapi.QueryParam("format", "string", "text for a plain-text summary", false)},
		RequestBody: openapi.RequestBodyJSON("Thread", true),
		Responses:   with(errs("BadRequest", "PayloadTooLarge"), 200, openapi.ResponseJSON("Recorded run", "Run")),
	}
	spec.Path("/runs").Get = &openapi.Operation{
		Summary: "List runs",
		Tags:    []string{"runs"},
		Parameters: pageParams(
			openapi.QueryParam("state", "string", "Filter by terminal state", false),
			openapi.QueryParam("label", "string", "Filter by classification label", false),
		),
		Responses: with(errs(), 200, openapi.ResponseJSON("Run page", "RunPage")),
	}
	spec.Path("/runs/{id}").Get = &openapi.Operation{
		Summary:    "Find a run",
		Tags:       []string{"runs"},
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "uuid", "Run ID")},
		Responses:  with(errs("BadRequest", "NotFound"), 200, openapi.ResponseJSON("Run", "Run")),
	}

	spec.Path("/orders").Get = &openapi.Operation{
		Summary:    "List orders",
		Tags:       []string{"orders"},
		Parameters: pageParams(openapi.QueryParam("search", "string", "Match customer name or email", false)),
		Responses:  with(errs(), 200, openapi.ResponseJSON("Order page", "OrderPage")),
	}
	spec.Path("/orders/{id}").Get = &openapi.Operation{
		Summary:    "Find an order",
		Tags:       []string{"orders"},
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "", "Order ID")},
		Responses:  with(errs("NotFound"), 200, openapi.ResponseJSON("Order", "Order")),
	}
	spec.Path("/orders/{id}/verify").Post = &openapi.Operation{
		Summary:    "Re-verify a stored order",
		Tags:       []string{"orders"},
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "", "Order ID")},
		Responses:  with(errs("NotFound", "BadGateway"), 200, openapi.ResponseJSON("Verification", "Verification")),
	}

	spec.Path("/categories").Get = &openapi.Operation{
		Summary:   "List classification categories",
		Tags:      []string{"categories"},
		Responses: map[int]*openapi.Response{200: openapi.ResponseArray("Categories", "Category")},
	}

	if cfg.API.Auth.Enabled {
		for path, item := range spec.Paths {
			for _, op := range []*openapi.Operation{item.Get, item.Post} {
				if op != nil && !slices.Contains(cfg.API.Auth.Public, path) {
					op.Responses[401] = openapi.ResponseRef("Unauthorized")
				}
			}
		}
	}

	return spec
}

