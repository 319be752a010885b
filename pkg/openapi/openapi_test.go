package openapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/intake/pkg/openapi"
)

func TestServeSpec(t *testing.T) {
	spec := openapi.NewSpec("Intake API", "1.2.3")
	spec.AddServer("/api")
	spec.Path("/runs").Post = &openapi.Operation{
		Summary:   "Execute a run",
		Responses: map[int]*openapi.Response{200: openapi.ResponseJSON("Run", "Run")},
	}
	spec.Path("/runs").Get = &openapi.Operation{
		Summary:   "List runs",
		Responses: map[int]*openapi.Response{400: openapi.ResponseRef("BadRequest")},
	}

	h, err := openapi.ServeSpec(spec)
	if err != nil {
		t.Fatalf("ServeSpec: %v", err)
	}

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type: got %s", ct)
	}

	var doc struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]map[string]struct {
			Responses map[string]json.RawMessage `json:"responses"`
		} `json:"paths"`
		Components struct {
			Responses map[string]json.RawMessage `json:"responses"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if doc.OpenAPI != "3.1.0" || doc.Info.Version != "1.2.3" {
		t.Errorf("header: got %s %s", doc.OpenAPI, doc.Info.Version)
	}
	runs := doc.Paths["/runs"]
	if _, ok := runs["post"].Responses["200"]; !ok {
		t.Error("post /runs missing 200 response")
	}
	if _, ok := runs["get"]; !ok {
		t.Error("get /runs missing")
	}
	for _, name := range []string{"BadRequest", "NotFound", "PayloadTooLarge", "BadGateway"} {
		if _, ok := doc.Components.Responses[name]; !ok {
			t.Errorf("component response %s missing", name)
		}
	}
}
