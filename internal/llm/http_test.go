package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newModelServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClassify(t *testing.T) {
	srv := newModelServer(t, map[string]http.HandlerFunc{
		"/v1/classify": func(w http.ResponseWriter, r *http.Request) {
			var req classifyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode classify request: %v", err)
			}
			if req.Query != "make a yaml" || req.ConversationID != "c1" {
				t.Errorf("unexpected classify request: %+v", req)
			}
			_ = json.NewEncoder(w).Encode(Classification{Validity: ValidityValid, Kind: KindYAML})
		},
	})

	c := NewHTTPClient(srv.URL)
	got, err := c.Classify(context.Background(), "c1", "make a yaml")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Validity != ValidityValid || got.Kind != KindYAML {
		t.Fatalf("Classify() = %+v", got)
	}
}

func TestHTTPGenerateArtifactFailureSentinel(t *testing.T) {
	srv := newModelServer(t, map[string]http.HandlerFunc{
		"/v1/generate": func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(generateResponse{Text: "   "})
		},
	})

	c := NewHTTPClient(srv.URL)
	_, err := c.GenerateArtifact(context.Background(), "c1", "prompt")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("GenerateArtifact() error = %v, want ErrGenerationFailed", err)
	}
}

func TestHTTPGenerateArtifactSuccess(t *testing.T) {
	srv := newModelServer(t, map[string]http.HandlerFunc{
		"/v1/generate": func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(generateResponse{Text: "kind: Pod\n"})
		},
	})

	c := NewHTTPClient(srv.URL)
	got, err := c.GenerateArtifact(context.Background(), "c1", "prompt")
	if err != nil {
		t.Fatalf("GenerateArtifact() error = %v", err)
	}
	if got != "kind: Pod" {
		t.Fatalf("GenerateArtifact() = %q", got)
	}
}

func TestHTTPRetrieve(t *testing.T) {
	srv := newModelServer(t, map[string]http.HandlerFunc{
		"/v1/retrieve": func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"passages": []map[string]any{
					{"text": "first", "tokens": 10},
					{"text": "second", "tokens": 20},
				},
			})
		},
	})

	c := NewHTTPClient(srv.URL)
	got, err := c.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 2 || got[0].Text != "first" || got[1].Tokens != 20 {
		t.Fatalf("Retrieve() = %+v", got)
	}
}

func TestHTTPErrorStatusSurfaces(t *testing.T) {
	srv := newModelServer(t, map[string]http.HandlerFunc{
		"/v1/summarize": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
		},
	})

	c := NewHTTPClient(srv.URL)
	if _, err := c.Summarize(context.Background(), "c1", "prompt"); err == nil {
		t.Fatalf("Summarize() = nil error, want status failure")
	}
}
