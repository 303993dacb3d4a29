package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opsloom/opsloom/internal/cache"
	"github.com/opsloom/opsloom/internal/config"
	"github.com/opsloom/opsloom/internal/feedback"
	"github.com/opsloom/opsloom/internal/llm"
	"github.com/opsloom/opsloom/internal/observability"
	"github.com/opsloom/opsloom/internal/route"
	"github.com/opsloom/opsloom/internal/suid"
	"github.com/opsloom/opsloom/internal/tokens"
)

type fixture struct {
	server   *httptest.Server
	cache    *cache.InMemoryCache
	feedback *feedback.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Config{
		CacheBackend:    "memory",
		LLMMode:         "mock",
		ContextWindow:   8192,
		ResponseReserve: 512,
	}

	store := cache.NewInMemoryCache(10)
	client := llm.NewMockClient()
	metrics := observability.NewMetrics(fmt.Sprintf("opsloom_test_httpapi_%d", time.Now().UnixNano()))
	router := route.NewRouter(
		route.Config{ContextWindow: cfg.ContextWindow, ResponseReserve: cfg.ResponseReserve},
		store,
		tokens.NewHandler(llm.HeuristicTokenizer{}),
		client, client, client, client,
		metrics,
	)
	feedbackStore := feedback.NewInMemoryStore()

	srv := New(cfg, router, feedbackStore, metrics)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &fixture{server: ts, cache: store, feedback: feedbackStore}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s error = %v", url, err)
	}
	return res
}

func TestQueryAnswersInDomainQuestion(t *testing.T) {
	f := newFixture(t)

	res := postJSON(t, f.server.URL+"/v1/query", map[string]string{
		"query": "how do I restart a pod",
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	var body queryResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ConversationID == "" {
		t.Fatalf("conversation_id missing from response")
	}
	if err := suid.Validate(suid.AxisConversation, body.ConversationID); err != nil {
		t.Fatalf("conversation_id invalid: %v", err)
	}
	if body.Response == "" {
		t.Fatalf("empty response body")
	}
}

func TestQueryRejectsOutOfDomainQuestion(t *testing.T) {
	f := newFixture(t)

	res := postJSON(t, f.server.URL+"/v1/query", map[string]string{
		"query": "what is the weather today",
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", res.StatusCode)
	}
	var body queryResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Response != route.RefusalText {
		t.Fatalf("response = %q, want fixed refusal", body.Response)
	}
}

func TestQueryYAMLPathPersistsConversation(t *testing.T) {
	f := newFixture(t)
	conversation := suid.New()

	res := postJSON(t, f.server.URL+"/v1/query", map[string]string{
		"query":           "give me a yaml for a pod quota",
		"conversation_id": conversation,
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	turns, err := f.cache.Get(t.Context(), route.DefaultUserID, conversation)
	if err != nil {
		t.Fatalf("cache Get() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("cache holds %d turns, want 1", len(turns))
	}
}

func TestQueryRejectsMalformedConversationID(t *testing.T) {
	f := newFixture(t)

	res := postJSON(t, f.server.URL+"/v1/query", map[string]string{
		"query":           "how do I restart a pod",
		"conversation_id": "not-a-uuid",
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
	var body errorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Code != "invalid_identifier" {
		t.Fatalf("code = %q, want invalid_identifier", body.Code)
	}
}

func TestQueryRequiresBody(t *testing.T) {
	f := newFixture(t)

	res := postJSON(t, f.server.URL+"/v1/query", map[string]string{})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	f := newFixture(t)
	conversation := suid.New()

	res := postJSON(t, f.server.URL+"/v1/feedback", map[string]string{
		"conversation_id": conversation,
		"sentiment":       "positive",
		"comment":         "that fixed it",
	})
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	all := f.feedback.All()
	if len(all) != 1 || all[0].ConversationID != conversation {
		t.Fatalf("feedback store = %+v", all)
	}
}

func TestFeedbackValidatesConversationID(t *testing.T) {
	f := newFixture(t)

	res := postJSON(t, f.server.URL+"/v1/feedback", map[string]string{
		"conversation_id": "42",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(f.server.URL + path)
		if err != nil {
			t.Fatalf("get %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, res.StatusCode)
		}
	}
}
