package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opsloom/opsloom/internal/tokens"
)

// HTTPClient speaks a small JSON protocol to a model server that hosts
// classification, summarization, generation and retrieval.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type classifyRequest struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

type generateRequest struct {
	ConversationID string `json:"conversation_id"`
	Prompt         string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type retrieveRequest struct {
	Query string `json:"query"`
}

type retrieveResponse struct {
	Passages []struct {
		Text   string `json:"text"`
		Tokens int    `json:"tokens"`
	} `json:"passages"`
}

func (c *HTTPClient) Classify(ctx context.Context, conversationID, query string) (Classification, error) {
	var out Classification
	err := c.post(ctx, "/v1/classify", classifyRequest{ConversationID: conversationID, Query: query}, &out)
	if err != nil {
		return Classification{}, err
	}
	return out, nil
}

func (c *HTTPClient) Summarize(ctx context.Context, conversationID, prompt string) (string, error) {
	var out generateResponse
	err := c.post(ctx, "/v1/summarize", generateRequest{ConversationID: conversationID, Prompt: prompt}, &out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

func (c *HTTPClient) GenerateArtifact(ctx context.Context, conversationID, prompt string) (string, error) {
	var out generateResponse
	err := c.post(ctx, "/v1/generate", generateRequest{ConversationID: conversationID, Prompt: prompt}, &out)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		// The server answered but produced no artifact.
		return "", ErrGenerationFailed
	}
	return text, nil
}

func (c *HTTPClient) Retrieve(ctx context.Context, query string) ([]tokens.Passage, error) {
	var out retrieveResponse
	if err := c.post(ctx, "/v1/retrieve", retrieveRequest{Query: query}, &out); err != nil {
		return nil, err
	}
	passages := make([]tokens.Passage, 0, len(out.Passages))
	for _, p := range out.Passages {
		passages = append(passages, tokens.Passage{Text: p.Text, Tokens: p.Tokens})
	}
	return passages, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("model server status %d on %s: %s", res.StatusCode, path, string(body))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
