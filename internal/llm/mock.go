package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/opsloom/opsloom/internal/tokens"
)

// domainKeywords marks a query as in-domain for the mock classifier.
var domainKeywords = []string{
	"cluster", "node", "pod", "deployment", "namespace", "service",
	"operator", "route", "ingress", "quota", "platform", "workload",
}

// MockClient provides deterministic local behavior for all collaborator
// contracts when no model server is configured.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (m *MockClient) Classify(ctx context.Context, _, query string) (Classification, error) {
	if err := ctx.Err(); err != nil {
		return Classification{}, err
	}

	q := strings.ToLower(query)
	inDomain := false
	for _, kw := range domainKeywords {
		if strings.Contains(q, kw) {
			inDomain = true
			break
		}
	}
	if !inDomain {
		return Classification{Validity: ValidityInvalid}, nil
	}
	if strings.Contains(q, "yaml") || strings.Contains(q, "manifest") {
		return Classification{Validity: ValidityValid, Kind: KindYAML}, nil
	}
	return Classification{Validity: ValidityValid, Kind: KindNoYAML}, nil
}

func (m *MockClient) Summarize(ctx context.Context, _, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	question := lastQuestion(prompt)
	return fmt.Sprintf("Here is what I know about that: %s", question), nil
}

func (m *MockClient) GenerateArtifact(ctx context.Context, _, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: example\ndata: {}", nil
}

// Retrieve always reports an empty index: the degraded retrieval mode.
func (m *MockClient) Retrieve(_ context.Context, _ string) ([]tokens.Passage, error) {
	return nil, nil
}

func lastQuestion(prompt string) string {
	const marker = "Question: "
	if i := strings.LastIndex(prompt, marker); i >= 0 {
		return strings.TrimSpace(prompt[i+len(marker):])
	}
	return strings.TrimSpace(prompt)
}
