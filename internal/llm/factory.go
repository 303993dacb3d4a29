package llm

import (
	"fmt"
	"strings"
)

// Client bundles every collaborator contract one backend provides.
type Client interface {
	Classifier
	Summarizer
	ArtifactGenerator
	Retriever
}

// Config controls which backend serves the collaborator contracts.
type Config struct {
	Mode string // "auto", "http" or "mock"
	URL  string
}

// NewClient picks the backend: http when a URL is configured, otherwise
// the deterministic mock.
func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.URL) != "" {
			return NewHTTPClient(cfg.URL), nil
		}
		return NewMockClient(), nil
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("model server url is required for http mode")
		}
		return NewHTTPClient(cfg.URL), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported llm mode %q", cfg.Mode)
	}
}
