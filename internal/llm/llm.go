// Package llm defines the model-serving collaborators the gateway depends
// on: question classification, summarization, structured-artifact
// generation, passage retrieval and token counting. All of them are remote
// capabilities; this package only carries their contracts plus an HTTP
// client and a deterministic mock.
package llm

import (
	"context"
	"errors"

	"github.com/opsloom/opsloom/internal/tokens"
)

// Validity is the first axis of a classification outcome.
type Validity string

const (
	ValidityInvalid Validity = "INVALID"
	ValidityValid   Validity = "VALID"
)

// AnswerKind is the second axis, meaningful only for valid questions.
type AnswerKind string

const (
	KindNoYAML AnswerKind = "NOYAML"
	KindYAML   AnswerKind = "YAML"
)

// Classification is the classifier's verdict for one query.
type Classification struct {
	Validity Validity   `json:"validity"`
	Kind     AnswerKind `json:"kind"`
}

// ErrGenerationFailed is the recognized failure sentinel from the artifact
// generator: the model produced nothing usable.
var ErrGenerationFailed = errors.New("artifact generation failed")

// Classifier decides whether a query is in domain and which generation
// path applies.
type Classifier interface {
	Classify(ctx context.Context, conversationID, query string) (Classification, error)
}

// Summarizer produces a plain answer from a fully assembled prompt.
type Summarizer interface {
	Summarize(ctx context.Context, conversationID, prompt string) (string, error)
}

// ArtifactGenerator produces a structured document (YAML) from a fully
// assembled prompt. Returns ErrGenerationFailed when the model yields no
// usable artifact.
type ArtifactGenerator interface {
	GenerateArtifact(ctx context.Context, conversationID, prompt string) (string, error)
}

// Retriever returns reference passages for a query, best relevance first.
// Retrieval is best-effort: a missing index yields an empty slice, not an
// error.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]tokens.Passage, error)
}
