// Package tokens fits retrieved reference passages and conversation
// history into a model's fixed input window.
//
// Token counting itself is delegated to a Tokenizer collaborator; counts
// are treated as authoritative and each text is counted at most once per
// assembly.
package tokens

import (
	"errors"
	"fmt"

	"github.com/opsloom/opsloom/internal/cache"
)

// Tokenizer counts model input units for a text. Counts must be
// deterministic for a given text.
type Tokenizer interface {
	CountTokens(text string) int
}

// ErrPromptTooLarge means the fixed prompt skeleton plus the reserved
// response tokens already fill the context window. Recoverable by
// shortening inputs, never by retrying identically.
var ErrPromptTooLarge = errors.New("prompt exceeds model context window")

// Passage is a candidate reference text with its token cost. Callers
// supply passages in relevance order, highest first.
type Passage struct {
	Text   string
	Tokens int
}

// Handler performs budget arithmetic over a tokenizer's counts.
type Handler struct {
	tokenizer Tokenizer
}

func NewHandler(tokenizer Tokenizer) *Handler {
	return &Handler{tokenizer: tokenizer}
}

// AvailableTokens returns the budget left for variable prompt content
// after the fixed skeleton and the reserved response tokens are taken out
// of the context window. The result never goes below zero; a zero budget
// is reported as ErrPromptTooLarge.
func (h *Handler) AvailableTokens(fixed string, contextWindow, responseReserve int) (int, error) {
	prompt := h.tokenizer.CountTokens(fixed)
	available := contextWindow - prompt - responseReserve
	if available <= 0 {
		return 0, fmt.Errorf("%w: window %d, skeleton %d, reserved %d",
			ErrPromptTooLarge, contextWindow, prompt, responseReserve)
	}
	return available, nil
}

// TruncatePassages keeps a prefix of passages whose cumulative cost fits
// budget, preserving the caller's relevance order. The first passage that
// would overflow is dropped whole and scanning stops there; later,
// possibly smaller passages are not pulled forward past it.
func (h *Handler) TruncatePassages(passages []Passage, budget int) ([]Passage, int) {
	kept := make([]Passage, 0, len(passages))
	for _, p := range passages {
		cost := p.Tokens
		if cost <= 0 {
			cost = h.tokenizer.CountTokens(p.Text)
		}
		if cost > budget {
			break
		}
		kept = append(kept, p)
		budget -= cost
	}
	return kept, budget
}

// TruncateHistory drops the oldest turns until the remainder fits budget.
// The kept turns are always a contiguous suffix of the input, never
// reordered or edited. The second return is true iff at least one turn
// was dropped.
func (h *Handler) TruncateHistory(history []cache.Turn, budget int) ([]cache.Turn, bool) {
	costs := make([]int, len(history))
	total := 0
	for i, turn := range history {
		costs[i] = h.tokenizer.CountTokens(turn.Line())
		total += costs[i]
	}

	start := 0
	for start < len(history) && total > budget {
		total -= costs[start]
		start++
	}
	return history[start:], start > 0
}
