package llm

import "unicode/utf8"

// HeuristicTokenizer estimates token counts locally at roughly four
// characters per token. It stands in for the model server's real
// tokenizer; the estimate is deterministic for a given text, which is all
// the budget allocator requires.
type HeuristicTokenizer struct{}

func (HeuristicTokenizer) CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
