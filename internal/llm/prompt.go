package llm

import (
	"fmt"
	"strings"

	"github.com/opsloom/opsloom/internal/cache"
)

const summaryPromptTemplate = `Instructions:
- You are an assistant for questions about the platform and its workloads.
- Base your answer on the provided reference content and conversation history, not on prior knowledge.
- If the reference content does not cover the question, say so.

Reference content:
%s

Conversation history:
%s

Question: %s
`

const artifactPromptTemplate = `Instructions:
- Produce only a yaml response to the user request
- Do not augment the response with markdown or other formatting beyond standard yaml formatting
- Only provide a single yaml object containing a single resource type in your response, do not provide multiple yaml objects

User Request: %s
`

const artifactPromptWithHistoryTemplate = `Instructions:
- Produce only a yaml response to the user request
- Do not augment the response with markdown or other formatting beyond standard yaml formatting
- Only provide a single yaml object containing a single resource type in your response, do not provide multiple yaml objects

Here is the history of the conversation so far, you may find this relevant to the user request below:

%s

User Request: %s
`

// SummaryPrompt fills the plain-answer skeleton. Pass "sample" for the
// reference and history slots to obtain the fixed skeleton used for token
// budget computation.
func SummaryPrompt(reference, history, query string) string {
	return fmt.Sprintf(summaryPromptTemplate, reference, history, query)
}

// ArtifactPrompt fills the yaml-generation skeleton, including prior
// conversation context only when there is any.
func ArtifactPrompt(query, history string) string {
	if strings.TrimSpace(history) == "" {
		return fmt.Sprintf(artifactPromptTemplate, query)
	}
	return fmt.Sprintf(artifactPromptWithHistoryTemplate, history, query)
}

// RenderHistory formats turns into prompt lines, one per turn. The line
// format matches what the token budget allocator counts, so history is
// never costed twice or differently from what is sent.
func RenderHistory(turns []cache.Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = t.Line()
	}
	return strings.Join(lines, "\n")
}
