// Package route drives one request through validation, classification,
// context assembly and generation, reading and writing conversation state
// along the way.
package route

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opsloom/opsloom/internal/cache"
	"github.com/opsloom/opsloom/internal/llm"
	"github.com/opsloom/opsloom/internal/observability"
	"github.com/opsloom/opsloom/internal/suid"
	"github.com/opsloom/opsloom/internal/tokens"
)

// State is a routing state. Responded, Rejected and Failed are terminal.
type State string

const (
	StateInit       State = "INIT"
	StateValidating State = "VALIDATING"
	StateInvalid    State = "INVALID"
	StateValid      State = "VALID"
	StateNoYAML     State = "NOYAML"
	StateYAML       State = "YAML"
	StateSummarize  State = "SUMMARIZE"
	StateGenerate   State = "GENERATE"
	StateResponded  State = "RESPONDED"
	StateRejected   State = "REJECTED"
	StateFailed     State = "FAILED"
)

// RefusalText is the fixed response for out-of-domain questions.
const RefusalText = "Sorry, I can only answer questions about the platform " +
	"and its workloads. This does not look like something I know how to handle."

// InternalFailureText is the generic response body for internal failures.
// It never carries internal error detail.
const InternalFailureText = "Sorry, something bad happened internally. Please try again."

// DefaultUserID keys conversation state when the transport supplies no
// user identifier.
const DefaultUserID = "00000000-0000-0000-0000-000000000000"

var (
	// ErrClassification marks a failed call to the external classifier.
	ErrClassification = errors.New("classification failed")

	// ErrInternalRouting marks a collaborator answer outside its declared
	// contract. Always fatal to the request, never treated as success.
	ErrInternalRouting = errors.New("internal routing error")
)

// Request is one incoming query. ConversationID and UserID may be empty;
// a missing conversation id starts a new conversation.
type Request struct {
	UserID         string
	ConversationID string
	Query          string
}

// Result is the terminal outcome of one request.
type Result struct {
	State          State
	ConversationID string
	Response       string
	Referenced     []tokens.Passage // passages that grounded the answer
	Truncated      bool             // history was cut to fit the window
}

// Config carries the model window geometry and routing options.
type Config struct {
	ContextWindow    int
	ResponseReserve  int
	PersistSummaries bool // also write back summarize-path exchanges
}

// Router is the request-routing state machine. All collaborators are
// injected; the cache is only ever touched through its two documented
// operations.
type Router struct {
	cfg        Config
	cache      cache.Cache
	budget     *tokens.Handler
	classifier llm.Classifier
	retriever  llm.Retriever
	summarizer llm.Summarizer
	generator  llm.ArtifactGenerator
	metrics    *observability.Metrics
}

func NewRouter(
	cfg Config,
	store cache.Cache,
	budget *tokens.Handler,
	classifier llm.Classifier,
	retriever llm.Retriever,
	summarizer llm.Summarizer,
	generator llm.ArtifactGenerator,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		cfg:        cfg,
		cache:      store,
		budget:     budget,
		classifier: classifier,
		retriever:  retriever,
		summarizer: summarizer,
		generator:  generator,
		metrics:    metrics,
	}
}

// Handle runs one request to a terminal state. A non-nil error always
// corresponds to StateFailed or to an identifier the caller got wrong;
// rejection of out-of-domain questions is a valid terminal result, not an
// error.
func (r *Router) Handle(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	result, err := r.handle(ctx, req)
	r.metrics.ObserveRequest(string(result.State), time.Since(start))
	return result, err
}

func (r *Router) handle(ctx context.Context, req Request) (Result, error) {
	userID := req.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	conversationID := req.ConversationID
	newConversation := conversationID == ""
	if newConversation {
		conversationID = suid.New()
	}

	if err := suid.Validate(suid.AxisUser, userID); err != nil {
		return Result{State: StateFailed, ConversationID: conversationID}, err
	}
	if err := suid.Validate(suid.AxisConversation, conversationID); err != nil {
		return Result{State: StateFailed, ConversationID: conversationID}, err
	}

	history, err := r.loadHistory(ctx, userID, conversationID, newConversation)
	if err != nil {
		// Answering with amnesia about a known conversation is worse than
		// failing the request.
		return Result{State: StateFailed, ConversationID: conversationID}, err
	}

	classification, err := r.classifier.Classify(ctx, conversationID, req.Query)
	if err != nil {
		return Result{State: StateFailed, ConversationID: conversationID},
			fmt.Errorf("%w: %v", ErrClassification, err)
	}

	switch classification.Validity {
	case llm.ValidityInvalid:
		return Result{
			State:          StateRejected,
			ConversationID: conversationID,
			Response:       RefusalText,
		}, nil

	case llm.ValidityValid:
		switch classification.Kind {
		case llm.KindNoYAML:
			return r.summarize(ctx, userID, conversationID, req.Query, history)
		case llm.KindYAML:
			return r.generate(ctx, userID, conversationID, req.Query, history)
		default:
			return Result{State: StateFailed, ConversationID: conversationID},
				fmt.Errorf("%w: classifier returned kind %q", ErrInternalRouting, classification.Kind)
		}

	default:
		return Result{State: StateFailed, ConversationID: conversationID},
			fmt.Errorf("%w: classifier returned validity %q", ErrInternalRouting, classification.Validity)
	}
}

func (r *Router) loadHistory(ctx context.Context, userID, conversationID string, newConversation bool) ([]cache.Turn, error) {
	if newConversation {
		return nil, nil
	}
	history, err := r.cache.Get(ctx, userID, conversationID)
	if errors.Is(err, cache.ErrNotFound) {
		r.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return history, nil
}

// summarize is the plain-answer path: fit retrieved passages and history
// into the window, then ask the summarizer.
func (r *Router) summarize(ctx context.Context, userID, conversationID, query string, history []cache.Turn) (Result, error) {
	// The skeleton with sample placeholders costs what the real prompt
	// costs minus the variable content, which is exactly the fixed part.
	skeleton := llm.SummaryPrompt("sample", "sample", query)
	budget, err := r.budget.AvailableTokens(skeleton, r.cfg.ContextWindow, r.cfg.ResponseReserve)
	if err != nil {
		return Result{State: StateFailed, ConversationID: conversationID}, err
	}
	r.metrics.TokenBudget.Observe(float64(budget))

	// Retrieval is best-effort: no index or a failed index lookup degrades
	// to answering without reference content.
	var passages []tokens.Passage
	if r.retriever != nil {
		if got, err := r.retriever.Retrieve(ctx, query); err == nil {
			passages = got
		}
	}

	kept, remaining := r.budget.TruncatePassages(passages, budget)
	reference := make([]string, len(kept))
	for i, p := range kept {
		reference[i] = p.Text
	}

	keptHistory, truncated := r.budget.TruncateHistory(history, remaining)

	prompt := llm.SummaryPrompt(
		strings.Join(reference, "\n\n"),
		llm.RenderHistory(keptHistory),
		query,
	)
	summary, err := r.summarizer.Summarize(ctx, conversationID, prompt)
	if err != nil {
		return Result{State: StateFailed, ConversationID: conversationID},
			fmt.Errorf("summarize: %w", err)
	}

	if r.cfg.PersistSummaries {
		turns := []cache.Turn{
			{Role: cache.RoleHuman, Content: query},
			{Role: cache.RoleAssistant, Content: summary},
		}
		if err := r.cache.InsertOrAppend(ctx, userID, conversationID, turns); err != nil {
			return Result{State: StateFailed, ConversationID: conversationID}, err
		}
	}

	return Result{
		State:          StateResponded,
		ConversationID: conversationID,
		Response:       summary,
		Referenced:     kept,
		Truncated:      truncated,
	}, nil
}

// generate is the structured-artifact path: prior context rides along raw,
// and the completed exchange is written back as one turn.
func (r *Router) generate(ctx context.Context, userID, conversationID, query string, history []cache.Turn) (Result, error) {
	prompt := llm.ArtifactPrompt(query, llm.RenderHistory(history))

	artifact, err := r.generator.GenerateArtifact(ctx, conversationID, prompt)
	if err != nil {
		return Result{State: StateFailed, ConversationID: conversationID},
			fmt.Errorf("generate artifact: %w", err)
	}

	// Persist only after the exchange fully completed; a stored turn never
	// represents a partial generation.
	turn := cache.Turn{
		Role:    cache.RoleAssistant,
		Content: query + "\n\n" + artifact,
	}
	if err := r.cache.InsertOrAppend(ctx, userID, conversationID, []cache.Turn{turn}); err != nil {
		return Result{State: StateFailed, ConversationID: conversationID}, err
	}

	return Result{
		State:          StateResponded,
		ConversationID: conversationID,
		Response:       artifact,
	}, nil
}
