// Package httpapi exposes the gateway over HTTP and maps routing outcomes
// and error kinds onto status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opsloom/opsloom/internal/config"
	"github.com/opsloom/opsloom/internal/feedback"
	"github.com/opsloom/opsloom/internal/observability"
	"github.com/opsloom/opsloom/internal/route"
	"github.com/opsloom/opsloom/internal/suid"
	"github.com/opsloom/opsloom/internal/tokens"
)

type Server struct {
	cfg      config.Config
	router   *route.Router
	feedback feedback.Store
	metrics  *observability.Metrics
}

func New(cfg config.Config, router *route.Router, feedbackStore feedback.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		router:   router,
		feedback: feedbackStore,
		metrics:  metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/query", s.handleQuery)
	r.Post("/v1/feedback", s.handleFeedback)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"cache_backend": s.cfg.CacheBackend,
		"llm_mode":      s.cfg.LLMMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"cache_backend": s.cfg.CacheBackend,
		"llm_mode":      s.cfg.LLMMode,
	})
}

type queryRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

type queryResponse struct {
	ConversationID      string   `json:"conversation_id"`
	Response            string   `json:"response"`
	ReferencedDocuments []string `json:"referenced_documents,omitempty"`
	HistoryTruncated    bool     `json:"history_truncated,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	result, err := s.router.Handle(r.Context(), route.Request{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Query:          req.Query,
	})
	if err != nil {
		var invalidErr *suid.InvalidIdentifierError
		switch {
		case errors.As(err, &invalidErr):
			respondError(w, http.StatusBadRequest, "invalid_identifier", invalidErr.Error())
		case errors.Is(err, tokens.ErrPromptTooLarge):
			respondError(w, http.StatusRequestEntityTooLarge, "prompt_too_large",
				"query does not fit the model context window")
		default:
			// Internal detail stays in the logs, never in the response.
			respondError(w, http.StatusInternalServerError, "internal_error", route.InternalFailureText)
		}
		return
	}

	body := queryResponse{
		ConversationID:   result.ConversationID,
		Response:         result.Response,
		HistoryTruncated: result.Truncated,
	}
	for _, p := range result.Referenced {
		body.ReferencedDocuments = append(body.ReferencedDocuments, p.Text)
	}

	if result.State == route.StateRejected {
		respondJSON(w, http.StatusUnprocessableEntity, body)
		return
	}
	respondJSON(w, http.StatusOK, body)
}

type feedbackRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id,omitempty"`
	Sentiment      string `json:"sentiment,omitempty"`
	Comment        string `json:"comment,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := suid.Validate(suid.AxisConversation, req.ConversationID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_identifier", err.Error())
		return
	}

	err := s.feedback.Save(r.Context(), feedback.Record{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Sentiment:      req.Sentiment,
		Comment:        req.Comment,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", route.InternalFailureText)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "feedback received"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
