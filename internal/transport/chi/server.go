// Package chi exposes the assistant over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/retriever-labs/campusqa/internal/domain"
	"github.com/retriever-labs/campusqa/internal/domain/catalog"
	"github.com/retriever-labs/campusqa/internal/usecase/assistant"
	"github.com/retriever-labs/campusqa/internal/usecase/ingest"
)

const maxBatchSize = 500

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the assistant and ingest services.
type Server struct {
	assistant     *assistant.Service
	ingest        *ingest.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(assistantSvc *assistant.Service, ingestSvc *ingest.Service, logger *zap.Logger) *Server {
	s := &Server{
		assistant: assistantSvc,
		ingest:    ingestSvc,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, "empty_query"),
		sentinelHandler(domain.ErrIndexNotReady, http.StatusConflict, "index_not_ready"),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
	}
	return s
}

// Routes mounts all endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/chat", s.Chat)
	r.Post("/api/pipeline/build-index", s.BuildIndex)
	r.Post("/api/admin/classes", s.UpsertClasses)
	r.Post("/api/admin/events", s.UpsertEvents)
	r.Post("/api/admin/calendar", s.UpsertCalendar)
	r.Get("/api/status", s.Status)
	r.Get("/api/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	result, err := s.assistant.AnswerQuery(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// BuildIndex handles POST /api/pipeline/build-index.
func (s *Server) BuildIndex(w http.ResponseWriter, r *http.Request) {
	status, err := s.ingest.RebuildIndex(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// UpsertClasses handles POST /api/admin/classes.
func (s *Server) UpsertClasses(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Classes []catalog.ClassRecord `json:"classes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if !validBatch(w, len(req.Classes)) {
		return
	}

	if err := s.ingest.UpsertClasses(r.Context(), req.Classes); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"ingested": len(req.Classes)})
}

// UpsertEvents handles POST /api/admin/events.
func (s *Server) UpsertEvents(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Events []catalog.Event `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if !validBatch(w, len(req.Events)) {
		return
	}

	if err := s.ingest.UpsertEvents(r.Context(), req.Events); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"ingested": len(req.Events)})
}

// UpsertCalendar handles POST /api/admin/calendar.
func (s *Server) UpsertCalendar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entries []catalog.CalendarEntry `json:"entries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if !validBatch(w, len(req.Entries)) {
		return
	}

	if err := s.ingest.UpsertCalendar(r.Context(), req.Entries); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"ingested": len(req.Entries)})
}

// Status handles GET /api/status.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	status, err := s.ingest.Status(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Health handles GET /api/health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func validBatch(w http.ResponseWriter, n int) bool {
	if n == 0 || n > maxBatchSize {
		writeError(w, http.StatusBadRequest, "validation_failed",
			"batch size must be between 1 and 500")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrIndexNotReady,
		domain.ErrStoreUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
