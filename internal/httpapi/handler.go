// Package httpapi exposes the tutor over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/phoenix/internal/agents"
	"github.com/ChamsBouzaiene/phoenix/internal/observability"
	"github.com/ChamsBouzaiene/phoenix/internal/orchestrator"
)

// maxRequestBodySize caps POST bodies (1MB).
const maxRequestBodySize = 1 << 20

const defaultSearchLimit = 10

// Searcher finds past interactions by free text.
type Searcher interface {
	Search(ctx context.Context, text string, limit int) ([]observability.SearchHit, error)
}

// History reads durable interaction records.
type History interface {
	Get(ctx context.Context, id string) (observability.Record, error)
	Count(ctx context.Context) (int, error)
	UsageStats(ctx context.Context) (map[string]int, error)
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
	Code  string `json:"code,omitempty"`
}

// QueryResponse is returned by POST /api/query.
type QueryResponse struct {
	FinalResponse   string            `json:"final_response"`
	AgentsConsulted []agents.Category `json:"agents_consulted"`
	AgentResponses  []AgentResponse   `json:"agent_responses"`
	Synthesized     bool              `json:"synthesized"`
	InteractionID   string            `json:"interaction_id"`
	SessionID       string            `json:"session_id,omitempty"`
}

// AgentResponse is one agent's answer, in dispatch order.
type AgentResponse struct {
	Agent    agents.Category `json:"agent"`
	Response string          `json:"response"`
	Failed   bool            `json:"failed,omitempty"`
}

// StatsResponse is returned by GET /api/stats.
type StatsResponse struct {
	TotalInteractions  int            `json:"total_interactions"`
	Usage              map[string]int `json:"usage"`
	StoredInteractions *int           `json:"stored_interactions,omitempty"`
	StoredUsage        map[string]int `json:"stored_usage,omitempty"`
}

// Handler serves the tutor API.
type Handler struct {
	orch    *orchestrator.Orchestrator
	history History
	search  Searcher
	logger  *zap.Logger
}

// NewHandler creates a handler. history and search may be nil, in which case
// the endpoints that need them answer 503.
func NewHandler(orch *orchestrator.Orchestrator, history History, search Searcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orch: orch, history: history, search: search, logger: logger}
}

// Router builds the chi router with middleware and all routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/query", h.HandleQuery)
		r.Get("/session", h.HandleSession)
		r.Get("/report", h.HandleReport)
		r.Get("/stats", h.HandleStats)
		r.Get("/agents", h.HandleAgents)
		r.Get("/interactions/search", h.HandleSearch)
		r.Get("/interactions/{id}", h.HandleInteraction)
	})
}

// HandleQuery runs one query through the orchestrator.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		Error(w, http.StatusBadRequest, "query is required")
		return
	}

	out := h.orch.ProcessQuery(r.Context(), req.Query, req.Code)

	resp := QueryResponse{
		FinalResponse:   out.FinalResponse,
		AgentsConsulted: out.AgentsConsulted,
		AgentResponses:  make([]AgentResponse, 0, len(out.AgentsConsulted)),
		Synthesized:     out.Synthesized,
		InteractionID:   out.InteractionID,
		SessionID:       out.SessionID,
	}
	for i, c := range out.AgentsConsulted {
		ar := AgentResponse{Agent: c, Response: out.AgentResponses[c]}
		if i < len(out.Results) {
			ar.Failed = out.Results[i].Failed()
		}
		resp.AgentResponses = append(resp.AgentResponses, ar)
	}
	JSON(w, http.StatusOK, resp)
}

// HandleSession returns the active session snapshot.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sessions := h.orch.Sessions()
	if !sessions.Active() {
		Error(w, http.StatusNotFound, "no active session")
		return
	}
	JSON(w, http.StatusOK, sessions.Context())
}

// HandleReport returns the interaction report.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.orch.Interactions().Report())
}

// HandleStats returns agent usage counts for this process and, when a
// durable history is attached, across all runs.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	log := h.orch.Interactions()
	resp := StatsResponse{
		TotalInteractions: log.Len(),
		Usage:             log.UsageStats(),
	}

	if h.history != nil {
		n, err := h.history.Count(r.Context())
		if err != nil {
			h.logger.Error("failed to count stored interactions", zap.Error(err))
			Error(w, http.StatusInternalServerError, "failed to read history")
			return
		}
		usage, err := h.history.UsageStats(r.Context())
		if err != nil {
			h.logger.Error("failed to read stored usage", zap.Error(err))
			Error(w, http.StatusInternalServerError, "failed to read history")
			return
		}
		resp.StoredInteractions = &n
		resp.StoredUsage = usage
	}
	JSON(w, http.StatusOK, resp)
}

// HandleAgents lists the registered agent categories.
func (h *Handler) HandleAgents(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"agents": h.orch.Registry().Categories()})
}

// HandleSearch runs a full-text search over past interactions.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		Error(w, http.StatusServiceUnavailable, "search is not enabled")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		Error(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := defaultSearchLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	hits, err := h.search.Search(r.Context(), q, limit)
	if err != nil {
		h.logger.Error("search failed", zap.String("q", q), zap.Error(err))
		Error(w, http.StatusInternalServerError, "search failed")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"hits": hits})
}

// HandleInteraction returns one stored interaction.
func (h *Handler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		Error(w, http.StatusServiceUnavailable, "history is not enabled")
		return
	}
	rec, err := h.history.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, observability.ErrRecordNotFound) {
		Error(w, http.StatusNotFound, "interaction not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load interaction", zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	JSON(w, http.StatusOK, rec)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		})
	}
}
