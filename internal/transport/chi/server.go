// Package chi is the HTTP transport: retrieval endpoints for the chat
// layer and the admin surface for overrides and dataset reloads.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/db"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/metrics"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/annotate"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/dataset"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/docstore"
	overridesuc "github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/overrides"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/retrieve"
)

// maxImportBytes bounds override import uploads.
const maxImportBytes = 4 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use case services to HTTP routes.
type Server struct {
	retriever     *retrieve.Service
	overrides     *overridesuc.Service
	dataset       *dataset.Service
	index         *docstore.Store
	store         db.Pinger
	apiKeys       []string
	historyLimit  int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retriever *retrieve.Service,
	overrides *overridesuc.Service,
	ds *dataset.Service,
	index *docstore.Store,
	store db.Pinger,
	apiKeys []string,
	historyLimit int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retriever:    retriever,
		overrides:    overrides,
		dataset:      ds,
		index:        index,
		store:        store,
		apiKeys:      apiKeys,
		historyLimit: historyLimit,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		validationBlockedHandler,
		sentinelHandler(domain.ErrImportParse, http.StatusBadRequest, codeImportFailed),
		sentinelHandler(domain.ErrImportVersion, http.StatusBadRequest, codeImportFailed),
		sentinelHandler(domain.ErrProgramNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrIngestUnavailable, http.StatusBadGateway, codeIngestUnavailable),
	}
	return s
}

// Routes mounts all endpoints on a router. Admin routes sit behind the
// bearer-token middleware; the public retrieval surface does not.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.handleSearch)
	r.Post("/retrieve", s.handleRetrieve)
	r.Post("/annotate", s.handleAnnotate)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(BearerAuthMiddleware(s.apiKeys))
		admin.Get("/overrides", s.handleGetOverrides)
		admin.Put("/overrides", s.handleSaveOverrides)
		admin.Delete("/overrides", s.handleResetOverrides)
		admin.Get("/overrides/export", s.handleExportOverrides)
		admin.Post("/overrides/import", s.handleImportOverrides)
		admin.Get("/overrides/history", s.handleOverridesHistory)
		admin.Post("/overrides/validate", s.handleValidateOverrides)
		admin.Post("/reload", s.handleReload)
	})
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	metrics.SearchesTotal.WithLabelValues("query").Inc()
	writeJSON(w, http.StatusOK, s.retriever.ForQuery(req.Query, req.K))
}

type retrieveRequest struct {
	ProgramIDs []string `json:"programIds"`
	Topic      string   `json:"topic"`
	K          int      `json:"k"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.ProgramIDs) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "programIds is required")
		return
	}

	topic := retrieve.Topic(req.Topic)
	switch topic {
	case "", retrieve.TopicChecklist, retrieve.TopicComparison:
	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"topic must be \"checklist\", \"comparison\", or empty")
		return
	}

	metrics.SearchesTotal.WithLabelValues("programs").Inc()
	writeJSON(w, http.StatusOK, s.retriever.ForPrograms(req.ProgramIDs, topic, req.K))
}

type annotateRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, annotate.Extract(req.Text))
}

func (s *Server) handleGetOverrides(w http.ResponseWriter, r *http.Request) {
	doc, err := s.overrides.Get(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type saveOverridesResponse struct {
	Document *domain.Overrides   `json:"document"`
	Issues   []overridesuc.Issue `json:"issues"`
}

func (s *Server) handleSaveOverrides(w http.ResponseWriter, r *http.Request) {
	var doc domain.Overrides
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	force := r.URL.Query().Get("force") == "1"
	issues, err := s.overrides.Save(r.Context(), &doc, force)
	if err != nil {
		if errors.Is(err, domain.ErrValidationBlocked) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"code":    codeValidationBlocked,
				"message": "override document rejected by validation",
				"issues":  issues,
			})
			return
		}
		s.handleDomainError(w, err)
		return
	}
	s.publishIssueMetrics(issues)

	writeJSON(w, http.StatusOK, saveOverridesResponse{Document: &doc, Issues: issuesOrEmpty(issues)})
}

func (s *Server) handleResetOverrides(w http.ResponseWriter, r *http.Request) {
	if err := s.overrides.Reset(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportOverrides(w http.ResponseWriter, r *http.Request) {
	data, err := s.overrides.Export(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="overrides.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImportOverrides(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "read body: "+err.Error())
		return
	}

	doc, issues, err := s.overrides.Import(r.Context(), data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.publishIssueMetrics(issues)

	writeJSON(w, http.StatusOK, saveOverridesResponse{Document: doc, Issues: issuesOrEmpty(issues)})
}

func (s *Server) handleOverridesHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.overrides.History(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleValidateOverrides(w http.ResponseWriter, r *http.Request) {
	var doc domain.Overrides
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	issues := s.overrides.Validate(&doc)
	writeJSON(w, http.StatusOK, map[string]any{
		"issues":    issuesOrEmpty(issues),
		"hasErrors": overridesuc.HasErrors(issues),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	report, err := s.dataset.Reload(r.Context())
	if err != nil {
		metrics.ReloadsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.ReloadsTotal.WithLabelValues("ok").Inc()
	metrics.DatasetChunks.Set(float64(report.Chunks))

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok", "index": "ok"}
	status := "healthy"
	httpStatus := http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "unavailable"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}
	if s.index.Stats().Chunks == 0 {
		checks["index"] = "empty"
		if status == "healthy" {
			status = "degraded"
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func (s *Server) publishIssueMetrics(issues []overridesuc.Issue) {
	var errs, warns int
	for _, i := range issues {
		if i.Severity == overridesuc.SeverityError {
			errs++
		} else {
			warns++
		}
	}
	metrics.OverrideIssues.WithLabelValues("error").Set(float64(errs))
	metrics.OverrideIssues.WithLabelValues("warn").Set(float64(warns))
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
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func issuesOrEmpty(issues []overridesuc.Issue) []overridesuc.Issue {
	if issues == nil {
		return []overridesuc.Issue{}
	}
	return issues
}
