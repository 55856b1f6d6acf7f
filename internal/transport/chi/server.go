package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	logpkg "github.com/kailas-cloud/campus-assistant/internal/logger"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
	healthuc "github.com/kailas-cloud/campus-assistant/internal/usecase/health"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/textservice"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/vocabulary"
)

// Error codes returned in {code, message} bodies.
const (
	codeBadRequest   = "bad_request"
	codeValidation   = "validation_failed"
	codeUnauthorized = "unauthorized"
	codeUnavailable  = "service_unavailable"
	codeInternal     = "internal_error"
)

// maxBodyBytes bounds the chat request body; history is the only unbounded field.
const maxBodyBytes = 64 << 10

// ChatService answers chat requests.
type ChatService interface {
	Ask(ctx context.Context, req domain.Request) (domain.Response, error)
}

// VocabularyRefresher rebuilds the spelling vocabulary.
type VocabularyRefresher interface {
	Refresh(ctx context.Context) (vocabulary.RefreshResult, error)
}

// BudgetReporter reports Text Service token usage.
type BudgetReporter interface {
	Snapshot() textservice.BudgetSnapshot
}

// HealthChecker aggregates dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server is the campus assistant HTTP API.
type Server struct {
	chat          ChatService
	vocab         VocabularyRefresher
	budget        BudgetReporter
	health        HealthChecker
	adminKeys     []string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. adminKeys guard the maintenance
// routes; empty disables the check.
func NewServer(
	chat ChatService,
	vocab VocabularyRefresher,
	budget BudgetReporter,
	health HealthChecker,
	adminKeys []string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		chat:      chat,
		vocab:     vocab,
		budget:    budget,
		health:    health,
		adminKeys: adminKeys,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInputEmpty, http.StatusBadRequest, codeValidation),
		sentinelHandler(domain.ErrInputTooLong, http.StatusBadRequest, codeValidation),
		sentinelHandler(domain.ErrCorpusUnavailable, http.StatusServiceUnavailable, codeUnavailable),
	}
	return s
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.Chat)
		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(s.adminKeys))
			r.Post("/refresh-vocab", s.RefreshVocabulary)
			r.Get("/usage", s.Usage)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// chatRequest accepts "message" as an alias for "question".
type chatRequest struct {
	Question     string        `json:"question"`
	Message      string        `json:"message"`
	History      []domain.Turn `json:"history"`
	PanoNames    []string      `json:"panoNames"`
	ProjectNames []string      `json:"projectNames"`
}

func (c chatRequest) toDomain() domain.Request {
	q := c.Question
	if q == "" {
		q = c.Message
	}
	return domain.Request{
		Question:     q,
		History:      c.History,
		PanoNames:    c.PanoNames,
		ProjectNames: c.ProjectNames,
	}
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.chat.Ask(ctx, req.toDomain())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	logpkg.FromContext(ctx).Info("chat_answer",
		zap.String("branch", string(resp.Branch)),
		zap.String("intent", string(resp.Intent)),
		zap.Float64("confidence", resp.Confidence),
		zap.Int("text_calls", usage.Calls()),
		zap.Int("text_tokens", usage.TotalTokens()),
	)
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

type refreshResponse struct {
	Success bool `json:"success"`
	vocabulary.RefreshResult
}

// RefreshVocabulary handles POST /api/refresh-vocab.
func (s *Server) RefreshVocabulary(w http.ResponseWriter, r *http.Request) {
	res, err := s.vocab.Refresh(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Success: true, RefreshResult: res})
}

// Usage handles GET /api/usage.
func (s *Server) Usage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.budget.Snapshot())
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.RequestUsage) {
	if usage != nil && usage.Calls() > 0 {
		w.Header().Set("X-Text-Service-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
