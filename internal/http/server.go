// Package http serves the JSON API over the categorization engine, the
// category service and the budget aggregator.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"ssmartr/internal/budget"
	"ssmartr/internal/categorize"
	"ssmartr/internal/core"
	"ssmartr/internal/hittest"
	"ssmartr/internal/log"
	"ssmartr/internal/middleware/ratelimit"
	"ssmartr/internal/middleware/security"
	"ssmartr/internal/middleware/trace"
	"ssmartr/internal/notify"
	"ssmartr/internal/services"
	"ssmartr/internal/store"
)

// Ports used by the handlers.
type (
	Categorizer interface {
		Categorize(ctx context.Context, ids []uuid.UUID, categoryID uuid.UUID) (categorize.Outcome, error)
		CategorizeSelection(ctx context.Context, categoryID uuid.UUID) (categorize.Outcome, error)
		Undo(ctx context.Context) (categorize.Outcome, error)
		LastAction() (categorize.UndoRecord, bool)
		Ignore(ctx context.Context, id uuid.UUID, ignored bool) (categorize.Outcome, error)
		Queue(ctx context.Context, search string) ([]core.Transaction, error)
		Toggle(id uuid.UUID) bool
		Select(ids ...uuid.UUID)
		ClearSelection()
		Selection() []uuid.UUID
	}

	CategoryManager interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, in services.NewCategory) (core.Category, error)
		UpdateCategory(ctx context.Context, id uuid.UUID, patch services.CategoryPatch) (core.Category, error)
	}

	OverviewReader interface {
		Snapshot(ctx context.Context) (budget.Snapshot, error)
		CategoryDetail(ctx context.Context, id uuid.UUID) (budget.Detail, error)
	}

	Reader interface {
		store.TransactionReader
		store.AccountReader
	}

	Subscriber interface {
		Subscribe() *notify.Subscription
	}
)

// Deps are the collaborators behind the API. Ready may be nil.
type Deps struct {
	Engine     Categorizer
	Categories CategoryManager
	Overview   OverviewReader
	Reader     Reader
	Updates    Subscriber
	Ready      func(ctx context.Context) error
}

type Config struct {
	Addr      string
	Card      hittest.Size
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server

	deps      Deps
	logger    *log.Logger
	matcher   hittest.Matcher
	proximity *hittest.Proximity
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware

	streams      sync.WaitGroup
	closing      chan struct{}
	shutdownOnce sync.Once
}

func NewServer(cfg Config, deps Deps, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:      deps,
		logger:    logger,
		matcher:   hittest.NewMatcher(cfg.Card),
		proximity: hittest.NewProximity(),
		limiter:   ratelimit.NewLimiter(cfg.RateLimit),
		tracer:    trace.NewMiddleware(extractClientIP, logger),
		closing:   make(chan struct{}),
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PATCH /api/categories/{id}", s.handleUpdateCategory)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions/{id}/ignore", s.handleIgnore)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)

	mux.HandleFunc("POST /api/categorize", s.handleCategorize)
	mux.HandleFunc("GET /api/selection", s.handleGetSelection)
	mux.HandleFunc("POST /api/selection", s.handleToggleSelection)
	mux.HandleFunc("DELETE /api/selection", s.handleClearSelection)
	mux.HandleFunc("POST /api/selection/categorize", s.handleCategorizeSelection)
	mux.HandleFunc("GET /api/undo", s.handleGetUndo)
	mux.HandleFunc("POST /api/undo", s.handleUndo)

	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/overview.xlsx", s.handleOverviewXLSX)
	mux.HandleFunc("GET /api/overview/stream", s.handleOverviewStream)
	mux.HandleFunc("GET /api/overview/{id}", s.handleCategoryDetail)

	mux.HandleFunc("POST /api/gestures/hover", s.handleHover)
	mux.HandleFunc("POST /api/gestures/drop", s.handleDrop)

	var h http.Handler = mux
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, extractClientIP(r),
			log.FieldPath, r.URL.Path)
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
	})(h)
	h = s.tracer.Middleware(h)
	return h
}

// Shutdown closes open overview streams, stops the limiter and drains the
// HTTP server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.closing)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		done := make(chan struct{})
		go func() {
			s.streams.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if shutdownErr == nil {
				shutdownErr = ctx.Err()
			}
		}

		m := s.tracer.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server stopped",
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"avg_response_us", m.AverageResponseTime,
			"rate_limit_hits", s.limiter.GetMetrics().TotalHits)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
