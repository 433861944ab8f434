package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/storage"
)

// Ports to the application services. Handlers depend on these rather
// than on the concrete service types so tests can substitute fakes.
type (
	AccountService interface {
		Create(ctx context.Context, a core.Account) (core.Account, error)
		Get(ctx context.Context, id int64) (core.Account, error)
		List(ctx context.Context, userID int64) ([]core.Account, error)
		Update(ctx context.Context, a core.Account) (core.Account, error)
		Delete(ctx context.Context, id int64) error
		Reconcile(ctx context.Context, accountID int64) (core.ReconcileReport, error)
	}

	TransactionService interface {
		Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
		Get(ctx context.Context, id int64) (core.Transaction, error)
		List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
		Update(ctx context.Context, t core.Transaction) (core.Transaction, error)
		Delete(ctx context.Context, id int64) error
	}

	// RecurrencePreviewer computes the next due date of a stored
	// recurring template without materializing it.
	RecurrencePreviewer interface {
		NextForTemplate(ctx context.Context, templateID int64) (core.Date, error)
	}

	CategoryService interface {
		Create(ctx context.Context, c core.Category) (core.Category, error)
		Get(ctx context.Context, id int64) (core.Category, error)
		List(ctx context.Context, userID int64) ([]core.Category, error)
		Delete(ctx context.Context, id int64) error
	}

	BudgetService interface {
		Create(ctx context.Context, b core.Budget) (core.Budget, error)
		Get(ctx context.Context, id int64) (core.Budget, error)
		List(ctx context.Context, userID int64) ([]core.Budget, error)
		Update(ctx context.Context, b core.Budget) (core.Budget, error)
		Delete(ctx context.Context, id int64) error
		Status(ctx context.Context, userID int64, today core.Date) ([]core.BudgetUsage, error)
	}

	GoalService interface {
		Create(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error)
		Get(ctx context.Context, id int64) (core.SavingsGoal, error)
		List(ctx context.Context, userID int64) ([]core.SavingsGoal, error)
		Update(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error)
		Delete(ctx context.Context, id int64) error
		Contribute(ctx context.Context, c core.GoalContribution) (core.SavingsGoal, error)
		Contributions(ctx context.Context, goalID int64) ([]core.GoalContribution, error)
	}

	DashboardService interface {
		Summary(ctx context.Context, userID int64, today core.Date) (core.DashboardSummary, error)
		Invalidate(userID int64)
		CacheStats() cache.Stats
	}
)

// Services bundles everything the router exposes.
type Services struct {
	Accounts     AccountService
	Transactions TransactionService
	Recurrence   RecurrencePreviewer
	Categories   CategoryService
	Budgets      BudgetService
	Goals        GoalService
	Dashboard    DashboardService
}

// Config holds server configuration
type Config struct {
	Addr              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RequestsPerMinute int
	Logger            *log.Logger
}

// Server is the HTTP boundary: it parses and validates requests, calls
// the services, and maps domain errors onto status codes.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	logger  *log.Logger
	svc     Services
	limiter *ratelimit.Limiter
}

// New creates a new HTTP server
func New(cfg Config, svc Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		router:  chi.NewRouter(),
		logger:  logger,
		svc:     svc,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
	}

	s.setupMiddleware()
	s.setupRoutes()

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", headerUserID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(s.limiter.Middleware(
		func(r *http.Request) string { return r.RemoteAddr },
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			respondError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
		},
	))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", s.handleCreateAccount)
			r.Get("/", s.handleListAccounts)
			r.Get("/{id}", s.handleGetAccount)
			r.Put("/{id}", s.handleUpdateAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
			r.Post("/{id}/reconcile", s.handleReconcileAccount)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", s.handleCreateTransaction)
			r.Get("/", s.handleListTransactions)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
			r.Get("/{id}/next-occurrence", s.handleNextOccurrence)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", s.handleCreateCategory)
			r.Get("/", s.handleListCategories)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Post("/", s.handleCreateBudget)
			r.Get("/", s.handleListBudgets)
			r.Get("/status", s.handleBudgetStatus)
			r.Get("/{id}", s.handleGetBudget)
			r.Put("/{id}", s.handleUpdateBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Post("/", s.handleCreateGoal)
			r.Get("/", s.handleListGoals)
			r.Get("/{id}", s.handleGetGoal)
			r.Put("/{id}", s.handleUpdateGoal)
			r.Delete("/{id}", s.handleDeleteGoal)
			r.Post("/{id}/contributions", s.handleContribute)
			r.Get("/{id}/contributions", s.handleListContributions)
		})

		r.Get("/dashboard", s.handleDashboard)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	s.limiter.Stop()
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":               "ok",
		"rate_limited_clients": s.limiter.ActiveClients(),
	}
	if s.svc.Dashboard != nil {
		stats := s.svc.Dashboard.CacheStats()
		resp["dashboard_cache"] = map[string]any{
			"size":     stats.Size,
			"hit_rate": stats.HitRate(),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// loggingMiddleware logs every request on completion, escalating the
// level with the response class.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	structured := log.NewStructuredLogger(s.logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		structured.LogHTTPEnd(r.Context(), r, ww.Status(), time.Since(start).Milliseconds(), r.RemoteAddr)
	})
}
