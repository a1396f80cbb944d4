package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"capigastos/internal/log"
	"capigastos/internal/middleware/ratelimit"
	"capigastos/internal/middleware/security"
	"capigastos/internal/retry"
	"capigastos/internal/services"
)

// Options configures the API server. Zero values fall back to defaults.
type Options struct {
	Logger            *log.Logger
	Location          *time.Location
	RequestsPerMinute int
	// TrustedProxies are CIDRs whose forwarding headers name the client.
	TrustedProxies []string
	// StoreStats, when set, is reported by /readyz.
	StoreStats *retry.Stats
	// Now is replaced by tests.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	logger   *log.Logger
	loc      *time.Location
	now      func() time.Time
	limiter  *ratelimit.Limiter
	detector *security.Detector
	stats    *retry.Stats
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer builds the API server over ledger.
func NewServer(addr string, ledger *services.LedgerService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		ledger:   ledger,
		logger:   opts.Logger.WithComponent(log.ComponentHTTP),
		loc:      opts.Location,
		now:      opts.Now,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector: security.NewDetector(),
		stats:    opts.StoreStats,
		started:  time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Writes may wait out a full retry schedule against the store.
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
		}))

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/summary", s.handlePeriodSummary)
		r.Get("/category-spend", s.handleCategorySpend)
		r.Get("/budget-status", s.handleBudgetStatus)
		r.Get("/savings", s.handleSavings)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handlePostTransaction)
		r.Delete("/transactions/{position}", s.handleDeleteTransaction)

		r.Post("/transfers", s.handlePostTransfer)
		r.Get("/transfers/orphans", s.handleOrphanTransfers)
		r.Post("/transfers/{id}/repair", s.handleRepairTransfer)

		r.Get("/accounts", s.handleListAccounts)
		r.Post("/accounts", s.handleAddAccount)
		r.Get("/accounts/{name}/balance", s.handleAccountBalance)
		r.Delete("/accounts/{name}", s.handleRemoveAccount)

		r.Get("/budgets", s.handleListBudgets)
		r.Post("/budgets", s.handleAddBudget)
		r.Delete("/budgets/{category}", s.handleRemoveBudget)

		r.Get("/pending", s.handleListPending)
		r.Post("/pending", s.handleAddPending)
		r.Delete("/pending/{description}", s.handleMarkPaid)

		r.Get("/users", s.handleListUsers)
		r.Post("/cache/invalidate", s.handleInvalidateCache)
	})
	return r
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// today is the current time in the household's location.
func (s *Server) today() time.Time {
	return s.now().In(s.loc)
}
