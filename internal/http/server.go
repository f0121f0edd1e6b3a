package http

import (
	"context"
	"net/http"
	"time"

	"finwatch/internal/cache"
	"finwatch/internal/core"
	"finwatch/internal/log"
	"finwatch/internal/middleware/ratelimit"
	"finwatch/internal/middleware/security"
	"finwatch/internal/middleware/trace"
	"finwatch/internal/services"
)

// HeaderUserID carries the caller identity. Authentication happens upstream.
const HeaderUserID = "X-User-ID"

// Services groups the engine entry points served over HTTP.
type Services struct {
	Monitor      *services.Monitor
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
}

// Pinger reports database reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	RateLimitRPM int
	SummaryTTL   time.Duration
	Logger       *log.Logger
}

// Server is the JSON API.
type Server struct {
	http.Server

	svc       Services
	db        Pinger
	logger    *log.Logger
	startedAt time.Time

	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	detector  *security.Detector
	summaries *cache.LRUCache[core.Summary]
	caches    *cache.Manager
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, db Pinger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.SummaryTTL <= 0 {
		opts.SummaryTTL = 30 * time.Second
	}

	detector := security.NewDetector()
	s := &Server{
		svc:       svc,
		db:        db,
		logger:    opts.Logger.WithComponent(log.ComponentHTTP),
		startedAt: time.Now(),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		tracer:    trace.NewMiddleware(opts.Logger, detector.ClientIP),
		detector:  detector,
		summaries: cache.NewLRUCache[core.Summary](1000, opts.SummaryTTL),
		caches:    cache.NewManager(),
	}
	s.caches.Register(s.summaries)
	s.caches.StartCleanup(time.Minute)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/accounts", s.handleListAccounts)
	api.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	api.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	api.HandleFunc("PATCH /api/accounts/{id}", s.handleUpdateAccount)
	api.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	api.HandleFunc("POST /api/accounts/{id}/recompute", s.handleRecomputeAccount)

	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	api.HandleFunc("GET /api/budgets/{id}", s.handleGetBudget)
	api.HandleFunc("PATCH /api/budgets/{id}", s.handleUpdateBudget)
	api.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	api.HandleFunc("GET /api/notifications", s.handleListNotifications)
	api.HandleFunc("GET /api/notifications/unread-count", s.handleUnreadCount)
	api.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkRead)
	api.HandleFunc("POST /api/notifications/read-all", s.handleMarkAllRead)

	api.HandleFunc("GET /api/summary", s.handleSummary)

	rateLimited := s.limiter.Middleware(rateLimitKey(detector), func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/api/", rateLimited(requireUser(api)))

	s.Server = http.Server{
		Addr: addr,
		Handler: chain(mux,
			s.tracer.Middleware,
			log.Middleware(s.logger),
			security.Headers(security.DefaultHeadersConfig()),
			detector.Middleware,
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// chain applies middleware so that the first one listed runs first.
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// rateLimitKey limits identified callers per user and anonymous ones per IP.
func rateLimitKey(d *security.Detector) func(*http.Request) string {
	return func(r *http.Request) string {
		if id := r.Header.Get(HeaderUserID); id != "" {
			return "user:" + id
		}
		return "ip:" + d.ClientIP(r)
	}
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID(r) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderUserID + " header"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown drains the HTTP server and stops background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.limiter.Stop()
	s.caches.Stop()
	return err
}

// invalidateSummary drops the cached summary after a write by userID.
func (s *Server) invalidateSummary(userID string) {
	s.summaries.Delete(userID)
}
