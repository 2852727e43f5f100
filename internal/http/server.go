package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/report"
	appweb "fintrack/web"
)

// Ledger is the subset of the finance service the handlers need.
type Ledger interface {
	Snapshot() core.FinanceData
	Report(ctx context.Context, r core.DateRange) report.Report
	SetInitialBalance(ctx context.Context, input string) (decimal.Decimal, error)
	AddTransaction(ctx context.Context, typ core.TransactionType, amountInput, category string) (core.Transaction, error)
	ChangeCurrency(ctx context.Context, code string) error
	Reset(ctx context.Context, confirmed bool) error
}

// Options wires the server's collaborators. Only Ledger is required.
type Options struct {
	Ledger             Ledger
	Logger             *log.Logger
	Metrics            *metrics.Metrics
	Location           *time.Location
	RateLimitPerMinute int

	// Ready reports whether the storage backend is reachable.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger    Ledger
	templates *template.Template
	logger    *log.Logger
	metrics   *metrics.Metrics
	location  *time.Location
	ready     func(ctx context.Context) error
	validate  *validator.Validate
	started   time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentHTTP)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		ledger:      opts.Ledger,
		logger:      logger.WithComponent(log.ComponentHTTP),
		metrics:     opts.Metrics,
		location:    loc,
		ready:       opts.Ready,
		validate:    validator.New(),
		started:     time.Now(),
		rateLimiter: ratelimit.NewLimiter(rlConfig),
		detector:    security.NewDetector(opts.Metrics.Suspicious),
	}

	t, err := parseTemplates()
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func parseTemplates() (*template.Template, error) {
	return template.New("").ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func (s *Server) routes() http.Handler {
	tracer := trace.NewMiddleware(s.logger.WithComponent(log.ComponentTrace), s.detector.ExtractClientIP, s.observe)
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(s.logger))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Get("/", s.handleIndex)
		r.Get("/ui/summary", s.handleSummaryPartial)
		r.Get("/ui/transactions", s.handleTransactionsPartial)

		r.With(limit).Post("/initial-balance", s.handleSetInitialBalance)
		r.With(limit).Post("/transactions", s.handleAddTransaction)
		r.With(limit).Post("/currency", s.handleChangeCurrency)
		r.With(limit).Post("/reset", s.handleReset)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Get("/data", s.apiData)
		r.Get("/summary", s.apiSummary)
		r.Get("/transactions", s.apiTransactions)
		r.Get("/currencies", s.apiCurrencies)
		r.Get("/ranges", s.apiRanges)
		r.Get("/categories", s.apiCategories)

		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/initial-balance", s.apiSetInitialBalance)
			r.Post("/transactions", s.apiAddTransaction)
			r.Put("/currency", s.apiChangeCurrency)
			r.Post("/reset", s.apiReset)
		})
	})

	return r
}

// observe records request metrics keyed by the matched route pattern so
// path parameters do not explode label cardinality.
func (s *Server) observe(r *http.Request, status int, d time.Duration) {
	route := "unmatched"
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	}
	s.metrics.ObserveRequest(route, r.Method, status, d)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimitHit()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
