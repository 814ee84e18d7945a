package http

import (
	"context"
	"net/http"
	"net/netip"
	"sync"
	"time"

	applog "matchday/internal/log"
	"matchday/internal/middleware/ratelimit"
	"matchday/internal/middleware/security"
	"matchday/internal/middleware/telegramauth"
	"matchday/internal/middleware/trace"
	"matchday/internal/services"
)

// Options wires the server to its services. History is required; a nil
// Ingest leaves the webhook unrouted.
type Options struct {
	History *services.HistoryService
	Ingest  *services.IngestService
	// Ready reports whether the backend can serve; nil means always ready.
	Ready func(ctx context.Context) error

	Theme         string
	ImageProxyURL string

	RateLimitPerMinute int
	// TrustedProxies extend the private ranges whose X-Forwarded-For is used.
	TrustedProxies []netip.Prefix

	// TelegramBotToken enables initData verification on /api/ when set.
	TelegramBotToken   string
	TelegramAuthMaxAge time.Duration
	AllowUser          func(userID int64) bool

	// WebhookToken is the bearer token the booking system must present.
	WebhookToken string

	Logger *applog.Logger
}

type Server struct {
	http.Server

	history      *services.HistoryService
	ingest       *services.IngestService
	ready        func(ctx context.Context) error
	theme        string
	imageProxy   string
	webhookToken string

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter
	logger   *applog.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	rlCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		history:      opts.History,
		ingest:       opts.Ingest,
		ready:        opts.Ready,
		theme:        opts.Theme,
		imageProxy:   opts.ImageProxyURL,
		webhookToken: opts.WebhookToken,
		detector:     security.NewDetector(logger, opts.TrustedProxies...),
		limiter:      ratelimit.NewLimiter(rlCfg),
		logger:       logger,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/history", s.handleHistory)
	api.HandleFunc("GET /api/history/seasons", s.handleSeasons)
	api.HandleFunc("GET /api/history/matches", s.handleMonthMatches)
	api.HandleFunc("GET /api/matches/{id}", s.handleMatch)

	var apiHandler http.Handler = api
	if opts.TelegramBotToken != "" {
		apiHandler = telegramauth.NewMiddleware(opts.TelegramBotToken, opts.TelegramAuthMaxAge, opts.AllowUser, logger).Handler(api)
	} else {
		logger.Warn("Telegram bot token not set, API served without initData verification")
	}

	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/api/", security.NoStore(limit(apiHandler)))
	if s.ingest != nil {
		mux.Handle("POST /api/webhooks/match-completed", security.NoStore(limit(http.HandlerFunc(s.handleMatchCompleted))))
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig(opts.ImageProxyURL))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(s.detector.Middleware(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		tm := s.tracer.GetMetrics()
		dm := s.detector.GetMetrics()
		rm := s.limiter.Stats()
		s.logger.Info("HTTP server stopped",
			applog.FieldOperation, applog.OpShutdown,
			"total_requests", tm.TotalRequests,
			"total_errors", tm.TotalErrors,
			"avg_response_us", tm.AverageResponseTime,
			"blocked_requests", dm.BlockedRequests,
			"rate_limited", rm.Limited)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
