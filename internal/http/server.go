package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/services"
)

const (
	maxWebhookBody      = 1 << 20
	defaultReplyTimeout = 10 * time.Second
)

// Summer answers period total queries.
type Summer interface {
	SumPeriod(ctx context.Context, tag core.PeriodTag) (core.PeriodTotal, error)
}

// Replier sends a text reply for a reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Config struct {
	Addr           string
	ChannelSecret  string
	RateLimit      ratelimit.Config
	ReplyTimeout   time.Duration
	TrustedProxies []string
}

// Deps are the collaborators the webhook dispatches to.
type Deps struct {
	Summer      Summer
	Archiver    services.Mover
	Replier     Replier
	ReadyChecks map[string]ReadyCheck
}

type Server struct {
	http.Server
	secret       string
	summer       Summer
	archiver     services.Mover
	replier      Replier
	readyChecks  map[string]ReadyCheck
	replyTimeout time.Duration
	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. The caller owns ListenAndServe and Shutdown.
func NewServer(cfg Config, deps Deps, logger *log.Logger) (*Server, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("missing LINE_CHANNEL_SECRET")
	}
	if deps.Summer == nil || deps.Archiver == nil || deps.Replier == nil {
		return nil, errors.New("http server requires summer, archiver and replier")
	}
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaultReplyTimeout
	}
	clientIP, err := security.NewClientIP(cfg.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		secret:       cfg.ChannelSecret,
		summer:       deps.Summer,
		archiver:     deps.Archiver,
		replier:      deps.Replier,
		readyChecks:  deps.ReadyChecks,
		replyTimeout: cfg.ReplyTimeout,
		limiter:      ratelimit.NewLimiter(cfg.RateLimit),
		tracer:       trace.NewMiddleware(logger.WithComponent(log.ComponentHTTP), clientIP.Extract),
		logger:       logger,
	}

	// Every delivery comes from the platform's servers, so the limit is
	// applied per sender inside the handler rather than per client IP.
	webhook := log.ComponentMiddleware(log.ComponentWebhook)(http.HandlerFunc(s.handleWebhook))

	mux := http.NewServeMux()
	mux.Handle("POST /webhook", webhook)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready: " + name))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
