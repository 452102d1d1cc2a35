package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// SessionCookie carries the session id.
const SessionCookie = "fintrack_session"

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API is built on.
type Deps struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Summaries    *services.SummaryService
	Preferences  *services.PreferencesService
	DB           Pinger
	Logger       *applog.Logger

	RateLimitPerMinute int
	SecureCookies      bool
	TrustedProxies     []string
}

type Server struct {
	http.Server
	deps     Deps
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		deps:     deps,
		logger:   logger,
		detector: detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
			Methods:           []string{http.MethodPost},
		}),
	}
	s.tracer = trace.NewMiddleware(logger, detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/validate-username", s.handleValidateUsername)
	mux.HandleFunc("POST /auth/validate-email", s.handleValidateEmail)
	mux.HandleFunc("GET /auth/activate/{token}", s.handleActivate)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)
	mux.HandleFunc("POST /auth/set-password", s.handleSetPassword)

	for _, kind := range []core.Kind{core.Expense, core.Income} {
		base := "/" + kind.Plural()
		mux.Handle("GET "+base, s.authed(s.handleList(kind)))
		mux.Handle("POST "+base, s.authed(s.handleCreate(kind)))
		mux.Handle("GET "+base+"/{id}", s.authed(s.handleGet(kind)))
		mux.Handle("PUT "+base+"/{id}", s.authed(s.handleUpdate(kind)))
		mux.Handle("DELETE "+base+"/{id}", s.authed(s.handleDelete(kind)))
		mux.Handle("POST "+base+"/search", s.authed(s.handleSearch(kind)))
		mux.Handle("GET "+base+"/summary/{interval}", s.authed(s.handleSummary(kind)))
	}

	mux.Handle("GET /balance", s.authed(http.HandlerFunc(s.handleBalance)))
	mux.Handle("GET /preferences", s.authed(http.HandlerFunc(s.handleGetPreferences)))
	mux.Handle("POST /preferences", s.authed(http.HandlerFunc(s.handleUpdatePreferences)))

	var h http.Handler = mux
	h = s.recoverer(h)
	h = s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			"client_ip", detector.ExtractClientIP(r), "method", r.Method, "url", r.URL.Path)
		TooManyRequestsError().Write(w)
	})(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// authed resolves the session cookie and stores the user in the request
// context.
func (s *Server) authed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if c, err := r.Cookie(SessionCookie); err == nil {
			sessionID = c.Value
		}
		u, err := s.deps.Accounts.Authenticate(r.Context(), sessionID)
		if errors.Is(err, auth.ErrUnauthenticated) {
			UnauthorizedError("authentication required").Write(w)
			return
		}
		if err != nil {
			s.internalError(w, r, "Session lookup failed", err)
			return
		}
		ctx := auth.WithUser(r.Context(), u)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, u.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Panic recovered",
					"panic", fmt.Sprint(rec), "stack", string(debug.Stack()), "url", r.URL.Path)
				InternalServerError().Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// internalError logs err and answers with a generic 500.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), msg, applog.FieldError, err, "url", r.URL.Path)
	InternalServerError().Write(w)
}

func (s *Server) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	return c
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()

	var b strings.Builder
	fmt.Fprintf(&b, "http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(&b, "http_client_errors_total %d\n", tm.ClientErrors)
	fmt.Fprintf(&b, "http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(&b, "http_response_time_avg_microseconds %d\n", tm.AverageResponseTime)
	fmt.Fprintf(&b, "rate_limit_rejected_total %d\n", rm.Rejected)
	fmt.Fprintf(&b, "rate_limit_clients %d\n", rm.ClientCount)
	fmt.Fprintf(&b, "suspicious_requests_total %d\n", s.detector.SuspiciousRequests())
	if s.deps.Summaries != nil {
		cs := s.deps.Summaries.CacheStats()
		fmt.Fprintf(&b, "summary_cache_size %d\n", cs.Size)
		fmt.Fprintf(&b, "summary_cache_hits_total %d\n", cs.Hits)
		fmt.Fprintf(&b, "summary_cache_misses_total %d\n", cs.Misses)
		fmt.Fprintf(&b, "summary_cache_evictions_total %d\n", cs.Evictions)
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(b.String()))
}
