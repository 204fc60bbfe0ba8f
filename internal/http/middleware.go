package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/example/gencare-scheduler/internal/application"
)

// SessionValidator resolves a session token into the principal behind it.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
}

// RequestObserver receives one observation per completed request.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// RateLimitObserver is notified whenever a request is rejected by RateLimit.
type RateLimitObserver interface {
	RateLimited()
}

// RequireSession rejects requests without a valid Bearer token or session cookie.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractTokenFromRequest(r)
			if token == "" {
				responder.fail(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken.Error(), nil)
				return
			}

			principal, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, application.ErrUnauthorized),
					errors.Is(err, application.ErrInvalidCredentials),
					errors.Is(err, application.ErrNotFound):
					responder.fail(r.Context(), w, http.StatusUnauthorized, "session is invalid, please sign in again", nil)
				case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
					responder.fail(r.Context(), w, http.StatusUnauthorized, "session is no longer valid, please sign in again", nil)
				case errors.Is(err, application.ErrAccountDisabled):
					responder.fail(r.Context(), w, http.StatusUnauthorized, "account is disabled", nil)
				default:
					responder.loggerFor(r.Context()).ErrorContext(r.Context(), "session validation error", "error", err)
					responder.fail(r.Context(), w, http.StatusInternalServerError, "", nil)
				}
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request scoped logger with a monotonically
// increasing request id and reports each completed request to observer. When
// the request carries a span the logger also records its trace and span ids,
// and the span is renamed after the matched route.
func RequestLogger(base *slog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			attrs := []any{
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			}
			span := trace.SpanFromContext(r.Context())
			if sc := span.SpanContext(); sc.IsValid() {
				attrs = append(attrs, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
			}
			logger := base.With(attrs...)

			label := &routeLabel{pattern: "unmatched"}
			ctx := contextWithRouteLabel(ContextWithLogger(r.Context(), logger), label)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))

			elapsed := time.Since(start)
			span.SetName(r.Method + " " + label.pattern)
			span.SetAttributes(attribute.String("http.route", label.pattern))
			logger.InfoContext(ctx, "request completed",
				"status", recorder.status,
				"route", label.pattern,
				"duration", elapsed,
			)
			if observer != nil {
				observer.ObserveRequest(r.Method, label.pattern, recorder.status, elapsed)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(status int) {
	if !s.wroteHeader {
		s.status = status
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	RPS      float64
	Burst    int
	Observer RateLimitObserver
	Logger   *slog.Logger
	// IdleTTL evicts limiters of clients not seen for this long. Zero means 10 minutes.
	IdleTTL time.Duration
}

// RateLimit throttles each client address with its own token bucket.
// A non-positive RPS disables limiting.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	limiters := newClientLimiters(rate.Limit(cfg.RPS), cfg.Burst, cfg.IdleTTL)
	responder := newResponder(cfg.Logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiters.allow(key, time.Now()) {
				if cfg.Observer != nil {
					cfg.Observer.RateLimited()
				}
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "request rate limited", "client", key)
				w.Header().Set("Retry-After", "1")
				responder.fail(r.Context(), w, http.StatusTooManyRequests, "", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiters struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
}

func newClientLimiters(limit rate.Limit, burst int, idleTTL time.Duration) *clientLimiters {
	return &clientLimiters{
		clients: make(map[string]*clientLimiter),
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
	}
}

func (c *clientLimiters) allow(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) > c.idleTTL {
		for k, entry := range c.clients {
			if now.Sub(entry.lastSeen) > c.idleTTL {
				delete(c.clients, k)
			}
		}
		c.lastSweep = now
	}

	entry, ok := c.clients[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
