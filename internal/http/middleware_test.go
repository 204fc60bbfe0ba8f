package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/example/gencare-scheduler/internal/application"
)

func TestSessionMiddleware(t *testing.T) {
	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		tests := []struct {
			name           string
			cookieToken    *http.Cookie
			headerToken    string
			lookupError    error
			expectedStatus int
		}{
			{
				name:           "missing credentials",
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "non bearer header",
				headerToken:    "Basic abc",
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "unknown session",
				headerToken:    "Bearer unknown",
				lookupError:    application.ErrUnauthorized,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "revoked session",
				cookieToken:    &http.Cookie{Name: sessionCookieName, Value: "revoked-token"},
				lookupError:    application.ErrSessionRevoked,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "disabled account",
				headerToken:    "Bearer disabled",
				lookupError:    application.ErrAccountDisabled,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "repository failure",
				headerToken:    "Bearer transient",
				lookupError:    errors.New("database is locked"),
				expectedStatus: http.StatusInternalServerError,
			},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookieToken != nil {
					req.AddCookie(tc.cookieToken)
				}
				if tc.headerToken != "" {
					req.Header.Set("Authorization", tc.headerToken)
				}
				recorder := httptest.NewRecorder()

				validator := &fakeSessionValidator{err: tc.lookupError}
				handler := RequireSession(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				if recorder.Code != tc.expectedStatus {
					t.Fatalf("expected status %d, got %d", tc.expectedStatus, recorder.Code)
				}
				if body := decodeEnvelope(t, recorder); body.Success || body.Message == "" {
					t.Fatalf("expected failure envelope with message, got %+v", body)
				}
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		principal := application.Principal{UserID: "consultant-1", Role: application.RoleConsultant, Name: "Dr. Lan"}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-token"})
		recorder := httptest.NewRecorder()

		var captured application.Principal
		validator := &fakeSessionValidator{principal: principal}
		handler := RequireSession(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if captured != principal {
			t.Fatalf("expected principal %+v, got %+v", principal, captured)
		}
		if len(validator.tokens) != 1 || validator.tokens[0] != "valid-token" {
			t.Fatalf("expected cookie token to be validated, got %v", validator.tokens)
		}
	})

	t.Run("bearer header wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-token"})

		validator := &fakeSessionValidator{principal: staffPrincipal}
		RequireSession(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)

		if len(validator.tokens) != 1 || validator.tokens[0] != "header-token" {
			t.Fatalf("expected header token, got %v", validator.tokens)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	observer := &observerStub{}
	service := &userServiceStub{err: application.ErrNotFound}
	router := NewRouter(RouterConfig{
		Users:          NewUserHandler(service, discardLogger()),
		RequireSession: RequireSession(&fakeSessionValidator{principal: staffPrincipal}, discardLogger()),
		Middleware:     []func(http.Handler) http.Handler{RequestLogger(discardLogger(), observer)},
	})

	var loggerSeen bool
	inspect := RequestLogger(discardLogger(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loggerSeen = LoggerFromContext(r.Context()) != nil
	}))
	inspect.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !loggerSeen {
		t.Fatalf("expected request logger in context")
	}

	serve(router, httptest.NewRequest(http.MethodGet, "/users/user-42", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if len(observer.routes) != 2 {
		t.Fatalf("expected two observations, got %d", len(observer.routes))
	}
	if observer.routes[0] != "/users/{id}" || observer.statuses[0] != http.StatusNotFound {
		t.Fatalf("unexpected first observation: route=%q status=%d", observer.routes[0], observer.statuses[0])
	}
	if observer.routes[1] != "unmatched" || observer.statuses[1] != http.StatusNotFound {
		t.Fatalf("unexpected second observation: route=%q status=%d", observer.routes[1], observer.statuses[1])
	}
	if observer.methods[0] != http.MethodGet {
		t.Fatalf("unexpected method %q", observer.methods[0])
	}
}

func TestRequestLogger_TraceCorrelation(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	router := NewRouter(RouterConfig{
		Users:          NewUserHandler(&userServiceStub{err: application.ErrNotFound}, discardLogger()),
		RequireSession: RequireSession(&fakeSessionValidator{principal: staffPrincipal}, discardLogger()),
		Middleware:     []func(http.Handler) http.Handler{RequestLogger(logger, nil)},
	})

	ctx, span := provider.Tracer("test").Start(context.Background(), "inbound")
	serve(router, httptest.NewRequest(http.MethodGet, "/users/user-42", nil).WithContext(ctx))
	span.End()

	ended := spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected one span, got %d", len(ended))
	}
	if ended[0].Name() != "GET /users/{id}" {
		t.Fatalf("expected span to be named after the route, got %q", ended[0].Name())
	}
	traceID := ended[0].SpanContext().TraceID().String()

	lines := 0
	decoder := json.NewDecoder(&buf)
	for decoder.More() {
		var entry map[string]any
		if err := decoder.Decode(&entry); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if entry["msg"] != "request started" && entry["msg"] != "request completed" {
			continue
		}
		lines++
		if entry["trace_id"] != traceID {
			t.Fatalf("expected trace_id %s on %q, got %v", traceID, entry["msg"], entry["trace_id"])
		}
		if entry["span_id"] != ended[0].SpanContext().SpanID().String() {
			t.Fatalf("unexpected span_id %v", entry["span_id"])
		}
	}
	if lines != 2 {
		t.Fatalf("expected start and completion lines, got %d", lines)
	}

	buf.Reset()
	serve(router, httptest.NewRequest(http.MethodGet, "/users/user-42", nil))
	if bytes.Contains(buf.Bytes(), []byte("trace_id")) {
		t.Fatalf("untraced requests must not carry a trace id: %s", buf.String())
	}
}

func TestRateLimit(t *testing.T) {
	t.Run("rejects requests beyond the burst per client", func(t *testing.T) {
		observer := &observerStub{}
		handler := RateLimit(RateLimitConfig{RPS: 0.001, Burst: 2, Observer: observer, Logger: discardLogger()})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		statuses := make([]int, 0, 4)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:5000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			statuses = append(statuses, rec.Code)
		}

		other := httptest.NewRequest(http.MethodGet, "/", nil)
		other.RemoteAddr = "10.0.0.2:6000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, other)
		statuses = append(statuses, rec.Code)

		want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusOK}
		for i := range want {
			if statuses[i] != want[i] {
				t.Fatalf("request %d: expected %d, got %d", i, want[i], statuses[i])
			}
		}
		if observer.rateLimited != 1 {
			t.Fatalf("expected one rate limited observation, got %d", observer.rateLimited)
		}
	})

	t.Run("disabled when rps is zero", func(t *testing.T) {
		handler := RateLimit(RateLimitConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		for i := 0; i < 50; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusNoContent {
				t.Fatalf("expected pass-through, got %d", rec.Code)
			}
		}
	})

	t.Run("idle clients are evicted", func(t *testing.T) {
		limiters := newClientLimiters(1, 1, time.Minute)
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		if !limiters.allow("a", start) {
			t.Fatalf("expected first request allowed")
		}
		limiters.allow("b", start.Add(2*time.Minute))
		if _, ok := limiters.clients["a"]; ok {
			t.Fatalf("expected idle client to be evicted")
		}
	})
}

func TestRouter(t *testing.T) {
	t.Run("unsupported methods return 405 with allow header", func(t *testing.T) {
		router := newTestRouter(staffPrincipal, RouterConfig{Users: NewUserHandler(&userServiceStub{}, discardLogger())})
		rec := serve(router, httptest.NewRequest(http.MethodPatch, "/users", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != "GET, POST" {
			t.Fatalf("unexpected Allow header %q", got)
		}
		if body := decodeEnvelope(t, rec); body.Success {
			t.Fatalf("expected failure envelope")
		}
	})

	t.Run("protected routes require a session", func(t *testing.T) {
		router := NewRouter(RouterConfig{
			Users:          NewUserHandler(&userServiceStub{}, discardLogger()),
			RequireSession: RequireSession(&fakeSessionValidator{principal: staffPrincipal}, discardLogger()),
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("metrics are public", func(t *testing.T) {
		metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("gencare_up 1\n"))
		})
		router := NewRouter(RouterConfig{
			Metrics:        metrics,
			RequireSession: RequireSession(&fakeSessionValidator{err: application.ErrUnauthorized}, discardLogger()),
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "gencare_up 1\n" {
			t.Fatalf("unexpected metrics response %d %q", rec.Code, rec.Body.String())
		}
	})
}
