package http

import (
	"net/http"
	"sort"
	"strings"
)

// RouterConfig wires handlers into the API surface. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Schedules    *WeeklyScheduleHandler
	Overrides    *OverrideHandler
	Availability *AvailabilityHandler
	Appointments *AppointmentHandler
	Health       *HealthHandler
	Metrics      http.Handler
	// RequireSession guards every route except login, health and metrics.
	RequireSession func(http.Handler) http.Handler
	Middleware     []func(http.Handler) http.Handler
}

type methodHandlers map[string]http.HandlerFunc

// NewRouter registers every configured route and applies cfg.Middleware, the
// first entry outermost.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	responder := newResponder(nil)

	public := func(pattern string, handlers methodHandlers) {
		mux.Handle(pattern, dispatch(pattern, handlers, responder))
	}
	protected := func(pattern string, handlers methodHandlers) {
		var handler http.Handler = dispatch(pattern, handlers, responder)
		if cfg.RequireSession != nil {
			handler = cfg.RequireSession(handler)
		}
		mux.Handle(pattern, labelled(pattern, handler))
	}

	if cfg.Auth != nil {
		public("/sessions", methodHandlers{http.MethodPost: cfg.Auth.CreateSession})
		public("/sessions/current", methodHandlers{http.MethodDelete: cfg.Auth.DeleteCurrentSession})
	}

	if cfg.Users != nil {
		protected("/users", methodHandlers{
			http.MethodGet:  cfg.Users.List,
			http.MethodPost: cfg.Users.Create,
		})
		protected("/users/{id}", methodHandlers{
			http.MethodGet:    cfg.Users.Get,
			http.MethodPut:    cfg.Users.Update,
			http.MethodDelete: cfg.Users.Delete,
		})
	}

	if cfg.Schedules != nil {
		protected("/weekly-schedules", methodHandlers{
			http.MethodGet:  cfg.Schedules.List,
			http.MethodPost: cfg.Schedules.Create,
		})
		protected("/weekly-schedules/copy", methodHandlers{http.MethodPost: cfg.Schedules.Copy})
		protected("/weekly-schedules/{id}", methodHandlers{
			http.MethodGet:    cfg.Schedules.Get,
			http.MethodPut:    cfg.Schedules.Update,
			http.MethodDelete: cfg.Schedules.Delete,
		})
		protected("/consultants/{id}/weekly-schedules", methodHandlers{http.MethodGet: cfg.Schedules.ListForConsultant})
	}

	if cfg.Availability != nil {
		protected("/consultants/{id}/availability", methodHandlers{http.MethodGet: cfg.Availability.Day})
		protected("/consultants/{id}/weekly-availability", methodHandlers{http.MethodGet: cfg.Availability.Week})
	}

	if cfg.Overrides != nil {
		protected("/overrides", methodHandlers{http.MethodPost: cfg.Overrides.Create})
		protected("/overrides/{id}", methodHandlers{
			http.MethodGet:    cfg.Overrides.Get,
			http.MethodPut:    cfg.Overrides.Update,
			http.MethodDelete: cfg.Overrides.Delete,
		})
		protected("/consultants/{id}/overrides", methodHandlers{http.MethodGet: cfg.Overrides.ListForConsultant})
	}

	if cfg.Appointments != nil {
		protected("/appointments", methodHandlers{http.MethodPost: cfg.Appointments.Book})
		protected("/appointments/{id}/cancel", methodHandlers{http.MethodPost: cfg.Appointments.Cancel})
		protected("/appointments/{id}/confirm", methodHandlers{http.MethodPost: cfg.Appointments.Confirm})
		protected("/consultants/{id}/appointments", methodHandlers{http.MethodGet: cfg.Appointments.ListForConsultant})
	}

	if cfg.Health != nil {
		public("/healthz", methodHandlers{http.MethodGet: cfg.Health.Healthz})
	}
	if cfg.Metrics != nil {
		mux.Handle("/metrics", labelled("/metrics", cfg.Metrics))
	}

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.fail(r.Context(), w, http.StatusNotFound, "", nil)
	}))

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func labelled(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRoute(r.Context(), pattern)
		next.ServeHTTP(w, r)
	})
}

func dispatch(pattern string, handlers methodHandlers, responder responder) http.Handler {
	allowed := make([]string, 0, len(handlers))
	for method := range handlers {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRoute(r.Context(), pattern)
		handler, ok := handlers[r.Method]
		if !ok {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			responder.fail(r.Context(), w, http.StatusMethodNotAllowed, "", nil)
			return
		}
		handler(w, r)
	})
}
