package http

import (
	"context"
	"log/slog"

	"github.com/example/gencare-scheduler/internal/application"
	"github.com/example/gencare-scheduler/internal/logging"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	routeContextKey     contextKey = "route"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithLogger attaches the request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// routeLabel is filled in by the router so RequestLogger can report the
// matched pattern instead of the raw path.
type routeLabel struct {
	pattern string
}

func contextWithRouteLabel(ctx context.Context, label *routeLabel) context.Context {
	return context.WithValue(ctx, routeContextKey, label)
}

func setRoute(ctx context.Context, pattern string) {
	if label, ok := ctx.Value(routeContextKey).(*routeLabel); ok && label != nil {
		label.pattern = pattern
	}
}
