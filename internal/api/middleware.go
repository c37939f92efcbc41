package api

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/logd/internal/logging"
)

// quietOperations are polled by monitors and logged at debug.
var quietOperations = map[string]bool{
	"health-check": true,
	"get-status":   true,
}

// HTTPLoggingMiddleware logs HTTP requests with appropriate log levels based on status codes.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	next(ctx)

	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.URL().Path),
		slog.String("remote_addr", ctx.RemoteAddr()),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	}
	if op := ctx.Operation(); op != nil {
		attrs = append(attrs, slog.String("operation", op.OperationID))
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	case ctx.Operation() != nil && quietOperations[ctx.Operation().OperationID]:
		level = slog.LevelDebug
	}
	logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		credentials, err := requestCredentials(ctx)
		if err != nil {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="logd"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
			return
		}

		user, pass, ok := strings.Cut(credentials, ":")
		if !ok || user != username || pass != password {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="logd"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "invalid credentials")
			return
		}

		next(ctx)
	}
}

// requestCredentials reads user:password from the Authorization header,
// or from the auth query parameter for SSE clients that cannot set headers.
func requestCredentials(ctx huma.Context) (string, error) {
	encoded := ctx.Query("auth")
	if header := ctx.Header("Authorization"); header != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", errors.New("invalid authentication type")
		}
		encoded = header[len(prefix):]
	}
	if encoded == "" {
		return "", errors.New("authentication required")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.New("invalid credentials format")
	}
	return string(decoded), nil
}
