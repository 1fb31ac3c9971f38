// Package logging configures zerolog for the API server and its tools.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level. Unknown levels mean info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger for a component (e.g. "httpcache", "catalog").
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// HTTPMiddleware attaches logger to each request context and writes one
// access log line per request. The X-Cache header of the response is
// logged as cache.
func HTTPMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	})

	return func(next http.Handler) http.Handler {
		h := access(cacheStatusHandler(next))
		h = hlog.RequestIDHandler("request_id", "X-Request-Id")(h)
		h = hlog.RemoteAddrHandler("remote_addr")(h)
		return hlog.NewHandler(logger)(h)
	}
}

// cacheStatusHandler adds the response's X-Cache value to the request
// logger once the handler has set it.
func cacheStatusHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if status := w.Header().Get("X-Cache"); status != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("cache", status)
			})
		}
	})
}

// Log Level Guidelines:
//
// Debug: cache internals
//   - Cache hit/miss with key
//   - Responses stored, tags invalidated
//
// Info: normal operation
//   - Access log lines
//   - Server startup/shutdown, store backend in use
//
// Warn: degraded but serving
//   - Cache store errors (request falls back to a miss)
//   - Failed invalidations
//
// Error: needs attention
//   - Configuration errors, store unreachable at startup
//   - Handlers failing with 500
//
// Context Fields:
//   - component: emitting package
//   - route: route name (e.g. product_show)
//   - key: cache key
//   - tags: cache tags stored or invalidated
//   - cache: HIT or MISS on access log lines
//   - request_id: per-request id
