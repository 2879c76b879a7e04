package observability

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"picker/internal/logging"
	"picker/internal/services"
)

// RequestIDHeader carries the correlation identifier in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestID assigns each request a correlation identifier. A client supplied
// X-Request-ID is kept when it is short and printable.
func RequestID() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sanitizeRequestID(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
		})
	}
}

func sanitizeRequestID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxRequestIDLength {
		return ""
	}
	for _, r := range value {
		if r < '!' || r > '~' {
			return ""
		}
	}
	return value
}

// RequestLogger logs one line per request and records request metrics.
// Paths are reported as route templates to keep label cardinality bounded.
func RequestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			path := routeTemplate(r)
			RecordHTTPRequest(r.Method, path, m.Code, m.Duration)

			level := slog.LevelDebug
			switch {
			case m.Code >= http.StatusInternalServerError:
				level = slog.LevelError
			case m.Code >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			attrs := []logging.Attr{
				logging.String("method", r.Method),
				logging.String("path", path),
				logging.Int("status", m.Code),
				logging.Duration("duration", m.Duration),
				logging.Int64("bytes", m.Written),
				logging.String("remote_addr", r.RemoteAddr),
			}
			if level == slog.LevelWarn {
				attrs = append(attrs,
					logging.String(logging.FieldEventType, "http_client_error"),
					logging.String(logging.FieldErrorHint, "check the request payload and query parameters"),
					logging.String(logging.FieldImpact, "request rejected"),
				)
			}
			logging.WithContext(r.Context(), logger).LogAttrs(r.Context(), level, "http request", attrs...)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
