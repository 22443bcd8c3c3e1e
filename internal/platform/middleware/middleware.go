// Package middleware provides the HTTP middleware chain shared by all
// operator routes. Values set here are read back via pkg/requestcontext so
// services never import net/http.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"trailguard/pkg/requestcontext"
)

// RequestID assigns a correlation ID to every request, honoring an inbound
// X-Request-ID from a trusted proxy.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime captures "now" once per request so every operation in the
// request observes the same timestamp.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientMetadata extracts client IP and User-Agent into the context. Applied
// early so the logger middleware can report them.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger logs one line per request with latency, status and a condensed
// client platform summary.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			ctx := r.Context()
			logger.InfoContext(ctx, "http request",
				"request_id", requestcontext.RequestID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", requestcontext.ClientIP(ctx),
				"client", clientSummary(requestcontext.UserAgent(ctx)),
			)
		})
	}
}

// Recovery converts panics into 500s instead of tearing the server down.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						"request_id", requestcontext.RequestID(r.Context()),
						"panic", rec,
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds request handling; the handler observes cancellation via the
// request context.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

// ContentTypeJSON rejects mutating requests whose body is not declared JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// clientSummary condenses a User-Agent header into "browser/version (os)".
func clientSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return rawUA
	}
	summary := name
	if version != "" {
		summary += "/" + version
	}
	if os := ua.OS(); os != "" {
		summary += " (" + os + ")"
	}
	return summary
}

// clientIPFromRequest extracts the real client IP, handling proxies.
func clientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry is the original client.
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		// RemoteAddr is "ip:port"; IPv6 is "[::1]:port".
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
