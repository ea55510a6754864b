package logging

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// quietPaths are polled or scraped often and are not worth a log line each
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
	"/toasts":  true,
}

var responseWriterPool = sync.Pool{
	New: func() any {
		return &responseWriterWrapper{statusCode: http.StatusOK}
	},
}

// LoggingMiddleware logs HTTP requests using slog with structured logging.
// The value of sessionCookie is logged as session_id, whether the browser sent
// it or the response issued it.
func LoggingMiddleware(logger *slog.Logger, sessionCookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			ww := responseWriterPool.Get().(*responseWriterWrapper)
			ww.ResponseWriter = w
			ww.statusCode = http.StatusOK
			ww.bytesWritten = 0
			defer func() {
				ww.ResponseWriter = nil
				responseWriterPool.Put(ww)
			}()

			next.ServeHTTP(ww, r)

			requestID, ok := r.Context().Value(middleware.RequestIDKey).(string)
			if !ok || requestID == "" {
				requestID = "unknown"
			}

			attrs := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", r.URL.RawQuery)
			}
			if id, issued := sessionID(r, ww.Header(), sessionCookie); id != "" {
				attrs = append(attrs, "session_id", id)
				if issued {
					attrs = append(attrs, "new_session", true)
				}
			}
			attrs = append(attrs,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"status_code", ww.statusCode,
				"bytes_written", ww.bytesWritten,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			level := slog.LevelInfo
			if ww.statusCode >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "HTTP request", attrs...)
		})
	}
}

// sessionID returns the session cookie set on the response, else the one the
// request carried. issued reports a cookie set by this response.
func sessionID(r *http.Request, respHeader http.Header, name string) (id string, issued bool) {
	if name == "" {
		return "", false
	}
	resp := http.Response{Header: respHeader}
	for _, c := range resp.Cookies() {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	if c, err := r.Cookie(name); err == nil {
		return c.Value, false
	}
	return "", false
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code and bytes written
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	n, err := w.ResponseWriter.Write(data)
	w.bytesWritten += n
	return n, err
}
