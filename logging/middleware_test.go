package logging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

const testCookie = "test_session"

func newCapturingHandler(status int) (http.Handler, *strings.Builder) {
	var logOutput strings.Builder
	logger := slog.New(slog.NewTextHandler(&logOutput, &slog.HandlerOptions{Level: slog.LevelInfo}))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(testCookie); err != nil && r.URL.Path == "/" {
			http.SetCookie(w, &http.Cookie{Name: testCookie, Value: "issued-1"})
		}
		w.WriteHeader(status)
		w.Write([]byte("ok"))
	})
	return LoggingMiddleware(logger, testCookie)(next), &logOutput
}

func TestLoggingMiddlewareSkipsQuietPaths(t *testing.T) {
	handler, logOutput := newCapturingHandler(http.StatusOK)

	for _, path := range []string{"/health", "/metrics", "/toasts"} {
		t.Run(path, func(t *testing.T) {
			logOutput.Reset()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rr.Code)
			}
			if logs := logOutput.String(); logs != "" {
				t.Errorf("expected no logs for %s, got: %s", path, logs)
			}
		})
	}
}

func TestLoggingMiddlewareLogsRequests(t *testing.T) {
	handler, logOutput := newCapturingHandler(http.StatusOK)

	t.Run("search is logged with query", func(t *testing.T) {
		logOutput.Reset()
		req := httptest.NewRequest(http.MethodGet, "/search?q=para", nil)
		req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "test-789"))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		logs := logOutput.String()
		for _, want := range []string{"HTTP request", "path=/search", "query=q=para", "request_id=test-789", "status_code=200"} {
			if !strings.Contains(logs, want) {
				t.Errorf("log should contain %q, got: %s", want, logs)
			}
		}
	})

	t.Run("non-string request ID falls back to unknown", func(t *testing.T) {
		logOutput.Reset()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, 12345))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if !strings.Contains(logOutput.String(), "request_id=unknown") {
			t.Errorf("log should contain request_id=unknown, got: %s", logOutput.String())
		}
	})

	t.Run("no query field when empty", func(t *testing.T) {
		logOutput.Reset()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if strings.Contains(logOutput.String(), "query=") {
			t.Errorf("log should not contain query field, got: %s", logOutput.String())
		}
	})
}

func TestLoggingMiddlewareWarnsOnServerErrors(t *testing.T) {
	handler, logOutput := newCapturingHandler(http.StatusBadGateway)

	req := httptest.NewRequest(http.MethodGet, "/search?q=x", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(logOutput.String(), "level=WARN") {
		t.Errorf("expected WARN level for 502, got: %s", logOutput.String())
	}
}

func TestLoggingMiddlewareSessionID(t *testing.T) {
	handler, logOutput := newCapturingHandler(http.StatusOK)

	tests := []struct {
		name    string
		path    string
		cookie  string
		want    []string
		notWant []string
	}{
		{"cookie sent", "/search", "abc-123", []string{"session_id=abc-123"}, []string{"new_session"}},
		{"cookie issued", "/", "", []string{"session_id=issued-1", "new_session=true"}, nil},
		{"no session", "/search", "", nil, []string{"session_id", "new_session"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logOutput.Reset()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: testCookie, Value: tt.cookie})
			}

			handler.ServeHTTP(httptest.NewRecorder(), req)

			logs := logOutput.String()
			for _, want := range tt.want {
				if !strings.Contains(logs, want) {
					t.Errorf("log should contain %q, got: %s", want, logs)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(logs, notWant) {
					t.Errorf("log should not contain %q, got: %s", notWant, logs)
				}
			}
		})
	}
}
