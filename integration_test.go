package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giygas/medicaments-lookup/apiclient"
	"github.com/giygas/medicaments-lookup/config"
	"github.com/giygas/medicaments-lookup/handlers"
	"github.com/giygas/medicaments-lookup/health"
	"github.com/giygas/medicaments-lookup/server"
	"github.com/giygas/medicaments-lookup/session"
	"github.com/giygas/medicaments-lookup/tokenstore"
	"github.com/giygas/medicaments-lookup/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backendHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/medicines", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[
			{"brandName":"Paracet","genericName":"Paracetamol","strength":"500mg","isGeneric":false,"mrp":25}
		]}`))
	})
	mux.HandleFunc("/api/medicines/equivalents", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"base":{"genericName":"Paracetamol","isGeneric":true},"results":[
			{"genericName":"Paracetamol","strength":"500mg","isGeneric":true}
		]}`))
	})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"tok-int","user":{"name":"Asha"}}`))
	})
	mux.HandleFunc("/api/inventory", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-int" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"items":[{"id":"1","brandName":"Paracet","genericName":"Paracetamol","strength":"500mg","quantity":12,"expiry":"2027-01-31"}]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}

// stack is the serve command's wiring without the scheduler
type stack struct {
	registry *session.Registry
	tokens   *tokenstore.Store
	health   *health.HealthCheckerImpl
	client   *apiclient.Client
	srv      *httptest.Server
}

func newStack(t *testing.T, apiURL, dbPath string) *stack {
	t.Helper()

	cfg := &config.Config{
		Port:               "8000",
		Address:            "127.0.0.1",
		Env:                config.EnvTest,
		LogLevel:           "error",
		MaxRequestBody:     1 << 20,
		MaxHeaderSize:      1 << 20,
		APIBaseURL:         apiURL,
		RequestTimeout:     2 * time.Second,
		StateDBPath:        dbPath,
		SessionIdleTimeout: time.Hour,
	}

	tokens, err := tokenstore.Open(dbPath)
	require.NoError(t, err)

	client := apiclient.NewClient(apiURL, apiclient.WithTimeout(cfg.RequestTimeout))
	validator := validation.NewInputValidator()
	registry := session.NewRegistry(session.NewFactory(session.Deps{
		Client:    client,
		Tokens:    tokens,
		Validator: validator,
	}))
	registry.OnEvict(func(id string) {
		_ = tokens.DropScope(context.Background(), tokenstore.SessionScope(id))
	})

	checker := health.NewHealthChecker(registry, apiURL, time.Minute)
	srv := server.NewServer(cfg, handlers.NewHTTPHandler(checker, validator), registry.Middleware)

	st := &stack{
		registry: registry,
		tokens:   tokens,
		health:   checker,
		client:   client,
		srv:      httptest.NewServer(srv.Router()),
	}
	t.Cleanup(st.close)
	return st
}

func (s *stack) close() {
	s.srv.Close()
	s.tokens.Close()
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func fetchPage(t *testing.T, c *http.Client, method, target string, form url.Values) (*http.Response, handlers.PageView) {
	t.Helper()
	var req *http.Request
	var err error
	if form != nil {
		req, err = http.NewRequest(method, target, strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, err = http.NewRequest(method, target, nil)
		require.NoError(t, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var v handlers.PageView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return resp, v
}

func TestIntegrationSearchThroughFullStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	api := httptest.NewServer(backendHandler())
	defer api.Close()

	st := newStack(t, api.URL, filepath.Join(t.TempDir(), "state.db"))
	c := newBrowser(t)

	resp, v := fetchPage(t, c, http.MethodGet, st.srv.URL+"/search?q=para", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "para", v.Query)
	require.Len(t, v.Results, 1)
	assert.Equal(t, "Paracet", v.Results[0].Title)
	require.Len(t, v.Suggestions, 1)

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == session.CookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie, "first request should issue a session cookie")
	assert.Equal(t, 1, st.registry.Len())

	// Same browser keeps the same page state
	_, v = fetchPage(t, c, http.MethodGet, st.srv.URL+"/", nil)
	assert.Equal(t, "para", v.Query)
	assert.Equal(t, 1, st.registry.Len())
}

func TestIntegrationHealthReflectsProbe(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	api := httptest.NewServer(backendHandler())
	defer api.Close()

	st := newStack(t, api.URL, filepath.Join(t.TempDir(), "state.db"))

	resp, err := http.Get(st.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "no probe yet")

	st.health.RecordProbe(st.client.Ping(context.Background()), time.Now())

	resp, err = http.Get(st.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Zero(t, st.registry.Len(), "health checks carry no session")
}

func TestIntegrationAdminTokenSurvivesRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	api := httptest.NewServer(backendHandler())
	defer api.Close()

	dbPath := filepath.Join(t.TempDir(), "state.db")
	c := newBrowser(t)

	first := newStack(t, api.URL, dbPath)
	resp, v := fetchPage(t, c, http.MethodPost, first.srv.URL+"/admin/login",
		url.Values{"email": {"asha@example.com"}, "password": {"pw"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Asha", v.User)
	first.close()

	// Cookies match by host, so the browser presents the same session id
	second := newStack(t, api.URL, dbPath)
	_, v = fetchPage(t, c, http.MethodGet, second.srv.URL+"/admin", nil)
	assert.Equal(t, "Asha", v.User)
	require.Len(t, v.Inventory, 1)
	assert.Equal(t, "Paracet", v.Inventory[0].Title)
}

func TestIntegrationIdleSweepLogsOut(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	api := httptest.NewServer(backendHandler())
	defer api.Close()

	st := newStack(t, api.URL, filepath.Join(t.TempDir(), "state.db"))
	c := newBrowser(t)

	_, v := fetchPage(t, c, http.MethodPost, st.srv.URL+"/admin/login",
		url.Values{"email": {"asha@example.com"}, "password": {"pw"}})
	require.Equal(t, "Asha", v.User)

	// A negative idle window sweeps every session
	assert.Equal(t, 1, st.registry.Sweep(-time.Minute))
	assert.Zero(t, st.registry.Len())

	_, v = fetchPage(t, c, http.MethodGet, st.srv.URL+"/admin", nil)
	assert.Empty(t, v.User)
	assert.Empty(t, v.Inventory)
}
