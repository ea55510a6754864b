package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/giygas/medicaments-lookup/admin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	mu   sync.Mutex
	hits map[string]int
	auth []string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.hits[r.URL.Path]++
	b.auth = append(b.auth, r.Header.Get("Authorization"))
	b.mu.Unlock()

	switch r.URL.Path {
	case "/api/medicines":
		w.Write([]byte(`{"results":[{"brandName":"Paracet","genericName":"Paracetamol","strength":"500mg","isGeneric":false,"mrp":25}]}`))
	case "/api/medicines/equivalents":
		w.Write([]byte(`{"results":[{"genericName":"Paracetamol","strength":"500mg","isGeneric":true}]}`))
	case "/api/auth/login":
		var body struct{ Password string }
		json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"token":"tok-cli","user":{"name":"Asha"}}`))
	case "/api/inventory":
		w.Write([]byte(`{"items":[{"brandName":"Paracet","genericName":"Paracetamol","strength":"500mg","quantity":4}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *backend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func (b *backend) LastAuth() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.auth) == 0 {
		return ""
	}
	return b.auth[len(b.auth)-1]
}

type cli struct {
	backend *backend
	api     string
	db      string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	for _, key := range []string{"API_BASE_URL", "STATE_DB_PATH", "MEDLOOKUP_PASSWORD", "ENV", "PORT", "ADDRESS", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	b := &backend{hits: map[string]int{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	return &cli{backend: b, api: srv.URL, db: filepath.Join(t.TempDir(), "state.db")}
}

func (c *cli) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--api", c.api, "--db", c.db))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	c := newCLI(t)
	out, _, err := c.run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "medlookup dev\n", out)
}

func TestSearchPrintsRowsAndEquivalents(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "", "search", "para")
	require.NoError(t, err)
	assert.Contains(t, out, "Paracet")
	assert.Contains(t, out, "Branded • ₹25")
	assert.Contains(t, out, "Equivalents:\n  Paracetamol 500mg\n")
	assert.Equal(t, 1, c.backend.Hits("/api/medicines"))
	assert.Equal(t, 1, c.backend.Hits("/api/medicines/equivalents"))
}

func TestSearchJSON(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "", "search", "para", "--json")
	require.NoError(t, err)

	var got searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "para", got.Query)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "Paracet", got.Results[0].Title)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "Paracetamol 500mg", got.Suggestions[0].Title)
}

func TestEmptySearchSendsNothing(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "", "search")
	require.NoError(t, err)
	assert.Contains(t, out, "No results")
	assert.Contains(t, out, "No equivalents found")
	assert.Zero(t, c.backend.Hits("/api/medicines"))
}

func TestSearchFilterHidesRows(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "", "search", "para", "--filter", "ibuprofen")
	require.NoError(t, err)
	assert.NotContains(t, out, "Branded")
}

func TestLoginInventoryLogout(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "", "login", "--email", "asha@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as Asha\n", out)

	out, _, err = c.run(t, "", "inventory")
	require.NoError(t, err)
	assert.Contains(t, out, "Qty 4")
	assert.Equal(t, "Bearer tok-cli", c.backend.LastAuth())

	out, _, err = c.run(t, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, admin.MsgLoggedOut+"\n", out)

	_, _, err = c.run(t, "", "inventory")
	require.Error(t, err)
	assert.ErrorIs(t, err, admin.ErrNotLoggedIn)
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "secret\n", "login", "--email", "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as Asha\n", out)
}

func TestLoginFailureIsGeneric(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run(t, "", "login", "--email", "asha@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, admin.MsgLoginFailed, err.Error())
}

func TestLoginValidationSendsNothing(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run(t, "", "login", "--password", "secret")
	require.Error(t, err)
	assert.Equal(t, "Email is required", err.Error())
	assert.Zero(t, c.backend.Hits("/api/auth/login"))
}

func TestInventoryAddValidation(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run(t, "", "login", "--email", "asha@example.com", "--password", "secret")
	require.NoError(t, err)

	_, _, err = c.run(t, "", "inventory", "add", "--brand", "Paracet", "--generic", "Paracetamol", "--strength", "500mg", "--quantity", "zero")
	require.Error(t, err)
	assert.Equal(t, "Quantity must be a positive whole number", err.Error())
	assert.Zero(t, c.backend.Hits("/api/inventory/upsert"))
}
