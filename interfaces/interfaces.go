// Package interfaces defines the contracts between the lookup front end's
// packages so that handlers, the scheduler and health checks can be tested
// with fakes.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/medicaments-lookup/apiclient"
)

// UpsertForm is the raw inventory form as submitted by the admin page or CLI
type UpsertForm struct {
	BrandName   string
	GenericName string
	Strength    string
	Quantity    string // Parsed and checked by the validator
	Expiry      string // Optional, YYYY-MM-DD
}

// SessionStore holds the per-browser UI state.
// Sessions idle for longer than the configured timeout are swept.
type SessionStore interface {
	Len() int
	Sweep(idle time.Duration) int
	GetServerStartTime() time.Time
}

// UpstreamProber checks that the medicine backend answers
type UpstreamProber interface {
	Ping(ctx context.Context) error
}

// Janitor drops stale entries from an in-memory table and reports how many
type Janitor interface {
	Cleanup() int
}

// Scheduler defines the contract for background jobs.
// It runs the upstream probe and the session sweep.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the current status, response details and HTTP status code
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// RecordProbe stores the outcome of an upstream probe
	RecordProbe(err error, at time.Time)
}

// InputValidator defines the contract for user input validation.
// Failures are *apiclient.ValidationError carrying a user-facing message.
type InputValidator interface {
	ValidateQuery(query string) error
	ValidateLogin(email, password string) error
	ValidateUpsert(form UpsertForm) (apiclient.UpsertRequest, error)
}

// HTTPHandler defines the contract for the page and JSON handlers.
type HTTPHandler interface {
	// Search page
	Index(w http.ResponseWriter, r *http.Request)
	Search(w http.ResponseWriter, r *http.Request)
	Filter(w http.ResponseWriter, r *http.Request)
	Recycle(w http.ResponseWriter, r *http.Request)

	// Reservation modal and toasts
	OpenReservation(w http.ResponseWriter, r *http.Request)
	ConfirmReservation(w http.ResponseWriter, r *http.Request)
	CancelReservation(w http.ResponseWriter, r *http.Request)
	Toasts(w http.ResponseWriter, r *http.Request)

	// Admin page
	AdminPage(w http.ResponseWriter, r *http.Request)
	AdminLogin(w http.ResponseWriter, r *http.Request)
	AdminUpsert(w http.ResponseWriter, r *http.Request)
	AdminLogout(w http.ResponseWriter, r *http.Request)

	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}
