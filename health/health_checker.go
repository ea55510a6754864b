// Package health reports whether the lookup front end can serve searches,
// based on the last probe of the medicine backend.
package health

import (
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/giygas/medicaments-lookup/interfaces"
)

// probeResult is swapped atomically on every probe
type probeResult struct {
	at  time.Time
	err error
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	sessions  interfaces.SessionStore
	upstream  string
	staleness time.Duration
	last      atomic.Pointer[probeResult]
	now       func() time.Time
}

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// NewHealthChecker creates a health checker. A successful probe older than
// staleness no longer counts as healthy.
func NewHealthChecker(sessions interfaces.SessionStore, upstream string, staleness time.Duration) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		sessions:  sessions,
		upstream:  upstream,
		staleness: staleness,
		now:       time.Now,
	}
}

// RecordProbe stores the outcome of an upstream probe
func (h *HealthCheckerImpl) RecordProbe(err error, at time.Time) {
	h.last.Store(&probeResult{at: at, err: err})
}

// HealthCheck returns HTTP-specific health data.
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	now := h.now()
	startTime := h.sessions.GetServerStartTime()

	data = map[string]any{
		"upstream":       h.upstream,
		"sessions":       h.sessions.Len(),
		"uptime_seconds": math.Round(now.Sub(startTime).Seconds()),
	}

	probe := h.last.Load()
	switch {
	case probe == nil:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		data["upstream_reachable"] = false

	case probe.err != nil:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		data["upstream_reachable"] = false
		data["last_probe_error"] = probe.err.Error()

	case now.Sub(probe.at) > h.staleness:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		data["upstream_reachable"] = true

	default:
		status = "healthy"
		httpStatus = http.StatusOK
		data["upstream_reachable"] = true
	}

	if probe != nil {
		data["last_probe"] = probe.at.Format(time.RFC3339)
		data["probe_age_seconds"] = math.Round(now.Sub(probe.at).Seconds()*10) / 10
	}

	return status, data, httpStatus
}
