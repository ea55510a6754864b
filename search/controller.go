// Package search runs one search transaction per user action: it reads the
// query input of a page, asks the backend for results and equivalents
// concurrently, waits for both, and renders the two panels.
package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/giygas/medicaments-lookup/apiclient"
	"github.com/giygas/medicaments-lookup/logging"
	"github.com/giygas/medicaments-lookup/metrics"
	"github.com/giygas/medicaments-lookup/render"
	"github.com/giygas/medicaments-lookup/ui"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by a search that was replaced by a newer one on
// the same page before it finished. Its outcome is never rendered.
var ErrSuperseded = errors.New("search superseded by a newer search")

// Backend is the part of the API client the controller needs
type Backend interface {
	SearchMedicines(ctx context.Context, query string) ([]apiclient.MedicineResult, error)
	Equivalents(ctx context.Context, query string) (*apiclient.EquivalentsResponse, error)
}

// Controller owns the search flow of one ui.State
type Controller struct {
	backend Backend
	state   *ui.State
	partial bool

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Option configures a Controller
type Option func(*Controller)

// WithPartialResults renders each panel from its own request, so a failed
// equivalents call no longer empties the result list and vice versa
func WithPartialResults() Option {
	return func(c *Controller) {
		c.partial = true
	}
}

// NewController binds a controller to state
func NewController(backend Backend, state *ui.State, opts ...Option) *Controller {
	c := &Controller{backend: backend, state: state}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the page state the controller renders into
func (c *Controller) State() *ui.State {
	return c.state
}

// DoSearch runs a search for the current query input. An empty query clears
// both panels without a request. Otherwise exactly two requests are sent and
// nothing is rendered until both have settled. The returned error is the
// failure that decided the outcome, for logging; the panels are consistent
// whatever it is.
func (c *Controller) DoSearch(ctx context.Context) error {
	start := time.Now()
	query := c.state.TrimmedQuery()
	ctx, seq, cancel := c.begin(ctx)
	defer cancel()

	if query == "" {
		c.commit(seq, func() {
			render.RenderMedicines(c.state.Results(), nil)
			render.RenderEquivalents(c.state.Suggestions(), nil, nil)
		})
		metrics.SearchTotals.WithLabelValues("cleared").Inc()
		return nil
	}

	var (
		results    []apiclient.MedicineResult
		equivs     *apiclient.EquivalentsResponse
		resultsErr error
		equivsErr  error
	)

	// A plain Group: one request failing must not cancel its sibling. Each
	// request keeps its own error for per-panel rendering, so the group only
	// joins and never fails.
	var g errgroup.Group
	g.Go(func() error {
		results, resultsErr = c.backend.SearchMedicines(ctx, query)
		return nil
	})
	g.Go(func() error {
		equivs, equivsErr = c.backend.Equivalents(ctx, query)
		return nil
	})
	g.Wait()

	err := errors.Join(resultsErr, equivsErr)
	rendered := c.commit(seq, func() {
		c.renderOutcome(results, resultsErr, equivs, equivsErr)
	})
	if !rendered {
		metrics.SearchTotals.WithLabelValues("superseded").Inc()
		logging.Debug("Search superseded", "query", query, "session", c.state.ID())
		return ErrSuperseded
	}

	outcome := "ok"
	if err != nil {
		outcome = string(apiclient.Classify(err))
		logging.Warn("Search failed", "query", query, "session", c.state.ID(), "kind", outcome, "error", err)
	} else {
		logging.Debug("Search completed", "query", query, "results", len(results), "duration_ms", time.Since(start).Milliseconds())
	}
	metrics.SearchTotals.WithLabelValues(outcome).Inc()
	return err
}

func (c *Controller) renderOutcome(results []apiclient.MedicineResult, resultsErr error, equivs *apiclient.EquivalentsResponse, equivsErr error) {
	failed := resultsErr != nil || equivsErr != nil

	if failed && !c.partial {
		render.RenderMedicines(c.state.Results(), nil)
		render.RenderEquivalents(c.state.Suggestions(), nil, nil)
		return
	}

	if resultsErr != nil {
		results = nil
	}
	render.RenderMedicines(c.state.Results(), results)

	if equivsErr != nil || equivs == nil {
		render.RenderEquivalents(c.state.Suggestions(), nil, nil)
		return
	}
	render.RenderEquivalents(c.state.Suggestions(), equivs.Base, equivs.Results)
}

// SelectSuggestion overwrites the query input with label, then searches
func (c *Controller) SelectSuggestion(ctx context.Context, label string) error {
	c.state.SetQuery(label)
	return c.DoSearch(ctx)
}

// Clear empties the query input and both panels, superseding any search in
// flight
func (c *Controller) Clear(ctx context.Context) {
	c.state.SetQuery("")
	_ = c.DoSearch(ctx)
}

// Filter hides rendered result rows not containing term and returns how many
// stay visible. It never calls the backend.
func (c *Controller) Filter(term string) int {
	return c.state.Results().Filter(term)
}

// begin cancels any search in flight and returns the context and sequence
// number of the new one
func (c *Controller) begin(parent context.Context) (context.Context, uint64, context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	return ctx, c.seq, cancel
}

// commit runs fn if seq is still the latest search and reports whether it
// did. Holding mu while rendering keeps an older search from overwriting a
// newer one.
func (c *Controller) commit(seq uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		return false
	}
	fn()
	c.cancel = nil
	return true
}
