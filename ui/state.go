// Package ui holds the page state of one browser session: the query input,
// the result, suggestion and inventory lists, the reservation modal and the
// toast queue. Handlers and the search controller mutate it; templates only
// read it.
package ui

import (
	"strings"
	"sync"
	"time"
)

// Element ids of the page containers
const (
	ResultsID     = "pharmacy-list"
	SuggestionsID = "suggestions"
	InventoryID   = "inventory-list"
)

// State is everything the page shows for one session
type State struct {
	id string

	mu       sync.Mutex
	query    string
	user     string
	alert    string
	lastSeen time.Time
	modal    *Modal
	toasts   *ToastQueue

	results     *Container
	suggestions *Container
	inventory   *Container

	clock        Clock
	toastVisible time.Duration
	toastFade    time.Duration
}

// Option configures a State
type Option func(*State)

// WithClock injects the clock used by toasts
func WithClock(c Clock) Option {
	return func(s *State) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithToastTiming overrides the toast durations
func WithToastTiming(visible, fade time.Duration) Option {
	return func(s *State) {
		s.toastVisible = visible
		s.toastFade = fade
	}
}

// NewState creates the state of session id with empty containers
func NewState(id string, opts ...Option) *State {
	s := &State{
		id:           id,
		results:      NewContainer(ResultsID),
		suggestions:  NewContainer(SuggestionsID),
		inventory:    NewContainer(InventoryID),
		clock:        SystemClock(),
		toastVisible: DefaultToastVisible,
		toastFade:    DefaultToastFade,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSeen = s.clock.Now()
	return s
}

// ID returns the session id
func (s *State) ID() string { return s.id }

// Clock returns the clock in use
func (s *State) Clock() Clock { return s.clock }

func (s *State) Results() *Container     { return s.results }
func (s *State) Suggestions() *Container { return s.suggestions }
func (s *State) Inventory() *Container   { return s.inventory }

// Query returns the query input value, untrimmed
func (s *State) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetQuery overwrites the query input value
func (s *State) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
}

// TrimmedQuery returns the query as searched
func (s *State) TrimmedQuery() string {
	return strings.TrimSpace(s.Query())
}

// EnsureToasts returns the toast queue, creating it on first use
func (s *State) EnsureToasts() *ToastQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureToastsLocked()
}

func (s *State) ensureToastsLocked() *ToastQueue {
	if s.toasts == nil {
		s.toasts = NewToastQueue(s.clock, s.toastVisible, s.toastFade)
	}
	return s.toasts
}

// EnsureModal returns the reservation modal, creating it on first use
func (s *State) EnsureModal() *Modal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modal == nil {
		s.modal = newModal(s.ensureToastsLocked())
	}
	return s.modal
}

// Modal returns the modal if it was ever created
func (s *State) Modal() *Modal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modal
}

// Toasts returns the live toasts, or nil when none were ever shown
func (s *State) Toasts() []Toast {
	s.mu.Lock()
	q := s.toasts
	s.mu.Unlock()
	if q == nil {
		return nil
	}
	return q.Snapshot()
}

// Toast shows message
func (s *State) Toast(message string) Toast {
	return s.EnsureToasts().Push(message)
}

// Alert stores a blocking message shown once on the next page render
func (s *State) Alert(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alert = message
}

// TakeAlert returns and clears the pending alert
func (s *State) TakeAlert() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.alert
	s.alert = ""
	return a
}

// SetUser records the display name of the logged-in admin, "" when logged out
func (s *State) SetUser(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = name
}

func (s *State) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Touch marks the session as used now
func (s *State) Touch() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// LastSeen returns the time of the last Touch
func (s *State) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close releases timers held by the state
func (s *State) Close() {
	s.mu.Lock()
	q := s.toasts
	s.mu.Unlock()
	if q != nil {
		q.Close()
	}
}
