package ui

import (
	"sync"
	"time"

	"github.com/giygas/medicaments-lookup/metrics"
	"github.com/google/uuid"
)

const (
	// DefaultToastVisible is how long a toast stays fully shown
	DefaultToastVisible = 1600 * time.Millisecond
	// DefaultToastFade is how long a hiding toast lingers before removal
	DefaultToastFade = 200 * time.Millisecond
)

// Toast is one transient notification
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Hiding    bool      `json:"hiding"`
}

// ToastQueue holds live toasts in creation order, oldest first. Each toast
// owns its timers: it turns hiding after the visible duration and is removed
// after the fade duration.
type ToastQueue struct {
	mu      sync.Mutex
	clock   Clock
	visible time.Duration
	fade    time.Duration
	toasts  []*Toast
	timers  map[string]Timer
	closed  bool
}

// NewToastQueue creates an empty queue
func NewToastQueue(clock Clock, visible, fade time.Duration) *ToastQueue {
	if clock == nil {
		clock = SystemClock()
	}
	if visible <= 0 {
		visible = DefaultToastVisible
	}
	if fade <= 0 {
		fade = DefaultToastFade
	}
	return &ToastQueue{
		clock:   clock,
		visible: visible,
		fade:    fade,
		timers:  make(map[string]Timer),
	}
}

// Push appends a toast and starts its lifecycle
func (q *ToastQueue) Push(message string) Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	t := &Toast{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: q.clock.Now(),
	}
	if q.closed {
		return *t
	}

	q.toasts = append(q.toasts, t)
	metrics.ToastsActive.Inc()

	id := t.ID
	q.timers[id] = q.clock.AfterFunc(q.visible, func() { q.hide(id) })
	return *t
}

func (q *ToastQueue) hide(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	for _, t := range q.toasts {
		if t.ID == id {
			t.Hiding = true
			q.timers[id] = q.clock.AfterFunc(q.fade, func() { q.remove(id) })
			return
		}
	}
}

func (q *ToastQueue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.timers, id)
	for i, t := range q.toasts {
		if t.ID == id {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			metrics.ToastsActive.Dec()
			return
		}
	}
}

// Snapshot returns copies of the live toasts, oldest first
func (q *ToastQueue) Snapshot() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Toast, len(q.toasts))
	for i, t := range q.toasts {
		out[i] = *t
	}
	return out
}

// Len returns the number of live toasts, hiding ones included
func (q *ToastQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toasts)
}

// Close stops all timers and drops the toasts. Used when the owning session
// is discarded.
func (q *ToastQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	metrics.ToastsActive.Sub(float64(len(q.toasts)))
	q.toasts = nil
}
