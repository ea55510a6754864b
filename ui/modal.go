package ui

import (
	"errors"
	"fmt"
	"sync"
)

// ErrModalClosed is returned by Confirm and Cancel when nothing is open
var ErrModalClosed = errors.New("reservation modal is not open")

// PickupOptions are the pickup times offered in the modal, default first
var PickupOptions = []string{"ASAP", "Today 5:30 PM", "Today 7:00 PM", "Tomorrow 9:00 AM"}

// ModalState is Closed or Open
type ModalState int

const (
	ModalClosed ModalState = iota
	ModalOpen
)

func (s ModalState) String() string {
	if s == ModalOpen {
		return "open"
	}
	return "closed"
}

// ReservationContext travels from a Reserve control to the modal
type ReservationContext struct {
	Pharmacy string `json:"pharmacy,omitempty"`
	Stock    string `json:"stock,omitempty"`
}

// Modal is the reservation dialog. It only holds a context while open.
type Modal struct {
	mu      sync.Mutex
	state   ModalState
	context *ReservationContext
	pickup  string
	toasts  *ToastQueue
}

// ModalView is a read-only copy of the modal for templates and JSON
type ModalView struct {
	State   string              `json:"state"`
	Open    bool                `json:"open"`
	Context *ReservationContext `json:"context,omitempty"`
	Pickup  string              `json:"pickup,omitempty"`
	Options []string            `json:"options"`
}

func newModal(toasts *ToastQueue) *Modal {
	return &Modal{toasts: toasts}
}

// Open shows the modal with ctx. Opening an open modal replaces its context.
func (m *Modal) Open(ctx ReservationContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = ModalOpen
	m.context = &ctx
	m.pickup = PickupOptions[0]
}

// SelectPickup changes the pickup time of the open modal
func (m *Modal) SelectPickup(option string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != ModalOpen {
		return ErrModalClosed
	}
	for _, o := range PickupOptions {
		if o == option {
			m.pickup = option
			return nil
		}
	}
	return fmt.Errorf("unknown pickup time %q", option)
}

// Cancel closes the modal and discards its context. The backdrop uses the
// same transition.
func (m *Modal) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != ModalOpen {
		return ErrModalClosed
	}
	m.closeLocked()
	return nil
}

// Confirm closes the modal and enqueues the reservation toast
func (m *Modal) Confirm() (Toast, error) {
	m.mu.Lock()
	if m.state != ModalOpen {
		m.mu.Unlock()
		return Toast{}, ErrModalClosed
	}
	pharmacy := ""
	if m.context != nil {
		pharmacy = m.context.Pharmacy
	}
	m.closeLocked()
	m.mu.Unlock()

	return m.toasts.Push(ReservationMessage(pharmacy)), nil
}

func (m *Modal) closeLocked() {
	m.state = ModalClosed
	m.context = nil
	m.pickup = ""
}

// State returns the current state
func (m *Modal) State() ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// View returns a copy suitable for rendering
func (m *Modal) View() ModalView {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := ModalView{
		State:   m.state.String(),
		Open:    m.state == ModalOpen,
		Pickup:  m.pickup,
		Options: append([]string(nil), PickupOptions...),
	}
	if m.context != nil {
		c := *m.context
		v.Context = &c
	}
	return v
}

// ReservationMessage is the toast text for a confirmed reservation
func ReservationMessage(pharmacy string) string {
	if pharmacy == "" {
		pharmacy = "pharmacy"
	}
	return "Reserved at " + pharmacy
}
