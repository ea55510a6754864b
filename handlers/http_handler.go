// Package handlers serves the search page, the reservation modal, toasts and
// the admin page. Every route reads and mutates the caller's session state;
// pages render it as HTML, and callers sending Accept: application/json get a
// PageView instead.
package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/medicaments-lookup/admin"
	"github.com/giygas/medicaments-lookup/apiclient"
	"github.com/giygas/medicaments-lookup/interfaces"
	"github.com/giygas/medicaments-lookup/logging"
	"github.com/giygas/medicaments-lookup/render"
	"github.com/giygas/medicaments-lookup/search"
	"github.com/giygas/medicaments-lookup/session"
	"github.com/giygas/medicaments-lookup/ui"
)

// MsgRecycled is the toast shown after an expired medicine is logged
const MsgRecycled = "Expired medicine logged. Thank you!"

// Page titles
const (
	IndexTitle = "Find a medicine"
	AdminTitle = "Pharmacy admin"
)

// HTTPHandlerImpl implements the HTTPHandler interface
type HTTPHandlerImpl struct {
	healthChecker interfaces.HealthChecker
	validator     interfaces.InputValidator
}

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(healthChecker interfaces.HealthChecker, validator interfaces.InputValidator) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		healthChecker: healthChecker,
		validator:     validator,
	}
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// sessionFrom fetches the session attached by the session middleware
func (h *HTTPHandlerImpl) sessionFrom(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		logging.Error("Request without session", "path", r.URL.Path)
		RespondWithError(w, http.StatusInternalServerError, "Session unavailable")
		return nil, false
	}
	return s, true
}

// Index renders the search page as it stands
func (h *HTTPHandlerImpl) Index(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	h.respondIndex(w, r, s, http.StatusOK, "", "")
}

// Search runs a search for ?q=. The search form and the suggestion pills both
// submit q, so either way the input is overwritten with q and searched.
func (h *HTTPHandlerImpl) Search(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}

	q := r.URL.Query().Get("q")
	if err := h.validator.ValidateQuery(q); err != nil {
		var verr *apiclient.ValidationError
		msg := err.Error()
		if errors.As(err, &verr) {
			msg = verr.Message
		}
		logging.Warn("Rejected search query", "session", s.ID, "error", err)
		// The previous search's panels must not outlive a rejected query
		s.Search.Clear(r.Context())
		if wantsJSON(r) {
			RespondWithError(w, http.StatusBadRequest, msg)
			return
		}
		s.State.Alert(msg)
		h.respondIndex(w, r, s, http.StatusBadRequest, "", "")
		return
	}

	errorKind := ""
	err := s.Search.SelectSuggestion(r.Context(), q)
	switch {
	case err == nil:
	case errors.Is(err, search.ErrSuperseded):
		// A newer search of the same session owns the panels
	default:
		errorKind = string(apiclient.Classify(err))
	}

	h.respondIndex(w, r, s, http.StatusOK, "", errorKind)
}

// Filter narrows the rendered result rows to those containing ?term=
func (h *HTTPHandlerImpl) Filter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}

	term := r.URL.Query().Get("term")
	visible := s.Search.Filter(term)
	logging.Debug("Filtered results", "session", s.ID, "term", term, "visible", visible)
	h.respondIndex(w, r, s, http.StatusOK, term, "")
}

// Recycle logs an expired medicine drop-off
func (h *HTTPHandlerImpl) Recycle(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	s.State.Toast(MsgRecycled)
	h.afterPost(w, r, s, "/")
}

// OpenReservation opens the modal for the row's pharmacy and stock
func (h *HTTPHandlerImpl) OpenReservation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}

	s.State.EnsureModal().Open(ui.ReservationContext{
		Pharmacy: r.PostForm.Get("pharmacy"),
		Stock:    r.PostForm.Get("stock"),
	})
	h.afterPost(w, r, s, "/")
}

// ConfirmReservation closes the modal with a confirmation toast
func (h *HTTPHandlerImpl) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}

	m := s.State.EnsureModal()
	if pickup := r.PostForm.Get("pickup"); pickup != "" {
		if err := m.SelectPickup(pickup); err != nil && !errors.Is(err, ui.ErrModalClosed) {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	toast, err := m.Confirm()
	if err != nil {
		h.modalClosed(w, r, s)
		return
	}
	logging.Info("Reservation confirmed", "session", s.ID, "message", toast.Message)
	h.afterPost(w, r, s, "/")
}

// CancelReservation closes the modal without a toast. It also serves the
// backdrop link.
func (h *HTTPHandlerImpl) CancelReservation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	if err := s.State.EnsureModal().Cancel(); err != nil {
		h.modalClosed(w, r, s)
		return
	}
	h.afterPost(w, r, s, "/")
}

// modalClosed answers confirm or cancel on a closed modal
func (h *HTTPHandlerImpl) modalClosed(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if wantsJSON(r) {
		RespondWithError(w, http.StatusConflict, "No reservation in progress")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Toasts returns the visible and hiding toasts, oldest first
func (h *HTTPHandlerImpl) Toasts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	toasts := s.State.Toasts()
	if toasts == nil {
		toasts = []ui.Toast{}
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"toasts": toasts})
}

// AdminPage renders the login form or, with a stored token, the inventory
func (h *HTTPHandlerImpl) AdminPage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}

	loggedIn, err := s.Admin.Restore(r.Context())
	if err != nil {
		logging.Error("Failed to restore admin token", "session", s.ID, "error", err)
	}
	if loggedIn {
		// Load failures render as an inline row
		_ = s.Admin.Inventory(r.Context())
	}
	h.respondAdmin(w, r, s, http.StatusOK)
}

// AdminLogin authenticates with the email and password form fields
func (h *HTTPHandlerImpl) AdminLogin(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}

	err := s.Admin.Login(r.Context(), strings.TrimSpace(r.PostForm.Get("email")), r.PostForm.Get("password"))
	if err != nil && wantsJSON(r) {
		h.respondAdminError(w, s, err)
		return
	}
	h.afterPost(w, r, s, "/admin")
}

// AdminUpsert saves an inventory item from the upsert form
func (h *HTTPHandlerImpl) AdminUpsert(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}

	form := interfaces.UpsertForm{
		BrandName:   strings.TrimSpace(r.PostForm.Get("brandName")),
		GenericName: strings.TrimSpace(r.PostForm.Get("genericName")),
		Strength:    strings.TrimSpace(r.PostForm.Get("strength")),
		Quantity:    strings.TrimSpace(r.PostForm.Get("quantity")),
		Expiry:      strings.TrimSpace(r.PostForm.Get("expiry")),
	}
	_, err := s.Admin.Upsert(r.Context(), form)
	if err != nil && wantsJSON(r) {
		h.respondAdminError(w, s, err)
		return
	}
	h.afterPost(w, r, s, "/admin")
}

// AdminLogout forgets the stored token
func (h *HTTPHandlerImpl) AdminLogout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	if err := s.Admin.Logout(r.Context()); err != nil {
		logging.Error("Logout failed", "session", s.ID, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	h.afterPost(w, r, s, "/admin")
}

// respondAdminError maps an admin failure to a JSON error. The pending alert
// carries the user-facing text.
func (h *HTTPHandlerImpl) respondAdminError(w http.ResponseWriter, s *session.Session, err error) {
	msg := s.State.TakeAlert()
	if msg == "" {
		msg = err.Error()
	}

	var verr *apiclient.ValidationError
	switch {
	case errors.As(err, &verr):
		RespondWithError(w, http.StatusBadRequest, msg)
	case errors.Is(err, admin.ErrNotLoggedIn):
		RespondWithError(w, http.StatusUnauthorized, msg)
	default:
		RespondWithError(w, http.StatusBadGateway, msg)
	}
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.healthChecker.HealthCheck()

	uptimeSeconds, _ := data["uptime_seconds"].(float64)
	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(time.Duration(uptimeSeconds) * time.Second),
		UptimeSeconds: uptimeSeconds,
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	RespondWithJSON(w, httpStatus, response)
}

// afterPost redirects a form post back to its page, or answers JSON callers
// with the state the post produced
func (h *HTTPHandlerImpl) afterPost(w http.ResponseWriter, r *http.Request, s *session.Session, target string) {
	if wantsJSON(r) {
		RespondWithJSON(w, http.StatusOK, pageView(s.State, ""))
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *HTTPHandlerImpl) respondIndex(w http.ResponseWriter, r *http.Request, s *session.Session, status int, filterTerm, errorKind string) {
	if wantsJSON(r) {
		RespondWithJSON(w, status, pageView(s.State, errorKind))
		return
	}
	h.writePage(w, status, render.Index, render.PageFor(s.State, IndexTitle, filterTerm))
}

func (h *HTTPHandlerImpl) respondAdmin(w http.ResponseWriter, r *http.Request, s *session.Session, status int) {
	if wantsJSON(r) {
		RespondWithJSON(w, status, pageView(s.State, ""))
		return
	}
	h.writePage(w, status, render.Admin, render.PageFor(s.State, AdminTitle, ""))
}

// writePage renders into a buffer first so a template failure still yields a
// clean 500
func (h *HTTPHandlerImpl) writePage(w http.ResponseWriter, status int, tmpl func(io.Writer, render.Page) error, p render.Page) {
	var buf bytes.Buffer
	if err := tmpl(&buf, p); err != nil {
		logging.Error("Failed to render page", "title", p.Title, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
