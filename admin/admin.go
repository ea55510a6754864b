// Package admin implements the pharmacy admin page: login, the inventory
// list, the inventory upsert form and logout. Validation failures and login
// failures become a blocking alert; inventory load failures become an inline
// error row.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/giygas/medicaments-lookup/apiclient"
	"github.com/giygas/medicaments-lookup/interfaces"
	"github.com/giygas/medicaments-lookup/logging"
	"github.com/giygas/medicaments-lookup/render"
	"github.com/giygas/medicaments-lookup/tokenstore"
	"github.com/giygas/medicaments-lookup/ui"
)

// User-facing messages
const (
	MsgLoginFailed = "Login failed"
	MsgSaveFailed  = "Could not save item"
	MsgSaved       = "Inventory updated"
	MsgLoggedOut   = "Logged out"
)

// ErrNotLoggedIn is returned by inventory operations without a stored token
var ErrNotLoggedIn = errors.New("not logged in")

// Backend is the part of the API client the admin page needs
type Backend interface {
	Login(ctx context.Context, email, password string) (*apiclient.LoginResponse, error)
	Inventory(ctx context.Context) ([]apiclient.InventoryItem, error)
	UpsertInventory(ctx context.Context, item apiclient.UpsertRequest) (*apiclient.InventoryItem, error)
}

// Store persists the token and user name of one scope
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Value(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
}

// Service runs admin actions against one ui.State. The backend must read its
// bearer token from the same Store.
type Service struct {
	backend   Backend
	store     Store
	validator interfaces.InputValidator
	state     *ui.State
}

// NewService creates an admin service
func NewService(backend Backend, store Store, validator interfaces.InputValidator, state *ui.State) *Service {
	return &Service{
		backend:   backend,
		store:     store,
		validator: validator,
		state:     state,
	}
}

// Restore copies the persisted user name into the page state, so a logged-in
// admin stays logged in across restarts. It reports whether a token exists.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	token, err := s.store.Token(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		s.state.SetUser("")
		return false, nil
	}
	name, err := s.store.Value(ctx, tokenstore.UserKey)
	if err != nil {
		return true, err
	}
	s.state.SetUser(name)
	return true, nil
}

// Login validates the form, authenticates and persists the token, then loads
// the inventory. Failure details are logged, not shown.
func (s *Service) Login(ctx context.Context, email, password string) error {
	if err := s.validator.ValidateLogin(email, password); err != nil {
		s.alert(err)
		return err
	}

	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		logging.Warn("Admin login failed", "session", s.state.ID(), "kind", apiclient.Classify(err), "error", err)
		s.state.Alert(MsgLoginFailed)
		return fmt.Errorf("%s: %w", MsgLoginFailed, err)
	}

	if err := s.store.SetToken(ctx, resp.Token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	name := resp.User.Name
	if name == "" {
		name = email
	}
	if err := s.store.SetValue(ctx, tokenstore.UserKey, name); err != nil {
		return fmt.Errorf("storing user: %w", err)
	}
	s.state.SetUser(name)
	logging.Info("Admin logged in", "session", s.state.ID(), "user", name)

	// The list failing to load is shown inline; the login itself succeeded
	_ = s.Inventory(ctx)
	return nil
}

// Inventory reloads the inventory list. Failures render an error row.
func (s *Service) Inventory(ctx context.Context) error {
	token, err := s.store.Token(ctx)
	if err != nil {
		render.RenderInventory(s.state.Inventory(), nil, err)
		return err
	}
	if token == "" {
		s.state.Inventory().Replace(nil)
		return ErrNotLoggedIn
	}

	items, err := s.backend.Inventory(ctx)
	render.RenderInventory(s.state.Inventory(), items, err)
	return err
}

// Upsert validates the form, saves the item and reloads the list
func (s *Service) Upsert(ctx context.Context, form interfaces.UpsertForm) (*apiclient.InventoryItem, error) {
	req, err := s.validator.ValidateUpsert(form)
	if err != nil {
		s.alert(err)
		return nil, err
	}

	token, err := s.store.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		s.state.Alert(MsgLoginFailed)
		return nil, ErrNotLoggedIn
	}

	item, err := s.backend.UpsertInventory(ctx, req)
	if err != nil {
		logging.Warn("Inventory upsert failed", "session", s.state.ID(), "kind", apiclient.Classify(err), "error", err)
		s.state.Alert(MsgSaveFailed)
		return nil, err
	}

	s.state.Toast(MsgSaved)
	_ = s.Inventory(ctx)
	return item, nil
}

// Logout forgets the token and user and clears the list
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	s.state.SetUser("")
	s.state.Inventory().Replace(nil)
	s.state.Toast(MsgLoggedOut)
	return nil
}

// alert shows the message of a validation error as is
func (s *Service) alert(err error) {
	var verr *apiclient.ValidationError
	if errors.As(err, &verr) {
		s.state.Alert(verr.Message)
		return
	}
	s.state.Alert(err.Error())
}
