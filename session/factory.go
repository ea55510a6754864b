package session

import (
	"time"

	"github.com/giygas/medicaments-lookup/admin"
	"github.com/giygas/medicaments-lookup/apiclient"
	"github.com/giygas/medicaments-lookup/interfaces"
	"github.com/giygas/medicaments-lookup/search"
	"github.com/giygas/medicaments-lookup/tokenstore"
	"github.com/giygas/medicaments-lookup/ui"
)

// Deps are shared by the controllers of every session
type Deps struct {
	Client         *apiclient.Client
	Tokens         *tokenstore.Store
	Validator      interfaces.InputValidator
	Clock          ui.Clock // nil means the system clock
	ToastVisible   time.Duration
	ToastFade      time.Duration
	PartialResults bool
}

// NewFactory returns a Factory wiring a fresh ui.State to a search controller
// and an admin service. The admin token lives in the session's own scope.
func NewFactory(d Deps) Factory {
	return func(id string) *Session {
		opts := []ui.Option{ui.WithClock(d.Clock)}
		if d.ToastVisible > 0 && d.ToastFade > 0 {
			opts = append(opts, ui.WithToastTiming(d.ToastVisible, d.ToastFade))
		}
		state := ui.NewState(id, opts...)

		var searchOpts []search.Option
		if d.PartialResults {
			searchOpts = append(searchOpts, search.WithPartialResults())
		}

		scope := d.Tokens.Scope(tokenstore.SessionScope(id))
		return &Session{
			ID:     id,
			State:  state,
			Search: search.NewController(d.Client, state, searchOpts...),
			Admin:  admin.NewService(d.Client.WithTokens(scope), scope, d.Validator, state),
		}
	}
}
