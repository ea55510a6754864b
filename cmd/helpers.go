package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/giygas/medicaments-lookup/admin"
	"github.com/giygas/medicaments-lookup/apiclient"
	"github.com/giygas/medicaments-lookup/config"
	"github.com/giygas/medicaments-lookup/handlers"
	"github.com/giygas/medicaments-lookup/tokenstore"
	"github.com/giygas/medicaments-lookup/ui"
	"github.com/giygas/medicaments-lookup/validation"
)

// newClient builds the backend client from config
func newClient(cfg *config.Config) *apiclient.Client {
	return apiclient.NewClient(cfg.APIBaseURL, apiclient.WithTimeout(cfg.RequestTimeout))
}

// adminSession is the admin page bound to the CLI token scope
type adminSession struct {
	store   *tokenstore.Store
	state   *ui.State
	service *admin.Service
}

func (a *adminSession) Close() error {
	a.state.Close()
	return a.store.Close()
}

// openAdmin opens the state database and binds an admin service to the CLI scope
func openAdmin(cfg *config.Config) (*adminSession, error) {
	store, err := tokenstore.Open(cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	scope := store.Scope(tokenstore.CLIScope)
	state := ui.NewState(tokenstore.CLIScope)
	client := newClient(cfg).WithTokens(scope)

	return &adminSession{
		store:   store,
		state:   state,
		service: admin.NewService(client, scope, validation.NewInputValidator(), state),
	}, nil
}

// printNodes writes one tab-aligned line per node
func printNodes(w io.Writer, nodes []ui.Node) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Title, n.Detail, n.Tag)
	}
	return tw.Flush()
}

// printJSON writes v indented
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// nodesJSON is the JSON form of a container
func nodesJSON(nodes []ui.Node) []handlers.NodeView {
	return handlers.NodeViews(nodes)
}
