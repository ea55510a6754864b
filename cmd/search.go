package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/giygas/medicaments-lookup/apiclient"
	"github.com/giygas/medicaments-lookup/handlers"
	"github.com/giygas/medicaments-lookup/search"
	"github.com/giygas/medicaments-lookup/ui"
	"github.com/giygas/medicaments-lookup/validation"
	"github.com/spf13/cobra"
)

func newSearchCmd(opts *options) *cobra.Command {
	var (
		partial bool
		filter  string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search medicines and their generic equivalents",
		Long: `Searches the backend for medicines matching the query and prints the
result rows followed by up to six equivalent suggestions. An empty query
prints the empty state without contacting the backend.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			if err := validation.NewInputValidator().ValidateQuery(query); err != nil {
				return err
			}

			state := ui.NewState("cli")
			defer state.Close()

			var searchOpts []search.Option
			if partial {
				searchOpts = append(searchOpts, search.WithPartialResults())
			}
			controller := search.NewController(newClient(cfg), state, searchOpts...)

			searchErr := controller.SelectSuggestion(cmd.Context(), query)
			if errors.Is(searchErr, context.Canceled) {
				return searchErr
			}
			if filter != "" {
				controller.Filter(filter)
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, searchOutput{
					Query:       state.TrimmedQuery(),
					ErrorKind:   string(apiclient.Classify(searchErr)),
					Results:     nodesJSON(state.Results().Visible()),
					Suggestions: nodesJSON(state.Suggestions().Visible()),
				})
			}

			if searchErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Search failed (%s)\n", apiclient.Classify(searchErr))
			}
			if err := printNodes(out, state.Results().Visible()); err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Equivalents:")
			for _, n := range state.Suggestions().Visible() {
				fmt.Fprintf(out, "  %s\n", n.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&partial, "partial", false, "render results and equivalents independently when one request fails")
	cmd.Flags().StringVar(&filter, "filter", "", "only show result rows containing this text")
	return cmd
}

type searchOutput struct {
	Query       string              `json:"query"`
	ErrorKind   string              `json:"error_kind,omitempty"`
	Results     []handlers.NodeView `json:"results"`
	Suggestions []handlers.NodeView `json:"suggestions"`
}
