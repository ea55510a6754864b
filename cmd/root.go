// Package cmd holds the medlookup command line: the web front end server and
// terminal versions of the search and admin pages.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/giygas/medicaments-lookup/config"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command
type options struct {
	verbose bool
	apiURL  string
	dbPath  string
	json    bool
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "medlookup",
		Short: "Pharmacy medicine lookup",
		Long: `medlookup searches a pharmacy medicine backend for medicines and their
generic equivalents. "medlookup serve" runs the web front end; the other
commands bring the same search and admin inventory to the terminal.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "medicine backend base URL (overrides API_BASE_URL)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "state database path (overrides STATE_DB_PATH)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "output JSON")

	root.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newInventoryCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads .env and the environment, then applies flag overrides
func (o *options) loadConfig() (*config.Config, error) {
	config.LoadDotEnv()
	if o.apiURL != "" {
		if err := os.Setenv("API_BASE_URL", o.apiURL); err != nil {
			return nil, err
		}
	}
	if o.dbPath != "" {
		if err := os.Setenv("STATE_DB_PATH", o.dbPath); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg, nil
}
