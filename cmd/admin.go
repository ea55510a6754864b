package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/giygas/medicaments-lookup/admin"
	"github.com/giygas/medicaments-lookup/interfaces"
	"github.com/spf13/cobra"
)

// errAlert carries the user-facing text the admin page would have shown
func errAlert(a *adminSession, err error) error {
	if msg := a.state.TakeAlert(); msg != "" {
		return errors.New(msg)
	}
	return err
}

func newLoginCmd(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the pharmacy admin",
		Long: `Logs in with email and password and stores the returned token in the
state database. The password is read from MEDLOOKUP_PASSWORD or, failing
that, from the first line of stdin when --password is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			if password == "" {
				password = os.Getenv("MEDLOOKUP_PASSWORD")
			}
			if password == "" {
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				password = strings.TrimRight(line, "\r\n")
			}

			a, err := openAdmin(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.Login(cmd.Context(), email, password); err != nil {
				return errAlert(a, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", a.state.User())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored admin token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := openAdmin(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), admin.MsgLoggedOut)
			return nil
		},
	}
}

func newInventoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List the pharmacy inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := openAdmin(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireLogin(cmd, a); err != nil {
				return err
			}
			loadErr := a.service.Inventory(cmd.Context())
			if err := printInventory(cmd, opts, a); err != nil {
				return err
			}
			return loadErr
		},
	}

	cmd.AddCommand(newInventoryAddCmd(opts))
	return cmd
}

func newInventoryAddCmd(opts *options) *cobra.Command {
	var form interfaces.UpsertForm

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update an inventory item",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := openAdmin(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireLogin(cmd, a); err != nil {
				return err
			}
			if _, err := a.service.Upsert(cmd.Context(), form); err != nil {
				return errAlert(a, err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), admin.MsgSaved)
			return printInventory(cmd, opts, a)
		},
	}

	cmd.Flags().StringVar(&form.BrandName, "brand", "", "brand name")
	cmd.Flags().StringVar(&form.GenericName, "generic", "", "generic name")
	cmd.Flags().StringVar(&form.Strength, "strength", "", "strength, e.g. 500mg")
	cmd.Flags().StringVar(&form.Quantity, "quantity", "", "quantity in stock")
	cmd.Flags().StringVar(&form.Expiry, "expiry", "", "expiry date, YYYY-MM-DD")
	return cmd
}

// requireLogin restores the stored token or fails with a hint
func requireLogin(cmd *cobra.Command, a *adminSession) error {
	loggedIn, err := a.service.Restore(cmd.Context())
	if err != nil {
		return err
	}
	if !loggedIn {
		return fmt.Errorf("%w: run medlookup login first", admin.ErrNotLoggedIn)
	}
	return nil
}

func printInventory(cmd *cobra.Command, opts *options, a *adminSession) error {
	nodes := a.state.Inventory().Visible()
	if opts.json {
		return printJSON(cmd.OutOrStdout(), nodesJSON(nodes))
	}
	return printNodes(cmd.OutOrStdout(), nodes)
}
