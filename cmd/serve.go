package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/medicaments-lookup/handlers"
	"github.com/giygas/medicaments-lookup/health"
	"github.com/giygas/medicaments-lookup/logging"
	"github.com/giygas/medicaments-lookup/scheduler"
	"github.com/giygas/medicaments-lookup/server"
	"github.com/giygas/medicaments-lookup/session"
	"github.com/giygas/medicaments-lookup/tokenstore"
	"github.com/giygas/medicaments-lookup/validation"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	var partial bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front end",
		Long: `Serves the search page, the reservation modal and the admin page. Each
browser gets its own page state keyed by a session cookie; sessions idle for
longer than SESSION_IDLE_TIMEOUT are swept along with their admin token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, partial)
		},
	}

	cmd.Flags().BoolVar(&partial, "partial", false, "render results and equivalents independently when one request fails")
	return cmd
}

func runServe(ctx context.Context, opts *options, partial bool) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	logService := logging.InitLogger(cfg, opts.verbose)
	defer logService.Close()

	logging.Info("Starting medicine lookup front end", "env", cfg.Env.String(), "api", cfg.APIBaseURL)

	tokens, err := tokenstore.Open(cfg.StateDBPath)
	if err != nil {
		logging.Error("Failed to open state database", "path", cfg.StateDBPath, "error", err)
		return err
	}
	defer tokens.Close()

	client := newClient(cfg)
	validator := validation.NewInputValidator()

	registry := session.NewRegistry(session.NewFactory(session.Deps{
		Client:         client,
		Tokens:         tokens,
		Validator:      validator,
		ToastVisible:   cfg.ToastVisible,
		ToastFade:      cfg.ToastFade,
		PartialResults: partial,
	}))
	registry.OnEvict(func(id string) {
		dropCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tokens.DropScope(dropCtx, tokenstore.SessionScope(id)); err != nil {
			logging.Warn("Failed to drop session token", "session", id, "error", err)
		}
	})

	schedOpts := scheduler.DefaultOptions(cfg.SessionIdleTimeout)
	healthChecker := health.NewHealthChecker(registry, cfg.APIBaseURL, 3*schedOpts.ProbeInterval)
	httpHandler := handlers.NewHTTPHandler(healthChecker, validator)
	srv := server.NewServer(cfg, httpHandler, registry.Middleware)

	sched := scheduler.NewScheduler(registry, client, healthChecker, schedOpts)
	sched.AddJanitor("rate_limiter", srv.Limiter())
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error("Server failed", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
