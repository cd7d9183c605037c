package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cybat.ai/cybat-web/internal/config"
	"cybat.ai/cybat-web/internal/observability"
	"cybat.ai/cybat-web/internal/pages"
)

type rootFlags struct {
	envFile string
	addr    string
	dev     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "cybat-web",
		Short:         "Cybat AI marketing site",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file with local overrides")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "HTTP listen address (default :$CYBAT_WEB_SERVER_PORT)")
	root.PersistentFlags().BoolVar(&flags.dev, "dev", false, "dev mode: watch the on-disk views directory")

	root.AddCommand(serveCmd(flags), routesCmd(), checkCmd(flags))
	return root
}

func serveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the routing table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoutes(cmd.OutOrStdout())
		},
	}
}

func checkCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve every routed page and report load errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runCheck(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}
}

// runCheck resolves every page once. A one-shot check never watches the
// views directory.
func runCheck(ctx context.Context, cfg config.Config, logger *zap.Logger, w io.Writer) error {
	cfg.Server.Dev = false
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.stop()
	return checkPages(ctx, a.resolver, w)
}

func loadRuntime(ctx context.Context, flags *rootFlags) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(config.WithEnvFile(flags.envFile))
	if err != nil {
		return config.Config{}, nil, err
	}
	if flags.dev {
		cfg.Server.Dev = true
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.Named("web")
	if err := resolveSecrets(ctx, &cfg, logger); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func runServe(ctx context.Context, flags *rootFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := loadRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var opts []appOption
	notifier, closeNotifier, err := newLeadNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise lead notifier", zap.Error(err))
		return err
	}
	defer closeNotifier()
	if notifier != nil {
		opts = append(opts, withNotifier(notifier))
	}

	a, err := newApp(cfg, logger, opts...)
	if err != nil {
		logger.Error("failed to initialise app", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	if err := a.start(ctx); err != nil {
		return err
	}
	defer a.stop()

	addr := cfg.Addr()
	if flags.addr != "" {
		addr = flags.addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", addr))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("cybat-web listening", zap.Bool("dev", cfg.Server.Dev), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			serverLogger.Error("http server error", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received; draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func printRoutes(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tPAGE")
	for _, route := range pages.Routes {
		fmt.Fprintf(tw, "%s\t%s\n", route.Path, route.Key)
	}
	return tw.Flush()
}

// checkPages resolves every routed page plus the not-found page.
func checkPages(ctx context.Context, resolver *pages.Resolver, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var failed []string
	for _, key := range append(pages.Keys(), pages.KeyNotFound) {
		page, err := resolver.Resolve(ctx, key)
		if err != nil {
			fmt.Fprintf(w, "FAIL  %-16s %v\n", key, err)
			failed = append(failed, string(key))
			continue
		}
		fmt.Fprintf(w, "ok    %-16s %q\n", key, page.Title)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d page(s) failed to load: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}
