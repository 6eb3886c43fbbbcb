// Package main is the entry point for the IRR prefix lookup server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sagoresarker/irr-prefix-lookup/internal/config"
	"github.com/sagoresarker/irr-prefix-lookup/internal/handlers"
	"github.com/sagoresarker/irr-prefix-lookup/internal/logging"
	"github.com/sagoresarker/irr-prefix-lookup/internal/metrics"
	"github.com/sagoresarker/irr-prefix-lookup/internal/preflight"
	"github.com/sagoresarker/irr-prefix-lookup/internal/query"
)

// cliOptions holds the command line flags. Empty values leave the config
// file (or the built-in default) untouched.
type cliOptions struct {
	Config   string
	Listen   string
	LogLevel string
	Mode     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "irr-prefix-lookup",
		Short: "HTTP service returning the IPv4 prefixes registered for an ASN",
		Long: `Serves GET /lookup?asn=AS<n>&irr=<sources> by querying the configured
IRR sources with bgpq4 and returning the aggregated route objects as JSON.

Example:
  irr-prefix-lookup --config config.yaml --listen :8090`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "Path to configuration file (YAML)")
	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "Address to listen on (overrides server.listen)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Execution mode: direct or shell (overrides lookup.mode)")

	return cmd
}

// loadConfig reads the config file and applies the flag overrides on top.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		data, err := os.ReadFile(opts.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := config.Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Mode != "" {
		cfg.Lookup.Mode = opts.Mode
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newRunner(cfg *config.Config, log logrus.FieldLogger, m *metrics.Metrics) query.Runner {
	if cfg.Lookup.Mode == config.ModeShell {
		return query.NewShellRunner(cfg.QueryTools(), cfg.Lookup.Timeout, log)
	}
	r := query.NewDirectRunner(cfg.QueryTools(), cfg.Lookup.Timeout, log)
	if m != nil {
		r.Observer = m
	}
	return r
}

// newHandler wires the HTTP surface for cfg.
func newHandler(cfg *config.Config, log *logrus.Logger, checker handlers.ReadinessChecker) (http.Handler, error) {
	validator, err := cfg.Validator()
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	lookup := handlers.NewLookupHandler(handlers.LookupOptions{
		Validator:     validator,
		Runner:        newRunner(cfg, log, m),
		Metrics:       m,
		Log:           log,
		DefaultASN:    cfg.Lookup.DefaultASN,
		Timeout:       cfg.Lookup.Timeout,
		MaxConcurrent: cfg.Lookup.MaxConcurrentLookups,
	})

	return handlers.NewRouter(handlers.RouterOptions{
		Lookup:      lookup,
		Health:      handlers.NewHealthHandler(checker),
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		Log:         log,
	}), nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	checker := preflight.NewChecker(cfg.RequiredTools(), cfg.IRR.Host, cfg.IRR.Resolver)
	if err := checker.Startup(); err != nil {
		log.WithError(err).Error("startup check failed")
		return err
	}

	handler, err := newHandler(cfg, log, checker)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"listen":  cfg.Server.Listen,
			"mode":    cfg.Lookup.Mode,
			"timeout": cfg.Lookup.Timeout.String(),
		}).Info("server is running")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
