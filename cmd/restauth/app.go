package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/torosent/restauth/internal/auth"
	"github.com/torosent/restauth/internal/config"
	"github.com/torosent/restauth/internal/httpclient"
	"github.com/torosent/restauth/internal/logging"
	"github.com/torosent/restauth/internal/metrics"
	"github.com/torosent/restauth/internal/session"
	"github.com/torosent/restauth/internal/tracing"
)

// app holds everything a subcommand needs, built from the parsed flags.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     session.Store
	sessionID string
	tracer    *tracing.Provider
	collector *metrics.Collector
	strategy  auth.Authenticator
	executor  *httpclient.Executor
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.NewLoader().FromFlags(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(),
	}

	a.store, a.sessionID, err = session.Open(cfg.Session)
	if err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("open session: %w", err)
	}
	a.logger = a.logger.With(zap.String("session", a.sessionID))

	a.tracer, err = tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}

	client := httpclient.NewClient(cfg.Timeout)
	a.strategy, err = auth.NewStrategy(cfg, a.store,
		auth.WithHTTPClient(client),
		auth.WithLogger(a.logger),
		auth.WithObserver(a.collector),
		auth.WithTracer(a.tracer.Tracer(), a.tracer.ShouldPropagate()),
	)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	a.executor = httpclient.NewExecutor(client, a.strategy)

	a.logger.Debug("configured",
		zap.String("authenticator", string(cfg.DriverOptions.AuthenticatorClass)),
		zap.String("session_type", string(cfg.Session.Type)),
		zap.Duration("revalidate_token_time", cfg.DriverOptions.RevalidateTokenTime),
		zap.Bool("tracing_export", a.tracer.Exporting()),
	)
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.strategy != nil {
		errs = append(errs, a.strategy.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
