package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zoonosys/zoonosys-api/internal/api"
	"github.com/zoonosys/zoonosys-api/internal/api/middleware"
	"github.com/zoonosys/zoonosys-api/internal/core/access"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
	"github.com/zoonosys/zoonosys-api/internal/core/service"
	"github.com/zoonosys/zoonosys-api/internal/infrastructure/config"
	redisdb "github.com/zoonosys/zoonosys-api/internal/infrastructure/db/redis"
	"github.com/zoonosys/zoonosys-api/internal/infrastructure/notify"
	"github.com/zoonosys/zoonosys-api/internal/infrastructure/queue"
	"github.com/zoonosys/zoonosys-api/internal/infrastructure/security"
	"github.com/zoonosys/zoonosys-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Seed the roles, start the notification workers and the reset token purger,
then serve the HTTP API until SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if err := service.SeedRoles(ctx, st.roles, logger.Component("seeder")); err != nil {
		return err
	}

	codec, err := security.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	if err != nil {
		return err
	}
	hasher := security.NewBcryptHasher(0)

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	checks := st.checks
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	sender, err := newSender(cfg)
	if err != nil {
		return err
	}

	// background work outlives the signal context; queued notifications are
	// drained after the HTTP server stops, bounded by shutdownTimeout
	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()

	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, sender, logger.Component("notify"))
	dispatcher.Start(workerCtx)

	authService := service.NewAuthService(st.principals, st.roles, hasher, codec, logger.Component("auth"))
	resetService := service.NewPasswordResetService(
		st.principals, st.tokens, hasher, dispatcher, logger.Component("password_reset"),
		cfg.Auth.ResetTokenTTL, primaryOrigin(cfg.Auth.FrontendURL),
	)

	purgerDone := make(chan struct{})
	go func() {
		defer close(purgerDone)
		queue.NewPurger(resetService, cfg.Notify.PurgeInterval, logger.Component("purger")).Run(workerCtx)
	}()

	deps := api.Deps{
		Auth:         authService,
		Reset:        resetService,
		Codec:        codec,
		Matrix:       access.DefaultMatrix(),
		HealthChecks: checks,
		FrontendURL:  cfg.Auth.FrontendURL,
		Logger:       logger.Component("http"),
	}
	if cfg.Auth.ReloadPrincipal {
		deps.Principals = st.principals
	}
	if cfg.Auth.RatePerMinute > 0 {
		deps.RateLimiter = middleware.NewRateLimiter(rdb, middleware.PerMinute(cfg.Auth.RatePerMinute), logger.Component("ratelimit"))
	}
	e := api.NewRouter(deps)

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	log.Info().
		Str("port", cfg.Port).
		Str("store", cfg.StoreDriver).
		Bool("redis", rdb != nil).
		Msg("server started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-serverErr:
		log.Error().Err(err).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("http shutdown")
	}

	dispatcher.Close()
	drained := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(shutdownTimeout):
		log.Warn().Msg("notification queue not drained, dropping the rest")
	}

	stopWorkers()
	<-drained
	<-purgerDone
	return err
}

func newSender(cfg *config.Config) (ports.Notifier, error) {
	if cfg.Mail.Host == "" {
		return notify.NewLogSender(logger.Component("mail")), nil
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}, logger.Component("mail"))
}

// primaryOrigin returns the first entry of a comma separated origin list;
// reset links point there.
func primaryOrigin(origins string) string {
	first, _, _ := strings.Cut(origins, ",")
	return strings.TrimSpace(first)
}
