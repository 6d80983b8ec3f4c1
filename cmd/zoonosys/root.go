package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zoonosys/zoonosys-api/internal/infrastructure/config"
	"github.com/zoonosys/zoonosys-api/pkg/logger"
)

const serviceName = "zoonosys-api"

// NewRootCmd creates the root command of the zoonosys CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zoonosys",
		Short: "Zoonosys API - authentication and access control for the shelter backend",
		Long: `Zoonosys API serves registration, login, role-based route protection and
password reset for the zoonosis shelter backend. Configuration is read from
the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedRolesCmd())

	return cmd
}

// bootstrap loads the configuration and initialises the process logger.
func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})
	return cfg, log, nil
}
