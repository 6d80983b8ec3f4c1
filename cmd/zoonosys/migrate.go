package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zoonosys/zoonosys-api/internal/infrastructure/config"
	mongodb "github.com/zoonosys/zoonosys-api/internal/infrastructure/db/mongo"
	"github.com/zoonosys/zoonosys-api/internal/infrastructure/db/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Apply all pending PostgreSQL migrations, or create the MongoDB indexes when
STORE_DRIVER=mongo. With --down the PostgreSQL schema is dropped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, down)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back every migration (drops all tables)")
	return cmd
}

func runMigrate(cmd *cobra.Command, down bool) error {
	ctx := cmd.Context()
	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	if cfg.StoreDriver == config.DriverMongo {
		if down {
			return fmt.Errorf("--down is only supported for postgres")
		}
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(ctx) }()
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo indexes ensured")
		return nil
	}

	m, err := postgres.NewMigrator(cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("close migrator")
		}
	}()

	if down {
		if err := m.Down(); err != nil {
			return err
		}
		log.Info().Msg("migrations rolled back")
		return nil
	}

	if err := m.Up(); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
	return nil
}
