package main

import (
	"context"
	"fmt"

	"github.com/zoonosys/zoonosys-api/internal/api/handler"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
	"github.com/zoonosys/zoonosys-api/internal/infrastructure/config"
	mongodb "github.com/zoonosys/zoonosys-api/internal/infrastructure/db/mongo"
	"github.com/zoonosys/zoonosys-api/internal/infrastructure/db/postgres"
)

// stores bundles the repositories of the configured driver.
type stores struct {
	principals ports.PrincipalRepository
	roles      ports.RoleRepository
	tokens     ports.ResetTokenRepository
	checks     map[string]handler.PingFunc
	close      func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		return &stores{
			principals: postgres.NewPrincipalRepository(pool),
			roles:      postgres.NewRoleRepository(pool),
			tokens:     postgres.NewResetTokenRepository(pool),
			checks:     map[string]handler.PingFunc{"postgres": pool.Ping},
			close:      pool.Close,
		}, nil

	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &stores{
			principals: mongodb.NewPrincipalRepository(db),
			roles:      mongodb.NewRoleRepository(db),
			tokens:     mongodb.NewResetTokenRepository(db),
			checks: map[string]handler.PingFunc{
				"mongo": func(ctx context.Context) error { return client.Ping(ctx, nil) },
			},
			close: func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
