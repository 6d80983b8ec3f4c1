package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

// SeedRoles makes sure every role in domain.SeedRoles exists. It is safe to
// run on every start.
func SeedRoles(ctx context.Context, roles ports.RoleRepository, logger zerolog.Logger) error {
	for _, name := range domain.SeedRoles {
		if err := roles.Ensure(ctx, name); err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	logger.Info().Strs("roles", domain.SeedRoles).Msg("roles seeded")
	return nil
}
