package main

import (
	"github.com/spf13/cobra"

	"github.com/zoonosys/zoonosys-api/internal/core/service"
	"github.com/zoonosys/zoonosys-api/pkg/logger"
)

// NewSeedRolesCmd creates the seed-roles subcommand.
func NewSeedRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-roles",
		Short: "Create the fixed role set",
		Long:  `Create ROLE_CUSTOMER and ROLE_ADMINISTRATOR if they do not exist yet. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, _, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			return service.SeedRoles(ctx, st.roles, logger.Component("seeder"))
		},
	}
}
