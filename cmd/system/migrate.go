package system

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicadesk/clinica_backend/config"
	"github.com/clinicadesk/clinica_backend/pkg/authorize"
	"github.com/clinicadesk/clinica_backend/pkg/database"
)

func NewMigrateCommand() *cobra.Command {
	var skipPolicies bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seed the default RBAC policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			fmt.Println("Running schema migrations.")
			client, err := database.NewRepoClient(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer client.Close()

			applied, err := database.Migrate(ctx, client)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			for _, name := range applied {
				fmt.Printf("  applied %s\n", name)
			}

			if skipPolicies {
				fmt.Println("Migrations executed successfully.")
				return nil
			}

			fmt.Println("Seeding Casbin policies.")
			enforcer, cleanup, err := authorize.NewEnforcer(cfg.Authorization.CasbinModelPath, database.NewDSN(cfg.Database), false)
			if err != nil {
				return fmt.Errorf("failed to create enforcer: %w", err)
			}
			defer cleanup(context.Background())

			auth, err := authorize.NewAuthorization(enforcer)
			if err != nil {
				return fmt.Errorf("failed to create authorization: %w", err)
			}
			slog.Info("seeding default policies")
			if err := authorize.SeedDefaultPolicies(ctx, auth); err != nil {
				return fmt.Errorf("failed to seed policies: %w", err)
			}

			fmt.Println("Migrations executed successfully.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPolicies, "skip-policies", false, "Only apply schema migrations")

	return cmd
}
