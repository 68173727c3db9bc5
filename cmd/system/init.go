package system

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicadesk/clinica_backend/config"
	"github.com/clinicadesk/clinica_backend/pkg/database"
)

func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configured databases if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Server.TimeoutSeconds)*time.Second)
			defer cancel()

			fmt.Println("Initializing databases...")
			created, err := database.InitializeDatabases(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize databases: %w", err)
			}
			if len(created) == 0 {
				fmt.Println("All databases already exist.")
				return nil
			}
			fmt.Printf("Created databases: %v\n", created)
			return nil
		},
	}

	return cmd
}
