package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/clinicadesk/clinica_backend/config"
	"github.com/clinicadesk/clinica_backend/internal/app"
	"github.com/clinicadesk/clinica_backend/pkg/logs"
)

func NewOverdueCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "Process overdue visits and mail the coordination report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return err
			}
			logger, flush := logs.New(cfg)
			defer flush()
			slog.SetDefault(logger)

			var job *app.OverdueJob
			fxApp := fx.New(
				fx.Supply(cfg),
				app.InfraModule,
				app.ServiceModule,
				app.JobModule,
				fx.Populate(&job),
				fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
			)
			if err := fxApp.Err(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := fxApp.Start(ctx); err != nil {
				return err
			}
			defer func() {
				if err := fxApp.Stop(context.Background()); err != nil {
					slog.Warn("jobs: shutdown failed", "err", err)
				}
			}()

			res, err := job.Run(ctx, "cli")
			if err != nil {
				return fmt.Errorf("overdue job: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"processed": len(res.Entries),
				"emailed":   res.Emailed,
				"entries":   res.Entries,
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Maximum run time")

	return cmd
}
