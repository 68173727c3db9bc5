package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/clinicadesk/clinica_backend/config"
	"github.com/clinicadesk/clinica_backend/internal/repo"
)

func NewRepoClient(ctx context.Context, cfg config.DatabaseConfig) (*repo.Client, error) {
	return NewRepoClientFromConfig(ctx, FromCentralConfig(cfg))
}

// NewRepoClientFromConfig opens Postgres and wraps it in ent's SQL driver,
// adding statement logging as configured.
func NewRepoClientFromConfig(ctx context.Context, cfg Config) (*repo.Client, error) {
	db, err := openSQLDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var drv dialect.Driver = entsql.OpenDB(dialect.Postgres, db)
	if cfg.EnableLogging {
		drv = dialect.DebugWithContext(drv, func(ctx context.Context, args ...any) {
			slog.DebugContext(ctx, "sql", "statement", fmt.Sprint(args...))
		})
	}
	if cfg.SlowQueryThreshold > 0 {
		drv = &slowQueryDriver{Driver: drv, threshold: cfg.SlowQueryThreshold}
	}
	return repo.NewClient(drv), nil
}

// Migrate applies pending schema migrations and returns their names.
func Migrate(ctx context.Context, client *repo.Client) ([]string, error) {
	return client.Migrate(ctx)
}

// slowQueryDriver warns about statements that run longer than threshold.
type slowQueryDriver struct {
	dialect.Driver
	threshold time.Duration
}

func (d *slowQueryDriver) Exec(ctx context.Context, query string, args, v any) error {
	defer d.observe(ctx, query, time.Now())
	return d.Driver.Exec(ctx, query, args, v)
}

func (d *slowQueryDriver) Query(ctx context.Context, query string, args, v any) error {
	defer d.observe(ctx, query, time.Now())
	return d.Driver.Query(ctx, query, args, v)
}

func (d *slowQueryDriver) observe(ctx context.Context, query string, start time.Time) {
	if took := time.Since(start); took >= d.threshold {
		slog.WarnContext(ctx, "slow query", "statement", query, "duration_ms", took.Milliseconds())
	}
}
