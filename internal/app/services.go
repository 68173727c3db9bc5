package app

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/clinicadesk/clinica_backend/config"
	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/internal/service/directory"
	"github.com/clinicadesk/clinica_backend/internal/service/scheduling"
	"github.com/clinicadesk/clinica_backend/internal/service/visit"
	"github.com/clinicadesk/clinica_backend/pkg/clock"
	"github.com/clinicadesk/clinica_backend/pkg/events"
	pasetotoken "github.com/clinicadesk/clinica_backend/pkg/paseto"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideDirectoryService,
		ProvideSchedulingService,
		ProvideVisitService,
		ProvidePasetoManager,
	),
)

func ProvideDirectoryService(db *repo.Client, rdb *redis.Client, cfg *config.Config) directory.Service {
	svc := directory.New(db.Patient, db.Professional)
	if cfg.Directory.CacheEnabled {
		ttl := time.Duration(cfg.Directory.CacheTTLSeconds) * time.Second
		svc = directory.NewCached(svc, rdb, ttl)
	}
	return svc
}

func ProvideSchedulingService(
	db *repo.Client,
	dir directory.Service,
	pub events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) (scheduling.Service, error) {
	opts, err := scheduling.OptionsFromConfig(cfg.Scheduling)
	if err != nil {
		return nil, err
	}
	return scheduling.New(db.Appointment, db.Visit, dir, pub, clk, opts), nil
}

func ProvideVisitService(
	db *repo.Client,
	dir directory.Service,
	pub events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) (visit.Service, error) {
	opts, err := visit.OptionsFromConfig(cfg.Scheduling)
	if err != nil {
		return nil, err
	}
	return visit.New(db.Visit, db.Appointment, dir, pub, clk, opts), nil
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}
