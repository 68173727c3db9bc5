package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"github.com/clinicadesk/clinica_backend/config"
	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/internal/service/directory"
	"github.com/clinicadesk/clinica_backend/internal/service/visit"
	"github.com/clinicadesk/clinica_backend/pkg/clock"
	"github.com/clinicadesk/clinica_backend/pkg/constants"
	"github.com/clinicadesk/clinica_backend/pkg/email"
	"github.com/clinicadesk/clinica_backend/pkg/events"
	"github.com/clinicadesk/clinica_backend/pkg/observability"
	"github.com/clinicadesk/clinica_backend/pkg/sms"
)

// JobModule provides the jobs that can also be run from the CLI.
var JobModule = fx.Module("jobs",
	fx.Provide(ProvideOverdueJob),
)

// WorkerModule registers the NATS event workers and the cron scheduler.
var WorkerModule = fx.Module("workers",
	JobModule,
	fx.Invoke(RegisterWorkers),
	fx.Invoke(RegisterCron),
)

type OverdueJobParams struct {
	fx.In

	Cfg     *config.Config
	Visits  visit.Service
	Redis   *redis.Client
	Mailer  *email.Client
	Clock   clock.Clock
	Metrics *observability.DomainMetrics `optional:"true"`
}

func ProvideOverdueJob(p OverdueJobParams) (*OverdueJob, error) {
	loc, err := p.Cfg.Scheduling.Location()
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(p.Cfg.Jobs.OverdueVisits.LockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OverdueJob{
		visits:     p.Visits,
		state:      redisJobState{rdb: p.Redis},
		mailer:     p.Mailer,
		recipients: p.Cfg.Jobs.OverdueVisits.ReportRecipients,
		lockTTL:    ttl,
		loc:        loc,
		clinic:     p.Cfg.Observability.ServiceName,
		clock:      p.Clock,
		metrics:    p.Metrics,
	}, nil
}

type WorkerParams struct {
	fx.In

	Lc        fx.Lifecycle
	Cfg       *config.Config
	NC        *nats.Conn
	DB        *repo.Client
	Directory directory.Service
	SMS       *sms.Client
	Metrics   *observability.DomainMetrics `optional:"true"`
}

func RegisterWorkers(p WorkerParams) error {
	if p.NC == nil {
		slog.Info("workers: NATS disabled, event workers not started")
		return nil
	}
	loc, err := p.Cfg.Scheduling.Location()
	if err != nil {
		return err
	}
	notifier := &appointmentNotifier{
		appointments: p.DB.Appointment,
		directory:    p.Directory,
		sender:       p.SMS,
		templates: map[events.Event]string{
			events.AppointmentCreated:   p.Cfg.Notifications.AppointmentCreatedTemplateID,
			events.AppointmentCancelled: p.Cfg.Notifications.AppointmentCancelledTemplateID,
		},
		loc:     loc,
		metrics: p.Metrics,
	}

	var subs []*nats.Subscription
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s, err := startSMSWorker(p.NC, notifier)
			if err != nil {
				return err
			}
			subs = append(subs, s...)
			a, err := startActivityWorker(p.NC, p.Metrics)
			if err != nil {
				return err
			}
			subs = append(subs, a)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			var errs []error
			for _, s := range subs {
				if err := s.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	})
	return nil
}

// ---------------------------------------------------------------------------
// sms_worker
// ---------------------------------------------------------------------------

func startSMSWorker(nc *nats.Conn, n *appointmentNotifier) ([]*nats.Subscription, error) {
	var subs []*nats.Subscription
	for _, e := range []events.Event{events.AppointmentCreated, events.AppointmentCancelled} {
		sub, err := nc.Subscribe(events.Pattern(e), func(msg *nats.Msg) {
			id, err := events.ParseID(msg)
			if err != nil {
				slog.Warn("sms_worker: bad payload", "err", err)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n.handle(ctx, e, id)
		})
		if err != nil {
			return subs, err
		}
		subs = append(subs, sub)
	}
	slog.Info("sms_worker: started")
	return subs, nil
}

// ---------------------------------------------------------------------------
// activity_worker
// ---------------------------------------------------------------------------

func startActivityWorker(nc *nats.Conn, metrics *observability.DomainMetrics) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(events.All(), func(msg *nats.Msg) {
		name := eventName(msg.Subject)
		slog.Info("activity_worker: event", "event", name, "id", strings.TrimSpace(string(msg.Data)))
		if metrics != nil {
			metrics.Event(context.Background(), name)
		}
	})
	if err != nil {
		return nil, err
	}
	slog.Info("activity_worker: started")
	return sub, nil
}

// eventName strips the prefix and the id from a subject:
// "clinica.visit.confirmed.<id>" becomes "visit.confirmed".
func eventName(subject string) string {
	parts := strings.Split(subject, ".")
	if len(parts) < 4 || parts[0] != constants.EventPrefix {
		return subject
	}
	return strings.Join(parts[1:len(parts)-1], ".")
}

// ---------------------------------------------------------------------------
// cron
// ---------------------------------------------------------------------------

func RegisterCron(lc fx.Lifecycle, cfg *config.Config, job *OverdueJob) error {
	jc := cfg.Jobs.OverdueVisits
	if !jc.Enabled {
		return nil
	}
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return err
	}

	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(jc.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), job.lockTTL)
		defer cancel()
		if _, err := job.Run(ctx, "cron"); err != nil {
			if errors.Is(err, errSkipped) {
				slog.Debug("overdue_job: skipped, lock held by another replica")
				return
			}
			slog.Error("overdue_job: run failed", "err", err)
		}
	}); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			slog.Info("cron: started", "overdue_visits", jc.Cron)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-c.Stop().Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}
