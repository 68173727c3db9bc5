package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/clinicadesk/clinica_backend/internal/service/visit"
	"github.com/clinicadesk/clinica_backend/pkg/clock"
	"github.com/clinicadesk/clinica_backend/pkg/email"
	"github.com/clinicadesk/clinica_backend/pkg/observability"
	redispkg "github.com/clinicadesk/clinica_backend/pkg/redis"
)

const (
	overdueLockKey    = "jobs:overdue_visits:lock"
	overdueLastRunKey = "jobs:overdue_visits:last_run"
)

// errSkipped means another replica holds the job lock.
var errSkipped = errors.New("overdue job already running elsewhere")

// jobState is where the job keeps its lock and the time of its last run.
type jobState interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
	LastRun(ctx context.Context, key string) (time.Time, bool, error)
	SetLastRun(ctx context.Context, key string, t time.Time) error
}

type redisJobState struct {
	rdb goredis.Cmdable
}

func (s redisJobState) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l, err := redispkg.Acquire(ctx, s.rdb, key, ttl)
	if err != nil {
		if errors.Is(err, redispkg.ErrLockHeld) {
			return nil, errSkipped
		}
		return nil, err
	}
	return l.Release, nil
}

func (s redisJobState) LastRun(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return t, true, nil
}

func (s redisJobState) SetLastRun(ctx context.Context, key string, t time.Time) error {
	return s.rdb.Set(ctx, key, t.UTC().Format(time.RFC3339Nano), 0).Err()
}

// OverdueJob runs overdue visit processing on one replica at a time and
// mails the newly overdue visits to the coordinators.
type OverdueJob struct {
	visits     visit.Service
	state      jobState
	mailer     email.Sender
	recipients []string
	lockTTL    time.Duration
	loc        *time.Location
	clinic     string
	clock      clock.Clock
	metrics    *observability.DomainMetrics
}

// OverdueResult summarises one run.
type OverdueResult struct {
	Entries []visit.OverdueEntry
	// Emailed counts entries that became overdue since the previous run.
	Emailed int
}

// Run processes overdue visits once. trigger labels the metrics ("cron", "cli").
func (j *OverdueJob) Run(ctx context.Context, trigger string) (*OverdueResult, error) {
	release, err := j.state.Lock(ctx, overdueLockKey, j.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "overdue_job: release lock failed", "err", err)
		}
	}()

	started := j.clock.Now()
	previous, hasPrevious, err := j.state.LastRun(ctx, overdueLastRunKey)
	if err != nil {
		slog.WarnContext(ctx, "overdue_job: read last run failed", "err", err)
	}

	entries, err := j.visits.ProcessOverdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("process overdue visits: %w", err)
	}
	if j.metrics != nil {
		j.metrics.OverdueProcessed(ctx, len(entries), trigger)
	}

	res := &OverdueResult{Entries: entries}
	fresh := entries
	if hasPrevious {
		fresh = overdueSince(entries, previous)
	}
	if len(fresh) > 0 && len(j.recipients) > 0 && j.mailer.Enabled() {
		if err := j.mail(ctx, fresh, started); err != nil {
			// Leave the last run untouched so the next run mails these again.
			return res, err
		}
		res.Emailed = len(fresh)
	}

	if err := j.state.SetLastRun(ctx, overdueLastRunKey, started); err != nil {
		slog.WarnContext(ctx, "overdue_job: store last run failed", "err", err)
	}
	slog.InfoContext(ctx, "overdue_job: finished",
		"trigger", trigger, "overdue", len(entries), "emailed", res.Emailed)
	return res, nil
}

func (j *OverdueJob) mail(ctx context.Context, entries []visit.OverdueEntry, at time.Time) error {
	rows := make([]email.OverdueRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, email.OverdueRow{
			Patient:      e.Patient,
			Professional: e.Professional,
			ScheduledAt:  e.ScheduledAt,
			Action:       e.Action,
		})
	}
	msg, err := email.BuildOverdueReportEmail(j.recipients, email.OverdueReportData{
		ClinicName:  j.clinic,
		GeneratedAt: at,
		Location:    j.loc,
		Rows:        rows,
	})
	if err != nil {
		return fmt.Errorf("build overdue report: %w", err)
	}
	if err := j.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send overdue report: %w", err)
	}
	return nil
}

// overdueSince keeps the entries whose time passed after since, plus visits
// recorded after since with a time already in the past. Anything else was
// reported by an earlier run.
func overdueSince(entries []visit.OverdueEntry, since time.Time) []visit.OverdueEntry {
	var out []visit.OverdueEntry
	for _, e := range entries {
		if e.ScheduledAt.After(since) || e.RecordedAt.After(since) {
			out = append(out, e)
		}
	}
	return out
}
