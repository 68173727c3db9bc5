package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicadesk/clinica_backend/internal/repo"
)

// Tally counts visits and how many of them were confirmed.
type Tally struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
}

type Statistics struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Total     int       `json:"total"`
	Confirmed int       `json:"confirmed"`
	Pending   int       `json:"pending"`
	Overdue   int       `json:"overdue"`
	// ConfirmationRate is the confirmed share in percent, two decimals.
	ConfirmationRate decimal.Decimal  `json:"confirmation_rate"`
	ByProfessional   map[string]Tally `json:"by_professional"`
	ByDay            map[string]Tally `json:"by_day"`
}

type ProfessionalReport struct {
	Professional *repo.Professional `json:"professional"`
	Start        time.Time          `json:"start"`
	End          time.Time          `json:"end"`
	Visits       []*VisitView       `json:"visits"`
	Total        int                `json:"total"`
	Confirmed    int                `json:"confirmed"`
}

type Report struct {
	Start       time.Time    `json:"start"`
	End         time.Time    `json:"end"`
	Visits      []*VisitView `json:"visits"`
	Statistics  *Statistics  `json:"statistics"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ConfirmationRate returns confirmed/total as a percentage rounded to two places.
func ConfirmationRate(confirmed, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(confirmed)*100).DivRound(decimal.NewFromInt(int64(total)), 2)
}

func (s *visitService) Statistics(ctx context.Context, start, end time.Time) (*Statistics, error) {
	ctx, span := tracer.Start(ctx, "visit.Statistics")
	defer span.End()

	items, err := s.period(ctx, start, end, nil)
	if err != nil {
		return nil, err
	}
	return s.statistics(ctx, start, end, items)
}

func (s *visitService) statistics(ctx context.Context, start, end time.Time, items []*repo.Visit) (*Statistics, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, v := range items {
		ids = append(ids, v.AppointmentID)
	}
	owners := map[uuid.UUID]uuid.UUID{}
	if len(ids) > 0 {
		appts, err := s.appointments.List(ctx, repo.AppointmentFilter{IDs: ids})
		if err != nil {
			return nil, fmt.Errorf("list appointments: %w", err)
		}
		for _, a := range appts {
			owners[a.ID] = a.ProfessionalID
		}
	}

	stats := &Statistics{
		Start:          start,
		End:            end,
		ByProfessional: map[string]Tally{},
		ByDay:          map[string]Tally{},
	}
	names := newNameCache(s.directory)
	now := s.clock.Now()
	for _, v := range items {
		name := unknownName
		if profID, ok := owners[v.AppointmentID]; ok {
			n, err := names.professional(ctx, profID)
			if err != nil {
				return nil, err
			}
			name = n
		}
		day := v.ScheduledAt.In(s.opts.Location).Format(time.DateOnly)

		stats.Total++
		byProf, byDay := stats.ByProfessional[name], stats.ByDay[day]
		byProf.Total++
		byDay.Total++
		switch {
		case v.Confirmed:
			stats.Confirmed++
			byProf.Confirmed++
			byDay.Confirmed++
		case IsOverdue(v, now):
			stats.Overdue++
		default:
			stats.Pending++
		}
		stats.ByProfessional[name], stats.ByDay[day] = byProf, byDay
	}
	stats.ConfirmationRate = ConfirmationRate(stats.Confirmed, stats.Total)
	return stats, nil
}

func (s *visitService) ProfessionalReport(ctx context.Context, professionalID uuid.UUID, start, end time.Time) (*ProfessionalReport, error) {
	p, err := s.directory.GetProfessional(ctx, professionalID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProfessionalNotFound
		}
		return nil, fmt.Errorf("get professional: %w", err)
	}
	items, err := s.period(ctx, start, end, &professionalID)
	if err != nil {
		return nil, err
	}

	r := &ProfessionalReport{
		Professional: p,
		Start:        start,
		End:          end,
		Visits:       s.views(items, s.clock.Now()),
		Total:        len(items),
	}
	for _, v := range items {
		if v.Confirmed {
			r.Confirmed++
		}
	}
	return r, nil
}

func (s *visitService) Report(ctx context.Context, start, end time.Time) (*Report, error) {
	ctx, span := tracer.Start(ctx, "visit.Report")
	defer span.End()

	items, err := s.period(ctx, start, end, nil)
	if err != nil {
		return nil, err
	}
	stats, err := s.statistics(ctx, start, end, items)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return &Report{
		Start:       start,
		End:         end,
		Visits:      s.views(items, now),
		Statistics:  stats,
		GeneratedAt: now,
	}, nil
}

func (s *visitService) period(ctx context.Context, start, end time.Time, professionalID *uuid.UUID) ([]*repo.Visit, error) {
	if start.After(end) {
		return nil, ErrInvalidPeriod
	}
	items, err := s.visits.List(ctx, repo.VisitFilter{
		ProfessionalID: professionalID,
		From:           &start,
		To:             &end,
		Ascending:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return items, nil
}
