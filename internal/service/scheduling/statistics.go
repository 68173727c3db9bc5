package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/pkg/apperr"
)

// Statistics summarises the live appointments of a period.
type Statistics struct {
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	Total          int            `json:"total"`
	ByStatus       map[Status]int `json:"by_status"`
	ByProfessional map[string]int `json:"by_professional"`
	ByDay          map[string]int `json:"by_day"`
}

// unknownProfessional labels appointments whose professional record is gone.
const unknownProfessional = "unknown"

func (s *schedulingService) Statistics(ctx context.Context, start, end time.Time) (*Statistics, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Statistics")
	defer span.End()

	if start.After(end) {
		return nil, ErrInvalidPeriod
	}
	items, err := s.appointments.List(ctx, repo.AppointmentFilter{From: &start, To: &end, Ascending: true})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	ids := make([]uuid.UUID, len(items))
	for i, a := range items {
		ids[i] = a.ID
	}
	confirmed, err := s.visits.ConfirmedAppointments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load visits: %w", err)
	}

	stats := &Statistics{
		Start:          start,
		End:            end,
		ByStatus:       make(map[Status]int, len(AllStatuses)),
		ByProfessional: map[string]int{},
		ByDay:          map[string]int{},
	}
	for _, st := range AllStatuses {
		stats.ByStatus[st] = 0
	}

	names := map[uuid.UUID]string{}
	now := s.clock.Now()
	for _, a := range items {
		name, ok := names[a.ProfessionalID]
		if !ok {
			name, err = s.professionalName(ctx, a.ProfessionalID)
			if err != nil {
				return nil, err
			}
			names[a.ProfessionalID] = name
		}

		stats.Total++
		stats.ByStatus[DeriveStatus(a.ScheduledAt, confirmed[a.ID], now, s.opts.ConfirmationWindow)]++
		stats.ByProfessional[name]++
		stats.ByDay[s.opts.dayKey(a.ScheduledAt)]++
	}
	span.SetAttributes(attribute.Int("appointments.total", stats.Total))
	return stats, nil
}

func (s *schedulingService) professionalName(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := s.directory.GetProfessional(ctx, id)
	if err == nil {
		return p.Name, nil
	}
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, apperr.ErrNotFound) {
		return unknownProfessional, nil
	}
	return "", fmt.Errorf("get professional: %w", err)
}
