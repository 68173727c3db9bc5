package visit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/pkg/apperr"
	"github.com/clinicadesk/clinica_backend/pkg/events"
)

// ActionMarkedMissed is recorded for every visit ProcessOverdue touches.
const ActionMarkedMissed = "marked_missed"

const unknownName = "unknown"

// OverdueEntry is one line of the overdue processing report.
type OverdueEntry struct {
	VisitID       uuid.UUID `json:"visit_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Patient       string    `json:"patient"`
	Professional  string    `json:"professional"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Action        string    `json:"action"`
	// RecordedAt is when the visit row was created.
	RecordedAt time.Time `json:"-"`
}

// ProcessOverdue finds every unconfirmed visit whose time has passed, pins it
// as unconfirmed and reports it. Running it again reports the same visits.
func (s *visitService) ProcessOverdue(ctx context.Context) ([]OverdueEntry, error) {
	ctx, span := tracer.Start(ctx, "visit.ProcessOverdue")
	defer span.End()

	now := s.clock.Now()
	unconfirmed := false
	items, err := s.visits.List(ctx, repo.VisitFilter{Confirmed: &unconfirmed, Before: &now, Ascending: true})
	if err != nil {
		return nil, fmt.Errorf("list overdue visits: %w", err)
	}

	names := newNameCache(s.directory)
	report := make([]OverdueEntry, 0, len(items))
	for _, v := range items {
		if !IsOverdue(v, now) {
			continue
		}
		if err := s.visits.Update(ctx, v.ID, repo.VisitUpdate{Confirmed: &unconfirmed}); err != nil {
			return report, fmt.Errorf("mark visit %s: %w", v.ID, err)
		}

		entry := OverdueEntry{
			VisitID:       v.ID,
			AppointmentID: v.AppointmentID,
			Patient:       unknownName,
			Professional:  unknownName,
			ScheduledAt:   v.ScheduledAt,
			Action:        ActionMarkedMissed,
			RecordedAt:    v.CreatedAt,
		}
		a, err := s.appointments.GetByID(ctx, v.AppointmentID)
		switch {
		case err == nil:
			if entry.Patient, err = names.patient(ctx, a.PatientID); err != nil {
				return report, err
			}
			if entry.Professional, err = names.professional(ctx, a.ProfessionalID); err != nil {
				return report, err
			}
		case !errors.Is(err, repo.ErrNotFound):
			return report, fmt.Errorf("get appointment: %w", err)
		}

		s.publisher.Publish(ctx, events.VisitOverdue, v.ID)
		report = append(report, entry)
	}

	span.SetAttributes(attribute.Int("visits.overdue", len(report)))
	slog.InfoContext(ctx, "overdue visits processed", "count", len(report))
	return report, nil
}

// nameCache resolves patient and professional names once per run.
type nameCache struct {
	dir           Directory
	patients      map[uuid.UUID]string
	professionals map[uuid.UUID]string
}

func newNameCache(dir Directory) *nameCache {
	return &nameCache{dir: dir, patients: map[uuid.UUID]string{}, professionals: map[uuid.UUID]string{}}
}

func (c *nameCache) patient(ctx context.Context, id uuid.UUID) (string, error) {
	if name, ok := c.patients[id]; ok {
		return name, nil
	}
	name := unknownName
	p, err := c.dir.GetPatient(ctx, id)
	switch {
	case err == nil:
		name = p.Name
	case !isNotFound(err):
		return "", fmt.Errorf("get patient: %w", err)
	}
	c.patients[id] = name
	return name, nil
}

func (c *nameCache) professional(ctx context.Context, id uuid.UUID) (string, error) {
	if name, ok := c.professionals[id]; ok {
		return name, nil
	}
	name := unknownName
	p, err := c.dir.GetProfessional(ctx, id)
	switch {
	case err == nil:
		name = p.Name
	case !isNotFound(err):
		return "", fmt.Errorf("get professional: %w", err)
	}
	c.professionals[id] = name
	return name, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, apperr.ErrNotFound)
}
