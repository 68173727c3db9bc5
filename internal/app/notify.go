package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/pkg/events"
	"github.com/clinicadesk/clinica_backend/pkg/observability"
	"github.com/clinicadesk/clinica_backend/pkg/sms"
)

type appointmentLister interface {
	List(ctx context.Context, f repo.AppointmentFilter) ([]*repo.Appointment, error)
}

type peopleDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*repo.Patient, error)
	GetProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error)
}

// appointmentNotifier texts the patient when an appointment is booked or
// cancelled. Events without a template are ignored.
type appointmentNotifier struct {
	appointments appointmentLister
	directory    peopleDirectory
	sender       sms.Sender
	templates    map[events.Event]string
	loc          *time.Location
	metrics      *observability.DomainMetrics
}

// notify sends the message for e about appointment id. It reports whether a
// message was handed to the sender.
func (n *appointmentNotifier) notify(ctx context.Context, e events.Event, id uuid.UUID) (bool, error) {
	templateID := n.templates[e]
	if templateID == "" || !n.sender.IsEnabled() {
		return false, nil
	}

	// Cancelled appointments are tombstoned, so look past the soft delete.
	items, err := n.appointments.List(ctx, repo.AppointmentFilter{IDs: []uuid.UUID{id}, WithDeleted: true, Limit: 1})
	if err != nil {
		return false, fmt.Errorf("load appointment: %w", err)
	}
	if len(items) == 0 {
		return false, fmt.Errorf("appointment %s: %w", id, repo.ErrNotFound)
	}
	a := items[0]

	patient, err := n.directory.GetPatient(ctx, a.PatientID)
	if err != nil {
		return false, fmt.Errorf("load patient: %w", err)
	}
	professional := "-"
	if p, err := n.directory.GetProfessional(ctx, a.ProfessionalID); err == nil {
		professional = p.Name
	}

	at := a.ScheduledAt.In(n.loc)
	err = n.sender.SendTemplate(ctx, patient.Phone, templateID,
		sms.Param{Key: "PATIENT", Value: patient.Name},
		sms.Param{Key: "PROFESSIONAL", Value: professional},
		sms.Param{Key: "DATE", Value: at.Format("02/01/2006")},
		sms.Param{Key: "TIME", Value: at.Format("15:04")},
	)
	if err != nil {
		return false, fmt.Errorf("send sms: %w", err)
	}
	return true, nil
}

func (n *appointmentNotifier) handle(ctx context.Context, e events.Event, id uuid.UUID) {
	sent, err := n.notify(ctx, e, id)
	if err != nil {
		slog.WarnContext(ctx, "sms_worker: notification failed", "event", e, "appointment_id", id, "err", err)
		if n.metrics != nil {
			n.metrics.NotificationFailed(ctx, string(e))
		}
		return
	}
	if sent {
		slog.InfoContext(ctx, "sms_worker: notification sent", "event", e, "appointment_id", id)
	}
}
