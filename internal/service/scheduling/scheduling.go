// Package scheduling books, edits and cancels appointments and derives their status.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/pkg/clock"
	"github.com/clinicadesk/clinica_backend/pkg/events"
)

var tracer = otel.Tracer("github.com/clinicadesk/clinica_backend/internal/service/scheduling")

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	ScheduledAt    time.Time
	IsRecurring    bool
	Weekday        string
}

// UpdateRequest carries the fields to change; nil means unchanged.
type UpdateRequest struct {
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
	ScheduledAt    *time.Time
	IsRecurring    *bool
	Weekday        *string
}

type ListRequest struct {
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
	// Date restricts the list to one calendar day in the clinic's timezone.
	Date      *time.Time
	From      *time.Time
	To        *time.Time
	Recurring *bool
	Page      int
	PerPage   int
}

// AppointmentView is an appointment with its status at the time it was read.
type AppointmentView struct {
	*repo.Appointment
	Status Status `json:"status"`
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type AppointmentStore interface {
	Create(ctx context.Context, a *repo.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*repo.Appointment, error)
	List(ctx context.Context, f repo.AppointmentFilter) ([]*repo.Appointment, error)
	ExistsAt(ctx context.Context, professionalID uuid.UUID, at time.Time, excludeID *uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, u repo.AppointmentUpdate) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type VisitStore interface {
	Create(ctx context.Context, v *repo.Visit) error
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*repo.Visit, error)
	Update(ctx context.Context, id uuid.UUID, u repo.VisitUpdate) error
	ConfirmedAppointments(ctx context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

// Directory resolves the people an appointment refers to.
type Directory interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	ProfessionalExists(ctx context.Context, id uuid.UUID) (bool, error)
	GetProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*AppointmentView, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*AppointmentView, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	// Confirm records attendance by creating or confirming the appointment's visit.
	Confirm(ctx context.Context, id uuid.UUID) (*repo.Visit, error)

	Get(ctx context.Context, id uuid.UUID) (*AppointmentView, error)
	Status(ctx context.Context, a *repo.Appointment) (Status, error)
	List(ctx context.Context, req ListRequest) ([]*AppointmentView, error)
	Today(ctx context.Context) ([]*AppointmentView, error)
	Upcoming(ctx context.Context, days int) ([]*AppointmentView, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, req ListRequest) ([]*AppointmentView, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, req ListRequest) ([]*AppointmentView, error)
	Recurring(ctx context.Context, req ListRequest) ([]*AppointmentView, error)

	Statistics(ctx context.Context, start, end time.Time) (*Statistics, error)
	Options() Options
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type schedulingService struct {
	appointments AppointmentStore
	visits       VisitStore
	directory    Directory
	publisher    events.Publisher
	clock        clock.Clock
	opts         Options
}

func New(appointments AppointmentStore, visits VisitStore, dir Directory, pub events.Publisher, clk clock.Clock, opts Options) Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if clk == nil {
		clk = clock.System()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &schedulingService{
		appointments: appointments,
		visits:       visits,
		directory:    dir,
		publisher:    pub,
		clock:        clk,
		opts:         opts,
	}
}

func (s *schedulingService) Options() Options { return s.opts }

func (s *schedulingService) Create(ctx context.Context, req CreateRequest) (*AppointmentView, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Create")
	defer span.End()

	if err := s.checkPeople(ctx, &req.PatientID, &req.ProfessionalID); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.opts.checkSlot(req.ScheduledAt, now); err != nil {
		return nil, err
	}

	var weekday *string
	if req.IsRecurring {
		w := normalizeWeekday(req.Weekday)
		if w == "" {
			w = WeekdayToken(req.ScheduledAt, s.opts.Location)
		}
		if !ValidWeekday(w) {
			return nil, ErrInvalidWeekday
		}
		weekday = &w
	} else if req.Weekday != "" {
		w := normalizeWeekday(req.Weekday)
		if !ValidWeekday(w) {
			return nil, ErrInvalidWeekday
		}
		weekday = &w
	}

	taken, err := s.appointments.ExistsAt(ctx, req.ProfessionalID, req.ScheduledAt, nil)
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return nil, ErrSlotTaken
	}

	a := &repo.Appointment{
		PatientID:      req.PatientID,
		ProfessionalID: req.ProfessionalID,
		ScheduledAt:    req.ScheduledAt.UTC(),
		IsRecurring:    req.IsRecurring,
		Weekday:        weekday,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		if repo.IsDuplicate(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	s.publisher.Publish(ctx, events.AppointmentCreated, a.ID)

	siblings := 0
	if a.IsRecurring {
		siblings = s.createSeries(ctx, a)
	}
	span.SetAttributes(
		attribute.String("appointment.id", a.ID.String()),
		attribute.Int("appointment.siblings", siblings),
	)
	slog.InfoContext(ctx, "appointment created",
		"appointment_id", a.ID,
		"professional_id", a.ProfessionalID,
		"scheduled_at", a.ScheduledAt,
		"recurring_siblings", siblings,
	)

	return s.view(a, false, now), nil
}

// createSeries books the weekly copies of a recurring appointment. Slots that
// are already taken are skipped; the primary stays booked either way.
func (s *schedulingService) createSeries(ctx context.Context, primary *repo.Appointment) int {
	created := 0
	for _, at := range WeeklyOccurrences(primary.ScheduledAt, s.opts.RecurrenceMonths, s.opts.Location) {
		taken, err := s.appointments.ExistsAt(ctx, primary.ProfessionalID, at, nil)
		if err != nil {
			slog.WarnContext(ctx, "recurring slot check failed", "scheduled_at", at, "error", err)
			continue
		}
		if taken {
			slog.DebugContext(ctx, "recurring slot taken, skipped", "scheduled_at", at)
			continue
		}
		sibling := &repo.Appointment{
			PatientID:      primary.PatientID,
			ProfessionalID: primary.ProfessionalID,
			ScheduledAt:    at.UTC(),
			IsRecurring:    true,
			Weekday:        primary.Weekday,
		}
		if err := s.appointments.Create(ctx, sibling); err != nil {
			if !repo.IsDuplicate(err) {
				slog.WarnContext(ctx, "recurring appointment not created", "scheduled_at", at, "error", err)
			}
			continue
		}
		s.publisher.Publish(ctx, events.AppointmentCreated, sibling.ID)
		created++
	}
	return created
}

func (s *schedulingService) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*AppointmentView, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Update")
	defer span.End()

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.ensureChangeable(ctx, current, now, ErrNotEditable); err != nil {
		return nil, err
	}
	if err := s.checkPeople(ctx, req.PatientID, req.ProfessionalID); err != nil {
		return nil, err
	}

	u := repo.AppointmentUpdate{
		PatientID:      req.PatientID,
		ProfessionalID: req.ProfessionalID,
		IsRecurring:    req.IsRecurring,
	}
	if req.Weekday != nil {
		w := normalizeWeekday(*req.Weekday)
		if !ValidWeekday(w) {
			return nil, ErrInvalidWeekday
		}
		u.Weekday = &w
	}

	at := current.ScheduledAt
	if req.ScheduledAt != nil {
		if err := s.opts.checkSlot(*req.ScheduledAt, now); err != nil {
			return nil, err
		}
		at = req.ScheduledAt.UTC()
		u.ScheduledAt = &at
		w := WeekdayToken(at, s.opts.Location)
		u.Weekday = &w
	}
	if req.IsRecurring != nil && *req.IsRecurring && current.Weekday == nil && u.Weekday == nil {
		w := WeekdayToken(at, s.opts.Location)
		u.Weekday = &w
	}

	professionalID := current.ProfessionalID
	if req.ProfessionalID != nil {
		professionalID = *req.ProfessionalID
	}
	if professionalID != current.ProfessionalID || !at.Equal(current.ScheduledAt) {
		taken, err := s.appointments.ExistsAt(ctx, professionalID, at, &id)
		if err != nil {
			return nil, fmt.Errorf("check slot: %w", err)
		}
		if taken {
			return nil, ErrSlotTaken
		}
	}

	if err := s.appointments.Update(ctx, id, u); err != nil {
		switch {
		case repo.IsDuplicate(err):
			return nil, ErrSlotTaken
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	s.publisher.Publish(ctx, events.AppointmentUpdated, id)
	slog.InfoContext(ctx, "appointment updated", "appointment_id", id)

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(updated, false, now), nil
}

func (s *schedulingService) Cancel(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "scheduling.Cancel")
	defer span.End()

	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureChangeable(ctx, a, s.clock.Now(), ErrNotCancellable); err != nil {
		return err
	}
	if err := s.appointments.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("cancel appointment: %w", err)
	}
	s.publisher.Publish(ctx, events.AppointmentCancelled, id)
	slog.InfoContext(ctx, "appointment cancelled", "appointment_id", id)
	return nil
}

func (s *schedulingService) Confirm(ctx context.Context, id uuid.UUID) (*repo.Visit, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Confirm")
	defer span.End()

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	v, err := s.visits.GetByAppointment(ctx, id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		v = &repo.Visit{AppointmentID: a.ID, ScheduledAt: a.ScheduledAt, Confirmed: true}
		if err := s.visits.Create(ctx, v); err != nil {
			if repo.IsDuplicate(err) {
				return nil, ErrAlreadyConfirmed
			}
			return nil, fmt.Errorf("create visit: %w", err)
		}
		s.publisher.Publish(ctx, events.VisitCreated, v.ID)
	case err != nil:
		return nil, fmt.Errorf("get visit: %w", err)
	case v.Confirmed:
		return nil, ErrAlreadyConfirmed
	default:
		confirmed := true
		if err := s.visits.Update(ctx, v.ID, repo.VisitUpdate{Confirmed: &confirmed}); err != nil {
			return nil, fmt.Errorf("confirm visit: %w", err)
		}
		v.Confirmed = true
	}

	s.publisher.Publish(ctx, events.VisitConfirmed, v.ID)
	slog.InfoContext(ctx, "attendance confirmed", "appointment_id", id, "visit_id", v.ID)
	return v, nil
}

func (s *schedulingService) Get(ctx context.Context, id uuid.UUID) (*AppointmentView, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []*repo.Appointment{a})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *schedulingService) Status(ctx context.Context, a *repo.Appointment) (Status, error) {
	confirmed, err := s.visits.ConfirmedAppointments(ctx, []uuid.UUID{a.ID})
	if err != nil {
		return "", fmt.Errorf("load visits: %w", err)
	}
	return DeriveStatus(a.ScheduledAt, confirmed[a.ID], s.clock.Now(), s.opts.ConfirmationWindow), nil
}

func (s *schedulingService) List(ctx context.Context, req ListRequest) ([]*AppointmentView, error) {
	f, err := s.filter(req)
	if err != nil {
		return nil, err
	}
	items, err := s.appointments.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return s.views(ctx, items)
}

func (s *schedulingService) Today(ctx context.Context) ([]*AppointmentView, error) {
	now := s.clock.Now()
	return s.List(ctx, ListRequest{Date: &now, PerPage: maxPerPage})
}

func (s *schedulingService) Upcoming(ctx context.Context, days int) ([]*AppointmentView, error) {
	if days == 0 {
		days = 7
	}
	if days < 1 || days > 90 {
		return nil, ErrInvalidDays
	}
	from := s.clock.Now()
	to := from.AddDate(0, 0, days)
	return s.List(ctx, ListRequest{From: &from, To: &to, PerPage: maxPerPage})
}

func (s *schedulingService) ListByPatient(ctx context.Context, patientID uuid.UUID, req ListRequest) ([]*AppointmentView, error) {
	if err := s.checkPeople(ctx, &patientID, nil); err != nil {
		return nil, err
	}
	req.PatientID = &patientID
	return s.List(ctx, req)
}

func (s *schedulingService) ListByProfessional(ctx context.Context, professionalID uuid.UUID, req ListRequest) ([]*AppointmentView, error) {
	if err := s.checkPeople(ctx, nil, &professionalID); err != nil {
		return nil, err
	}
	req.ProfessionalID = &professionalID
	return s.List(ctx, req)
}

func (s *schedulingService) Recurring(ctx context.Context, req ListRequest) ([]*AppointmentView, error) {
	recurring := true
	req.Recurring = &recurring
	return s.List(ctx, req)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func (s *schedulingService) filter(req ListRequest) (repo.AppointmentFilter, error) {
	page, perPage := req.Page, req.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	f := repo.AppointmentFilter{
		PatientID:      req.PatientID,
		ProfessionalID: req.ProfessionalID,
		Recurring:      req.Recurring,
		Limit:          perPage,
		Offset:         (page - 1) * perPage,
	}
	switch {
	case req.Date != nil:
		start, next := s.opts.dayBounds(*req.Date)
		f.From, f.Before = &start, &next
		f.Ascending = true
	case req.From != nil || req.To != nil:
		if req.From != nil && req.To != nil && req.From.After(*req.To) {
			return f, ErrInvalidPeriod
		}
		f.From, f.To = req.From, req.To
		f.Ascending = true
	}
	return f, nil
}

func (s *schedulingService) load(ctx context.Context, id uuid.UUID) (*repo.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

// ensureChangeable rejects appointments whose time has passed or that already
// have a visit; stateErr names the attempted change.
func (s *schedulingService) ensureChangeable(ctx context.Context, a *repo.Appointment, now time.Time, stateErr error) error {
	if !a.ScheduledAt.After(now) {
		return stateErr
	}
	_, err := s.visits.GetByAppointment(ctx, a.ID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("get visit: %w", err)
	default:
		return stateErr
	}
}

// checkPeople verifies the referenced patient and professional; nil ids are skipped.
func (s *schedulingService) checkPeople(ctx context.Context, patientID, professionalID *uuid.UUID) error {
	if patientID != nil {
		ok, err := s.directory.PatientExists(ctx, *patientID)
		if err != nil {
			return fmt.Errorf("check patient: %w", err)
		}
		if !ok {
			return ErrPatientNotFound
		}
	}
	if professionalID != nil {
		ok, err := s.directory.ProfessionalExists(ctx, *professionalID)
		if err != nil {
			return fmt.Errorf("check professional: %w", err)
		}
		if !ok {
			return ErrProfessionalNotFound
		}
	}
	return nil
}

func (s *schedulingService) view(a *repo.Appointment, attended bool, now time.Time) *AppointmentView {
	return &AppointmentView{
		Appointment: a,
		Status:      DeriveStatus(a.ScheduledAt, attended, now, s.opts.ConfirmationWindow),
	}
}

func (s *schedulingService) views(ctx context.Context, items []*repo.Appointment) ([]*AppointmentView, error) {
	if len(items) == 0 {
		return []*AppointmentView{}, nil
	}
	ids := make([]uuid.UUID, len(items))
	for i, a := range items {
		ids[i] = a.ID
	}
	confirmed, err := s.visits.ConfirmedAppointments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load visits: %w", err)
	}
	now := s.clock.Now()
	out := make([]*AppointmentView, len(items))
	for i, a := range items {
		out[i] = s.view(a, confirmed[a.ID], now)
	}
	return out, nil
}
