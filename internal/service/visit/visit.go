// Package visit tracks attendance for appointments: a visit is created from an
// appointment, then confirmed, cancelled or deleted while it is still pending.
package visit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/clinicadesk/clinica_backend/config"
	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/pkg/clock"
	"github.com/clinicadesk/clinica_backend/pkg/events"
)

var tracer = otel.Tracer("github.com/clinicadesk/clinica_backend/internal/service/visit")

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	AppointmentID uuid.UUID
	// ScheduledAt defaults to the appointment's own time.
	ScheduledAt *time.Time
	Confirmed   *bool
}

type UpdateRequest struct {
	ScheduledAt *time.Time
}

type ListRequest struct {
	AppointmentID  *uuid.UUID
	ProfessionalID *uuid.UUID
	PatientID      *uuid.UUID
	Date           *time.Time
	From           *time.Time
	To             *time.Time
	Confirmed      *bool
	// Overdue keeps only unconfirmed visits whose time has passed.
	Overdue bool
	Page    int
	PerPage int
}

type VisitView struct {
	*repo.Visit
	Status  Status `json:"status"`
	Overdue bool   `json:"overdue"`
}

// Options bound what clients may ask for.
type Options struct {
	Location *time.Location
	// MaxLead is how far ahead an explicit visit time may be.
	MaxLead time.Duration
}

func DefaultOptions() Options {
	return Options{Location: time.UTC, MaxLead: 24 * time.Hour}
}

func OptionsFromConfig(c config.SchedulingConfig) (Options, error) {
	loc, err := c.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{Location: loc, MaxLead: c.VisitMaxLead()}, nil
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type VisitStore interface {
	Create(ctx context.Context, v *repo.Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*repo.Visit, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*repo.Visit, error)
	List(ctx context.Context, f repo.VisitFilter) ([]*repo.Visit, error)
	Update(ctx context.Context, id uuid.UUID, u repo.VisitUpdate) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type AppointmentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repo.Appointment, error)
	List(ctx context.Context, f repo.AppointmentFilter) ([]*repo.Appointment, error)
}

type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*repo.Patient, error)
	GetProfessional(ctx context.Context, id uuid.UUID) (*repo.Professional, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*VisitView, error)
	CreateFromAppointment(ctx context.Context, appointmentID uuid.UUID) (*VisitView, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*VisitView, error)
	Confirm(ctx context.Context, id uuid.UUID) (*VisitView, error)
	Cancel(ctx context.Context, id uuid.UUID) (*VisitView, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Get(ctx context.Context, id uuid.UUID) (*VisitView, error)
	List(ctx context.Context, req ListRequest) ([]*VisitView, error)

	ProcessOverdue(ctx context.Context) ([]OverdueEntry, error)
	Statistics(ctx context.Context, start, end time.Time) (*Statistics, error)
	ProfessionalReport(ctx context.Context, professionalID uuid.UUID, start, end time.Time) (*ProfessionalReport, error)
	Report(ctx context.Context, start, end time.Time) (*Report, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type visitService struct {
	visits       VisitStore
	appointments AppointmentReader
	directory    Directory
	publisher    events.Publisher
	clock        clock.Clock
	opts         Options
}

func New(visits VisitStore, appointments AppointmentReader, dir Directory, pub events.Publisher, clk clock.Clock, opts Options) Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if clk == nil {
		clk = clock.System()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &visitService{
		visits:       visits,
		appointments: appointments,
		directory:    dir,
		publisher:    pub,
		clock:        clk,
		opts:         opts,
	}
}

func (s *visitService) Create(ctx context.Context, req CreateRequest) (*VisitView, error) {
	ctx, span := tracer.Start(ctx, "visit.Create")
	defer span.End()

	a, err := s.appointments.GetByID(ctx, req.AppointmentID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}

	_, err = s.visits.GetByAppointment(ctx, a.ID)
	switch {
	case err == nil:
		return nil, ErrVisitExists
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("get visit: %w", err)
	}

	now := s.clock.Now()
	v := &repo.Visit{AppointmentID: a.ID, ScheduledAt: a.ScheduledAt}
	if req.ScheduledAt != nil {
		if req.ScheduledAt.After(now.Add(s.opts.MaxLead)) {
			return nil, ErrTooFarAhead
		}
		v.ScheduledAt = req.ScheduledAt.UTC()
	}
	if req.Confirmed != nil {
		v.Confirmed = *req.Confirmed
	}

	if err := s.visits.Create(ctx, v); err != nil {
		if repo.IsDuplicate(err) {
			return nil, ErrVisitExists
		}
		return nil, fmt.Errorf("create visit: %w", err)
	}
	s.publisher.Publish(ctx, events.VisitCreated, v.ID)
	if v.Confirmed {
		s.publisher.Publish(ctx, events.VisitConfirmed, v.ID)
	}
	slog.InfoContext(ctx, "visit created", "visit_id", v.ID, "appointment_id", a.ID, "confirmed", v.Confirmed)

	return s.view(v, now), nil
}

func (s *visitService) CreateFromAppointment(ctx context.Context, appointmentID uuid.UUID) (*VisitView, error) {
	return s.Create(ctx, CreateRequest{AppointmentID: appointmentID})
}

func (s *visitService) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*VisitView, error) {
	ctx, span := tracer.Start(ctx, "visit.Update")
	defer span.End()

	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if v.Confirmed || !v.ScheduledAt.After(now) {
		return nil, ErrNotEditable
	}
	if req.ScheduledAt == nil {
		return s.view(v, now), nil
	}

	at := req.ScheduledAt.UTC()
	if !at.After(now) {
		return nil, ErrNotInFuture
	}
	if at.After(now.Add(s.opts.MaxLead)) {
		return nil, ErrTooFarAhead
	}
	if err := s.visits.Update(ctx, id, repo.VisitUpdate{ScheduledAt: &at}); err != nil {
		return nil, fmt.Errorf("update visit: %w", err)
	}
	v.ScheduledAt = at
	slog.InfoContext(ctx, "visit rescheduled", "visit_id", id, "scheduled_at", at)
	return s.view(v, now), nil
}

func (s *visitService) Confirm(ctx context.Context, id uuid.UUID) (*VisitView, error) {
	ctx, span := tracer.Start(ctx, "visit.Confirm")
	defer span.End()

	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Confirmed {
		return nil, ErrAlreadyConfirmed
	}
	if err := s.setConfirmed(ctx, v, true); err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events.VisitConfirmed, id)
	slog.InfoContext(ctx, "visit confirmed", "visit_id", id)
	return s.view(v, s.clock.Now()), nil
}

// Cancel clears the confirmation. Cancelling a pending visit is a no-op.
func (s *visitService) Cancel(ctx context.Context, id uuid.UUID) (*VisitView, error) {
	ctx, span := tracer.Start(ctx, "visit.Cancel")
	defer span.End()

	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Confirmed {
		if err := s.setConfirmed(ctx, v, false); err != nil {
			return nil, err
		}
		s.publisher.Publish(ctx, events.VisitCancelled, id)
		slog.InfoContext(ctx, "visit cancelled", "visit_id", id)
	}
	return s.view(v, s.clock.Now()), nil
}

func (s *visitService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "visit.Delete")
	defer span.End()

	v, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if v.Confirmed {
		return ErrConfirmedDelete
	}
	if err := s.visits.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrVisitNotFound
		}
		return fmt.Errorf("delete visit: %w", err)
	}
	s.publisher.Publish(ctx, events.VisitDeleted, id)
	slog.InfoContext(ctx, "visit deleted", "visit_id", id)
	return nil
}

func (s *visitService) Get(ctx context.Context, id uuid.UUID) (*VisitView, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(v, s.clock.Now()), nil
}

func (s *visitService) List(ctx context.Context, req ListRequest) ([]*VisitView, error) {
	now := s.clock.Now()
	f, err := s.filter(req, now)
	if err != nil {
		return nil, err
	}
	items, err := s.visits.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return s.views(items, now), nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func (s *visitService) filter(req ListRequest, now time.Time) (repo.VisitFilter, error) {
	page, perPage := req.Page, req.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	f := repo.VisitFilter{
		ProfessionalID: req.ProfessionalID,
		PatientID:      req.PatientID,
		Confirmed:      req.Confirmed,
		Limit:          perPage,
		Offset:         (page - 1) * perPage,
	}
	if req.AppointmentID != nil {
		f.AppointmentIDs = []uuid.UUID{*req.AppointmentID}
	}
	switch {
	case req.Date != nil:
		local := req.Date.In(s.opts.Location)
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.opts.Location)
		next := start.AddDate(0, 0, 1)
		f.From, f.Before = &start, &next
		f.Ascending = true
	case req.From != nil || req.To != nil:
		if req.From != nil && req.To != nil && req.From.After(*req.To) {
			return f, ErrInvalidPeriod
		}
		f.From, f.To = req.From, req.To
		f.Ascending = true
	}
	if req.Overdue {
		unconfirmed := false
		f.Confirmed = &unconfirmed
		if f.Before == nil || now.Before(*f.Before) {
			f.Before = &now
		}
	}
	return f, nil
}

func (s *visitService) load(ctx context.Context, id uuid.UUID) (*repo.Visit, error) {
	v, err := s.visits.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrVisitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get visit: %w", err)
	}
	return v, nil
}

func (s *visitService) setConfirmed(ctx context.Context, v *repo.Visit, confirmed bool) error {
	if err := s.visits.Update(ctx, v.ID, repo.VisitUpdate{Confirmed: &confirmed}); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrVisitNotFound
		}
		return fmt.Errorf("update visit: %w", err)
	}
	v.Confirmed = confirmed
	return nil
}

func (s *visitService) view(v *repo.Visit, now time.Time) *VisitView {
	return &VisitView{Visit: v, Status: DeriveStatus(v, now), Overdue: IsOverdue(v, now)}
}

func (s *visitService) views(items []*repo.Visit, now time.Time) []*VisitView {
	out := make([]*VisitView, len(items))
	for i, v := range items {
		out[i] = s.view(v, now)
	}
	return out
}
