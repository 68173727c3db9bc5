// Package repotest provides an in-memory stand-in for the Postgres
// repositories, honouring the same soft-delete and uniqueness rules.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicadesk/clinica_backend/internal/repo"
)

type Store struct {
	mu            sync.Mutex
	appointments  map[uuid.UUID]*repo.Appointment
	visits        map[uuid.UUID]*repo.Visit
	patients      map[uuid.UUID]*repo.Patient
	professionals map[uuid.UUID]*repo.Professional

	// FailCreate, when set, makes Appointment Create fail with ErrDuplicate for
	// the rows it returns true for, simulating a concurrent writer winning the slot.
	FailCreate func(a *repo.Appointment) bool
}

func New() *Store {
	return &Store{
		appointments:  map[uuid.UUID]*repo.Appointment{},
		visits:        map[uuid.UUID]*repo.Visit{},
		patients:      map[uuid.UUID]*repo.Patient{},
		professionals: map[uuid.UUID]*repo.Professional{},
	}
}

func (s *Store) Appointments() *Appointments { return &Appointments{s} }
func (s *Store) Visits() *Visits             { return &Visits{s} }
func (s *Store) Patients() *Patients         { return &Patients{s} }
func (s *Store) Professionals() *Professionals {
	return &Professionals{s}
}

// AddPatient seeds a patient and returns it.
func (s *Store) AddPatient(name string) *repo.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &repo.Patient{ID: uuid.New(), Name: name, PaymentType: repo.PaymentPrivate}
	s.patients[p.ID] = p
	return p
}

// AddProfessional seeds a professional and returns it.
func (s *Store) AddProfessional(name string) *repo.Professional {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &repo.Professional{ID: uuid.New(), Name: name}
	s.professionals[p.ID] = p
	return p
}

// PutAppointment stores a directly, bypassing validation. Used to seed past rows.
func (s *Store) PutAppointment(a *repo.Appointment) *repo.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	s.appointments[a.ID] = &cp
	return a
}

// PutVisit stores v directly, bypassing validation.
func (s *Store) PutVisit(v *repo.Visit) *repo.Visit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	cp := *v
	s.visits[v.ID] = &cp
	return v
}

// AllAppointments returns every appointment, soft-deleted included.
func (s *Store) AllAppointments() []*repo.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repo.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

// AllVisits returns every visit, soft-deleted included.
func (s *Store) AllVisits() []*repo.Visit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repo.Visit, 0, len(s.visits))
	for _, v := range s.visits {
		cp := *v
		out = append(out, &cp)
	}
	return out
}

// ---------------------------------------------------------------------------
// Appointments
// ---------------------------------------------------------------------------

type Appointments struct{ s *Store }

func (r *Appointments) Create(_ context.Context, a *repo.Appointment) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreate != nil && s.FailCreate(a) {
		return repo.ErrDuplicate
	}
	for _, o := range s.appointments {
		if o.DeletedAt == nil && o.ProfessionalID == a.ProfessionalID && o.ScheduledAt.Equal(a.ScheduledAt) {
			return repo.ErrDuplicate
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (r *Appointments) GetByID(_ context.Context, id uuid.UUID) (*repo.Appointment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok || a.DeletedAt != nil {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *Appointments) List(_ context.Context, f repo.AppointmentFilter) ([]*repo.Appointment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*repo.Appointment
	for _, a := range s.appointments {
		if a.DeletedAt != nil && !f.WithDeleted {
			continue
		}
		if len(f.IDs) > 0 && !containsID(f.IDs, a.ID) {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.ProfessionalID != nil && a.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if !inRange(a.ScheduledAt, f.From, f.To, f.Before) {
			continue
		}
		if f.Recurring != nil && a.IsRecurring != *f.Recurring {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *Appointments) ExistsAt(_ context.Context, professionalID uuid.UUID, at time.Time, excludeID *uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appointments {
		if a.DeletedAt != nil || a.ProfessionalID != professionalID || !a.ScheduledAt.Equal(at) {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (r *Appointments) Update(_ context.Context, id uuid.UUID, u repo.AppointmentUpdate) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok || a.DeletedAt != nil {
		return repo.ErrNotFound
	}
	next := *a
	if u.PatientID != nil {
		next.PatientID = *u.PatientID
	}
	if u.ProfessionalID != nil {
		next.ProfessionalID = *u.ProfessionalID
	}
	if u.ScheduledAt != nil {
		next.ScheduledAt = *u.ScheduledAt
	}
	if u.IsRecurring != nil {
		next.IsRecurring = *u.IsRecurring
	}
	if u.Weekday != nil {
		w := *u.Weekday
		next.Weekday = &w
	}
	for _, o := range s.appointments {
		if o.ID != id && o.DeletedAt == nil && o.ProfessionalID == next.ProfessionalID && o.ScheduledAt.Equal(next.ScheduledAt) {
			return repo.ErrDuplicate
		}
	}
	next.UpdatedAt = time.Now().UTC()
	s.appointments[id] = &next
	return nil
}

func (r *Appointments) SoftDelete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok || a.DeletedAt != nil {
		return repo.ErrNotFound
	}
	now := time.Now().UTC()
	a.DeletedAt = &now
	return nil
}

// ---------------------------------------------------------------------------
// Visits
// ---------------------------------------------------------------------------

type Visits struct{ s *Store }

func (r *Visits) Create(_ context.Context, v *repo.Visit) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.visits {
		if o.DeletedAt == nil && o.AppointmentID == v.AppointmentID {
			return repo.ErrDuplicate
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	cp := *v
	s.visits[v.ID] = &cp
	return nil
}

func (r *Visits) GetByID(_ context.Context, id uuid.UUID) (*repo.Visit, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[id]
	if !ok || v.DeletedAt != nil {
		return nil, repo.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *Visits) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*repo.Visit, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.visits {
		if v.DeletedAt == nil && v.AppointmentID == appointmentID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *Visits) List(_ context.Context, f repo.VisitFilter) ([]*repo.Visit, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*repo.Visit
	for _, v := range s.visits {
		if v.DeletedAt != nil {
			continue
		}
		if len(f.IDs) > 0 && !containsID(f.IDs, v.ID) {
			continue
		}
		if len(f.AppointmentIDs) > 0 && !containsID(f.AppointmentIDs, v.AppointmentID) {
			continue
		}
		if f.ProfessionalID != nil || f.PatientID != nil {
			a, ok := s.appointments[v.AppointmentID]
			if !ok || a.DeletedAt != nil {
				continue
			}
			if f.ProfessionalID != nil && a.ProfessionalID != *f.ProfessionalID {
				continue
			}
			if f.PatientID != nil && a.PatientID != *f.PatientID {
				continue
			}
		}
		if !inRange(v.ScheduledAt, f.From, f.To, f.Before) {
			continue
		}
		if f.Confirmed != nil && v.Confirmed != *f.Confirmed {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *Visits) ConfirmedAppointments(_ context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]bool{}
	for _, v := range s.visits {
		if v.DeletedAt == nil && v.Confirmed && containsID(appointmentIDs, v.AppointmentID) {
			out[v.AppointmentID] = true
		}
	}
	return out, nil
}

func (r *Visits) Update(_ context.Context, id uuid.UUID, u repo.VisitUpdate) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[id]
	if !ok || v.DeletedAt != nil {
		return repo.ErrNotFound
	}
	if u.ScheduledAt != nil {
		v.ScheduledAt = *u.ScheduledAt
	}
	if u.Confirmed != nil {
		v.Confirmed = *u.Confirmed
	}
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Visits) SoftDelete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[id]
	if !ok || v.DeletedAt != nil {
		return repo.ErrNotFound
	}
	now := time.Now().UTC()
	v.DeletedAt = &now
	return nil
}

// ---------------------------------------------------------------------------
// Directory
// ---------------------------------------------------------------------------

type Patients struct{ s *Store }

func (r *Patients) GetByID(_ context.Context, id uuid.UUID) (*repo.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *Patients) List(_ context.Context, f repo.DirectoryFilter) ([]*repo.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*repo.Patient
	for _, p := range r.s.patients {
		if matchesDirectory(f, p.ID, p.Name) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f.Limit, f.Offset), nil
}

type Professionals struct{ s *Store }

func (r *Professionals) GetByID(_ context.Context, id uuid.UUID) (*repo.Professional, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.professionals[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *Professionals) List(_ context.Context, f repo.DirectoryFilter) ([]*repo.Professional, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*repo.Professional
	for _, p := range r.s.professionals {
		if matchesDirectory(f, p.ID, p.Name) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f.Limit, f.Offset), nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func matchesDirectory(f repo.DirectoryFilter, id uuid.UUID, name string) bool {
	if len(f.IDs) > 0 && !containsID(f.IDs, id) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func inRange(t time.Time, from, to, before *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	if before != nil && !t.Before(*before) {
		return false
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
