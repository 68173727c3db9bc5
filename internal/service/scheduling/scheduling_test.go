package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/internal/repo/repotest"
	"github.com/clinicadesk/clinica_backend/internal/service/directory"
	"github.com/clinicadesk/clinica_backend/pkg/apperr"
	"github.com/clinicadesk/clinica_backend/pkg/clock"
	"github.com/clinicadesk/clinica_backend/pkg/events"
)

// Monday 2025-03-10 09:00 UTC.
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc          Service
	store        *repotest.Store
	clock        *clock.Fixed
	events       *events.Recorder
	patient      *repo.Patient
	professional *repo.Professional
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.New()
	clk := clock.NewFixed(testNow)
	rec := &events.Recorder{}
	dir := directory.New(store.Patients(), store.Professionals())
	return &fixture{
		svc:          New(store.Appointments(), store.Visits(), dir, rec, clk, DefaultOptions()),
		store:        store,
		clock:        clk,
		events:       rec,
		patient:      store.AddPatient("Ana Souza"),
		professional: store.AddProfessional("Dr. Lima"),
	}
}

func (f *fixture) create(t *testing.T, at time.Time) *AppointmentView {
	t.Helper()
	a, err := f.svc.Create(context.Background(), CreateRequest{
		PatientID:      f.patient.ID,
		ProfessionalID: f.professional.ID,
		ScheduledAt:    at,
	})
	if err != nil {
		t.Fatalf("Create(%v) error: %v", at, err)
	}
	return a
}

func TestDeriveStatus(t *testing.T) {
	window := 2 * time.Hour
	tests := []struct {
		name     string
		at       time.Time
		attended bool
		want     Status
	}{
		{"attended wins over past", testNow.Add(-time.Hour), true, StatusCompleted},
		{"attended in future", testNow.Add(48 * time.Hour), true, StatusCompleted},
		{"past", testNow.Add(-time.Minute), false, StatusMissed},
		{"now", testNow, false, StatusConfirmed},
		{"within window", testNow.Add(90 * time.Minute), false, StatusConfirmed},
		{"window edge", testNow.Add(window), false, StatusConfirmed},
		{"just past window", testNow.Add(window + time.Second), false, StatusScheduled},
		{"next week", testNow.Add(7 * 24 * time.Hour), false, StatusScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.at, tt.attended, testNow, window); got != tt.want {
				t.Errorf("DeriveStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeeklyOccurrences(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		count int
		last  time.Time
	}{
		{
			// First 2024-01-08, horizon 2024-04-08 lands exactly on week 14.
			name:  "horizon on an occurrence",
			start: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			count: 14,
			last:  time.Date(2024, 4, 8, 10, 0, 0, 0, time.UTC),
		},
		{
			// Counting three months from the start day would end at 2027-03-29.
			name:  "thirteenth week kept",
			start: time.Date(2027, 1, 4, 10, 0, 0, 0, time.UTC),
			count: 13,
			last:  time.Date(2027, 4, 5, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "short month",
			start: time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC),
			count: 13,
			last:  time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeeklyOccurrences(tt.start, 3, time.UTC)
			if len(got) != tt.count {
				t.Fatalf("len = %d, want %d (last %v)", len(got), tt.count, got[len(got)-1])
			}
			if !got[0].Equal(tt.start.AddDate(0, 0, 7)) {
				t.Errorf("first = %v, want one week after start", got[0])
			}
			if !got[len(got)-1].Equal(tt.last) {
				t.Errorf("last = %v, want %v", got[len(got)-1], tt.last)
			}
			for i, at := range got {
				if at.Weekday() != tt.start.Weekday() || at.Hour() != 10 {
					t.Errorf("occurrence %d = %v, want %s 10:00", i, at, tt.start.Weekday())
				}
			}
		})
	}
}

func TestWeeklyOccurrencesKeepsLocalTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// DST starts 2025-03-09 in New York.
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, loc)
	for _, at := range WeeklyOccurrences(start, 1, loc) {
		if h := at.In(loc).Hour(); h != 10 {
			t.Errorf("%v local hour = %d, want 10", at, h)
		}
	}
}

func TestWeekdays(t *testing.T) {
	got := Weekdays()
	if len(got) != 7 || got[0].Value != WeekdayMonday || got[6].Value != WeekdaySunday {
		t.Fatalf("Weekdays() = %+v", got)
	}
	if !ValidWeekday("friday") || ValidWeekday("Friday") || ValidWeekday("funday") {
		t.Error("ValidWeekday mismatch")
	}
	if tok := WeekdayToken(testNow, time.UTC); tok != WeekdayMonday {
		t.Errorf("WeekdayToken = %q", tok)
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)

	a := f.create(t, at)
	if a.ID == uuid.Nil || !a.ScheduledAt.Equal(at) {
		t.Errorf("created = %+v", a.Appointment)
	}
	if a.Status != StatusScheduled {
		t.Errorf("Status = %q, want scheduled", a.Status)
	}
	if a.IsRecurring || a.Weekday != nil {
		t.Errorf("non-recurring appointment got recurrence fields: %+v", a.Appointment)
	}
	if n := f.events.Count(events.AppointmentCreated); n != 1 {
		t.Errorf("created events = %d, want 1", n)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	valid := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	f.create(t, valid)

	tests := []struct {
		name    string
		mutate  func(r *CreateRequest)
		wantErr error
		kind    error
	}{
		{"unknown patient", func(r *CreateRequest) { r.PatientID = uuid.New() }, ErrPatientNotFound, apperr.ErrNotFound},
		{"unknown professional", func(r *CreateRequest) { r.ProfessionalID = uuid.New() }, ErrProfessionalNotFound, apperr.ErrNotFound},
		{"in the past", func(r *CreateRequest) { r.ScheduledAt = testNow.Add(-time.Hour) }, ErrNotInFuture, apperr.ErrInvalidInput},
		{"exactly now", func(r *CreateRequest) { r.ScheduledAt = testNow }, ErrNotInFuture, apperr.ErrInvalidInput},
		{"before opening", func(r *CreateRequest) { r.ScheduledAt = time.Date(2025, 3, 11, 7, 59, 0, 0, time.UTC) }, ErrOutsideBusinessHours, apperr.ErrInvalidInput},
		{"at closing", func(r *CreateRequest) { r.ScheduledAt = time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC) }, ErrOutsideBusinessHours, apperr.ErrInvalidInput},
		{"sunday", func(r *CreateRequest) { r.ScheduledAt = time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC) }, ErrSunday, apperr.ErrInvalidInput},
		{"bad weekday", func(r *CreateRequest) {
			r.ScheduledAt = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
			r.IsRecurring = true
			r.Weekday = "someday"
		}, ErrInvalidWeekday, apperr.ErrInvalidInput},
		{"slot taken", func(r *CreateRequest) {}, ErrSlotTaken, apperr.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateRequest{PatientID: f.patient.ID, ProfessionalID: f.professional.ID, ScheduledAt: valid}
			tt.mutate(&req)
			_, err := f.svc.Create(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if apperr.Kind(err) != tt.kind {
				t.Errorf("Kind = %v, want %v", apperr.Kind(err), tt.kind)
			}
		})
	}
}

func TestCreateBoundaries(t *testing.T) {
	f := newFixture(t)
	for _, at := range []time.Time{
		time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 11, 17, 59, 0, 0, time.UTC),
		time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), // saturday
	} {
		f.create(t, at)
	}
}

func TestCreateOtherProfessionalSameTime(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	f.create(t, at)

	other := f.store.AddProfessional("Dr. Costa")
	_, err := f.svc.Create(context.Background(), CreateRequest{
		PatientID: f.patient.ID, ProfessionalID: other.ID, ScheduledAt: at,
	})
	if err != nil {
		t.Fatalf("Create() for another professional error: %v", err)
	}
}

func TestCreateRecurring(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)

	// Week 2 is already booked by someone else; week 3 loses a race.
	busy := at.AddDate(0, 0, 14)
	f.store.PutAppointment(&repo.Appointment{
		PatientID: f.store.AddPatient("Bruno").ID, ProfessionalID: f.professional.ID, ScheduledAt: busy,
	})
	raced := at.AddDate(0, 0, 21)
	f.store.FailCreate = func(a *repo.Appointment) bool { return a.ScheduledAt.Equal(raced) }

	primary, err := f.svc.Create(context.Background(), CreateRequest{
		PatientID: f.patient.ID, ProfessionalID: f.professional.ID, ScheduledAt: at, IsRecurring: true,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !primary.ScheduledAt.Equal(at) {
		t.Errorf("returned %v, want the primary at %v", primary.ScheduledAt, at)
	}
	if primary.Weekday == nil || *primary.Weekday != WeekdayTuesday {
		t.Errorf("Weekday = %v, want tuesday", primary.Weekday)
	}

	// The first copy is 2025-03-18 and the horizon 2025-06-18, so 14 weekly slots follow the primary.
	var series []*repo.Appointment
	for _, a := range f.store.AllAppointments() {
		if a.PatientID == f.patient.ID {
			series = append(series, a)
		}
	}
	if len(series) != 1+14-2 {
		t.Fatalf("series length = %d, want 13", len(series))
	}
	for _, a := range series {
		if !a.IsRecurring || a.Weekday == nil || *a.Weekday != WeekdayTuesday {
			t.Errorf("sibling %v missing recurrence fields", a.ScheduledAt)
		}
		if a.ScheduledAt.Equal(busy) || a.ScheduledAt.Equal(raced) {
			t.Errorf("sibling created on skipped slot %v", a.ScheduledAt)
		}
		if a.ScheduledAt.Hour() != 10 || a.ScheduledAt.Weekday() != time.Tuesday {
			t.Errorf("sibling %v not on Tuesday 10:00", a.ScheduledAt)
		}
	}
	if last := series[len(series)-1].ScheduledAt; !last.Equal(time.Date(2025, 6, 17, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("last sibling = %v", last)
	}
}

func TestCreateRecurringKeepsThirteenthWeek(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2027, 1, 4, 10, 0, 0, 0, time.UTC)
	if _, err := f.svc.Create(context.Background(), CreateRequest{
		PatientID: f.patient.ID, ProfessionalID: f.professional.ID, ScheduledAt: at, IsRecurring: true,
	}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	var series []*repo.Appointment
	for _, a := range f.store.AllAppointments() {
		if a.PatientID == f.patient.ID {
			series = append(series, a)
		}
	}
	if len(series) != 1+13 {
		t.Fatalf("series length = %d, want 14", len(series))
	}
	if last := series[len(series)-1].ScheduledAt; !last.Equal(at.AddDate(0, 0, 7*13)) {
		t.Errorf("last sibling = %v, want 2027-04-05", last)
	}
}

func TestCreateRecurringExplicitWeekday(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), CreateRequest{
		PatientID:      f.patient.ID,
		ProfessionalID: f.professional.ID,
		ScheduledAt:    time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
		IsRecurring:    true,
		Weekday:        " Wednesday ",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if *a.Weekday != WeekdayWednesday {
		t.Errorf("Weekday = %q", *a.Weekday)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC))
	other := f.create(t, time.Date(2025, 3, 11, 11, 0, 0, 0, time.UTC))

	t.Run("reschedule recomputes weekday", func(t *testing.T) {
		at := time.Date(2025, 3, 13, 14, 0, 0, 0, time.UTC)
		got, err := f.svc.Update(ctx, a.ID, UpdateRequest{ScheduledAt: &at})
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
		if !got.ScheduledAt.Equal(at) || got.Weekday == nil || *got.Weekday != WeekdayThursday {
			t.Errorf("updated = %+v", got.Appointment)
		}
	})

	t.Run("same time keeps own slot", func(t *testing.T) {
		at := time.Date(2025, 3, 13, 14, 0, 0, 0, time.UTC)
		if _, err := f.svc.Update(ctx, a.ID, UpdateRequest{ScheduledAt: &at}); err != nil {
			t.Fatalf("Update() error: %v", err)
		}
	})

	t.Run("conflict", func(t *testing.T) {
		at := other.ScheduledAt
		_, err := f.svc.Update(ctx, a.ID, UpdateRequest{ScheduledAt: &at})
		if !errors.Is(err, ErrSlotTaken) {
			t.Errorf("Update() error = %v, want ErrSlotTaken", err)
		}
	})

	t.Run("sunday", func(t *testing.T) {
		at := time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC)
		_, err := f.svc.Update(ctx, a.ID, UpdateRequest{ScheduledAt: &at})
		if !errors.Is(err, ErrSunday) {
			t.Errorf("Update() error = %v, want ErrSunday", err)
		}
	})

	t.Run("unknown patient", func(t *testing.T) {
		id := uuid.New()
		_, err := f.svc.Update(ctx, a.ID, UpdateRequest{PatientID: &id})
		if !errors.Is(err, ErrPatientNotFound) {
			t.Errorf("Update() error = %v, want ErrPatientNotFound", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.svc.Update(ctx, uuid.New(), UpdateRequest{})
		if !errors.Is(err, ErrAppointmentNotFound) {
			t.Errorf("Update() error = %v, want ErrAppointmentNotFound", err)
		}
	})

	if n := f.events.Count(events.AppointmentUpdated); n != 2 {
		t.Errorf("updated events = %d, want 2", n)
	}
}

func TestUpdateRejectsPastAndVisited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.store.PutAppointment(&repo.Appointment{
		PatientID: f.patient.ID, ProfessionalID: f.professional.ID, ScheduledAt: testNow.Add(-24 * time.Hour),
	})
	visited := f.create(t, time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC))
	f.store.PutVisit(&repo.Visit{AppointmentID: visited.ID, ScheduledAt: visited.ScheduledAt})

	for name, id := range map[string]uuid.UUID{"past": past.ID, "visited": visited.ID} {
		t.Run(name, func(t *testing.T) {
			recurring := true
			_, err := f.svc.Update(ctx, id, UpdateRequest{IsRecurring: &recurring})
			if !errors.Is(err, ErrNotEditable) || apperr.Kind(err) != apperr.ErrInvalidState {
				t.Errorf("Update() error = %v, want ErrNotEditable", err)
			}
			err = f.svc.Cancel(ctx, id)
			if !errors.Is(err, ErrNotCancellable) {
				t.Errorf("Cancel() error = %v, want ErrNotCancellable", err)
			}
		})
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	a := f.create(t, at)

	if err := f.svc.Cancel(ctx, a.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if _, err := f.svc.Get(ctx, a.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("Get() after cancel error = %v, want ErrAppointmentNotFound", err)
	}
	if err := f.svc.Cancel(ctx, a.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("second Cancel() error = %v, want ErrAppointmentNotFound", err)
	}
	// The freed slot can be booked again.
	f.create(t, at)
	if n := f.events.Count(events.AppointmentCancelled); n != 1 {
		t.Errorf("cancelled events = %d, want 1", n)
	}
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("creates confirmed visit", func(t *testing.T) {
		a := f.create(t, time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC))
		v, err := f.svc.Confirm(ctx, a.ID)
		if err != nil {
			t.Fatalf("Confirm() error: %v", err)
		}
		if !v.Confirmed || v.AppointmentID != a.ID || !v.ScheduledAt.Equal(a.ScheduledAt) {
			t.Errorf("visit = %+v", v)
		}
		got, _ := f.svc.Get(ctx, a.ID)
		if got.Status != StatusCompleted {
			t.Errorf("Status = %q, want completed", got.Status)
		}
		if _, err := f.svc.Confirm(ctx, a.ID); !errors.Is(err, ErrAlreadyConfirmed) {
			t.Errorf("second Confirm() error = %v, want ErrAlreadyConfirmed", err)
		}
	})

	t.Run("confirms pending visit", func(t *testing.T) {
		a := f.create(t, time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC))
		pending := f.store.PutVisit(&repo.Visit{AppointmentID: a.ID, ScheduledAt: a.ScheduledAt})
		v, err := f.svc.Confirm(ctx, a.ID)
		if err != nil {
			t.Fatalf("Confirm() error: %v", err)
		}
		if v.ID != pending.ID || !v.Confirmed {
			t.Errorf("visit = %+v, want %v confirmed", v, pending.ID)
		}
	})

	t.Run("unknown appointment", func(t *testing.T) {
		if _, err := f.svc.Confirm(ctx, uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
			t.Errorf("Confirm() error = %v", err)
		}
	})
}

func TestConfirmIsTraced(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	f := newFixture(t)
	a := f.create(t, time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC))
	if _, err := f.svc.Confirm(context.Background(), a.ID); err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}

	for _, span := range rec.Ended() {
		if span.Name() == "scheduling.Confirm" {
			return
		}
	}
	t.Error("no scheduling.Confirm span recorded")
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := f.create(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))
	tomorrow := f.create(t, time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC))
	f.create(t, time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC))

	got, err := f.svc.Today(ctx)
	if err != nil {
		t.Fatalf("Today() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != today.ID {
		t.Errorf("Today() = %d items", len(got))
	}

	got, err = f.svc.Upcoming(ctx, 7)
	if err != nil {
		t.Fatalf("Upcoming() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != today.ID || got[1].ID != tomorrow.ID {
		t.Errorf("Upcoming(7) = %d items", len(got))
	}
	if _, err := f.svc.Upcoming(ctx, 91); !errors.Is(err, ErrInvalidDays) {
		t.Errorf("Upcoming(91) error = %v", err)
	}

	from, to := testNow.AddDate(0, 1, 0), testNow
	if _, err := f.svc.List(ctx, ListRequest{From: &from, To: &to}); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("List(reversed) error = %v, want ErrInvalidPeriod", err)
	}

	got, err = f.svc.ListByPatient(ctx, f.patient.ID, ListRequest{})
	if err != nil || len(got) != 3 {
		t.Errorf("ListByPatient() = %d, %v", len(got), err)
	}
	if _, err := f.svc.ListByProfessional(ctx, uuid.New(), ListRequest{}); !errors.Is(err, ErrProfessionalNotFound) {
		t.Errorf("ListByProfessional(unknown) error = %v", err)
	}
	got, err = f.svc.Recurring(ctx, ListRequest{})
	if err != nil || len(got) != 0 {
		t.Errorf("Recurring() = %d, %v", len(got), err)
	}
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	costa := f.store.AddProfessional("Dr. Costa")

	// missed: yesterday, no visit
	f.store.PutAppointment(&repo.Appointment{
		PatientID: f.patient.ID, ProfessionalID: f.professional.ID, ScheduledAt: testNow.Add(-24 * time.Hour),
	})
	// completed: yesterday, confirmed visit
	done := f.store.PutAppointment(&repo.Appointment{
		PatientID: f.patient.ID, ProfessionalID: costa.ID, ScheduledAt: testNow.Add(-23 * time.Hour),
	})
	f.store.PutVisit(&repo.Visit{AppointmentID: done.ID, ScheduledAt: done.ScheduledAt, Confirmed: true})
	// confirmed: within two hours
	f.create(t, testNow.Add(time.Hour))
	// scheduled
	f.create(t, time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC))
	// outside the period
	f.create(t, time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC))
	// cancelled rows do not count
	gone := f.create(t, time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC))
	if err := f.svc.Cancel(ctx, gone.ID); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
	stats, err := f.svc.Statistics(ctx, start, end)
	if err != nil {
		t.Fatalf("Statistics() error: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	for st, want := range map[Status]int{StatusMissed: 1, StatusCompleted: 1, StatusConfirmed: 1, StatusScheduled: 1} {
		if stats.ByStatus[st] != want {
			t.Errorf("ByStatus[%s] = %d, want %d", st, stats.ByStatus[st], want)
		}
	}
	if stats.ByProfessional["Dr. Lima"] != 3 || stats.ByProfessional["Dr. Costa"] != 1 {
		t.Errorf("ByProfessional = %v", stats.ByProfessional)
	}
	if stats.ByDay["2025-03-09"] != 2 || stats.ByDay["2025-03-10"] != 1 || stats.ByDay["2025-03-12"] != 1 {
		t.Errorf("ByDay = %v", stats.ByDay)
	}

	if _, err := f.svc.Statistics(ctx, end, start); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Statistics(reversed) error = %v, want ErrInvalidPeriod", err)
	}
}

func TestStatisticsEmptyPeriod(t *testing.T) {
	f := newFixture(t)
	stats, err := f.svc.Statistics(context.Background(), testNow, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("Statistics() error: %v", err)
	}
	if stats.Total != 0 || len(stats.ByStatus) != len(AllStatuses) || len(stats.ByDay) != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
