package visit

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
		svc:          New(store.Visits(), store.Appointments(), dir, rec, clk, DefaultOptions()),
		store:        store,
		clock:        clk,
		events:       rec,
		patient:      store.AddPatient("Ana Souza"),
		professional: store.AddProfessional("Dr. Lima"),
	}
}

func (f *fixture) appointment(at time.Time) *repo.Appointment {
	return f.store.PutAppointment(&repo.Appointment{
		PatientID: f.patient.ID, ProfessionalID: f.professional.ID, ScheduledAt: at,
	})
}

func (f *fixture) visit(at time.Time, confirmed bool) *repo.Visit {
	a := f.appointment(at)
	return f.store.PutVisit(&repo.Visit{AppointmentID: a.ID, ScheduledAt: at, Confirmed: confirmed})
}

func TestIsOverdue(t *testing.T) {
	tests := []struct {
		name      string
		at        time.Time
		confirmed bool
		overdue   bool
		status    Status
	}{
		{"past unconfirmed", testNow.Add(-time.Minute), false, true, StatusCancelled},
		{"past confirmed", testNow.Add(-time.Hour), true, false, StatusConfirmed},
		{"future unconfirmed", testNow.Add(time.Hour), false, false, StatusPending},
		{"now", testNow, false, false, StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &repo.Visit{ScheduledAt: tt.at, Confirmed: tt.confirmed}
			if got := IsOverdue(v, testNow); got != tt.overdue {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.overdue)
			}
			if got := DeriveStatus(v, testNow); got != tt.status {
				t.Errorf("DeriveStatus() = %q, want %q", got, tt.status)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.appointment(testNow.Add(3 * time.Hour))

	v, err := f.svc.Create(ctx, CreateRequest{AppointmentID: a.ID})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !v.ScheduledAt.Equal(a.ScheduledAt) || v.Confirmed || v.Status != StatusPending {
		t.Errorf("visit = %+v", v)
	}

	_, err = f.svc.Create(ctx, CreateRequest{AppointmentID: a.ID})
	if !errors.Is(err, ErrVisitExists) || apperr.Kind(err) != apperr.ErrConflict {
		t.Errorf("second Create() error = %v, want ErrVisitExists", err)
	}

	_, err = f.svc.CreateFromAppointment(ctx, uuid.New())
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("Create(unknown appointment) error = %v", err)
	}
	if n := f.events.Count(events.VisitCreated); n != 1 {
		t.Errorf("created events = %d, want 1", n)
	}
}

func TestCreateExplicitFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("confirmed on creation", func(t *testing.T) {
		a := f.appointment(testNow.Add(-time.Hour))
		confirmed := true
		v, err := f.svc.Create(ctx, CreateRequest{AppointmentID: a.ID, Confirmed: &confirmed})
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if v.Status != StatusConfirmed {
			t.Errorf("Status = %q", v.Status)
		}
		if f.events.Count(events.VisitConfirmed) != 1 {
			t.Error("confirmed event not published")
		}
	})

	t.Run("too far ahead", func(t *testing.T) {
		a := f.appointment(testNow.Add(48 * time.Hour))
		at := testNow.Add(25 * time.Hour)
		_, err := f.svc.Create(ctx, CreateRequest{AppointmentID: a.ID, ScheduledAt: &at})
		if !errors.Is(err, ErrTooFarAhead) || apperr.Kind(err) != apperr.ErrInvalidInput {
			t.Errorf("Create() error = %v, want ErrTooFarAhead", err)
		}
	})

	t.Run("within lead", func(t *testing.T) {
		a := f.appointment(testNow.Add(72 * time.Hour))
		at := testNow.Add(24 * time.Hour)
		v, err := f.svc.Create(ctx, CreateRequest{AppointmentID: a.ID, ScheduledAt: &at})
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if !v.ScheduledAt.Equal(at) {
			t.Errorf("ScheduledAt = %v, want %v", v.ScheduledAt, at)
		}
	})
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.visit(testNow.Add(time.Hour), false)

	got, err := f.svc.Confirm(ctx, v.ID)
	if err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	if !got.Confirmed || got.Status != StatusConfirmed {
		t.Errorf("visit = %+v", got)
	}
	if _, err := f.svc.Confirm(ctx, v.ID); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Errorf("second Confirm() error = %v, want ErrAlreadyConfirmed", err)
	}
	if _, err := f.svc.Confirm(ctx, uuid.New()); !errors.Is(err, ErrVisitNotFound) {
		t.Errorf("Confirm(unknown) error = %v", err)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.visit(testNow.Add(time.Hour), true)

	for i := 0; i < 2; i++ {
		got, err := f.svc.Cancel(ctx, v.ID)
		if err != nil {
			t.Fatalf("Cancel() #%d error: %v", i+1, err)
		}
		if got.Confirmed {
			t.Errorf("Cancel() #%d left visit confirmed", i+1)
		}
	}
	if n := f.events.Count(events.VisitCancelled); n != 1 {
		t.Errorf("cancelled events = %d, want 1", n)
	}
	stored, err := f.svc.Get(ctx, v.ID)
	if err != nil || stored.Confirmed {
		t.Errorf("Get() = %+v, %v", stored, err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.visit(testNow.Add(time.Hour), false)
	confirmed := f.visit(testNow.Add(2*time.Hour), true)

	err := f.svc.Delete(ctx, confirmed.ID)
	if !errors.Is(err, ErrConfirmedDelete) || apperr.Kind(err) != apperr.ErrInvalidState {
		t.Errorf("Delete(confirmed) error = %v, want ErrConfirmedDelete", err)
	}
	if err := f.svc.Delete(ctx, pending.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := f.svc.Get(ctx, pending.ID); !errors.Is(err, ErrVisitNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
	// The appointment can take a new visit once the old one is gone.
	if _, err := f.svc.CreateFromAppointment(ctx, pending.AppointmentID); err != nil {
		t.Errorf("CreateFromAppointment() after delete error: %v", err)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.visit(testNow.Add(time.Hour), false)

	at := testNow.Add(3 * time.Hour)
	got, err := f.svc.Update(ctx, v.ID, UpdateRequest{ScheduledAt: &at})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if !got.ScheduledAt.Equal(at) {
		t.Errorf("ScheduledAt = %v", got.ScheduledAt)
	}

	past := testNow.Add(-time.Hour)
	if _, err := f.svc.Update(ctx, v.ID, UpdateRequest{ScheduledAt: &past}); !errors.Is(err, ErrNotInFuture) {
		t.Errorf("Update(past) error = %v", err)
	}
	far := testNow.Add(30 * time.Hour)
	if _, err := f.svc.Update(ctx, v.ID, UpdateRequest{ScheduledAt: &far}); !errors.Is(err, ErrTooFarAhead) {
		t.Errorf("Update(far) error = %v", err)
	}

	confirmed := f.visit(testNow.Add(2*time.Hour), true)
	if _, err := f.svc.Update(ctx, confirmed.ID, UpdateRequest{ScheduledAt: &at}); !errors.Is(err, ErrNotEditable) {
		t.Errorf("Update(confirmed) error = %v", err)
	}
	overdue := f.visit(testNow.Add(-2*time.Hour), false)
	if _, err := f.svc.Update(ctx, overdue.ID, UpdateRequest{ScheduledAt: &at}); !errors.Is(err, ErrNotEditable) {
		t.Errorf("Update(overdue) error = %v", err)
	}
}

func TestMutationsAreTraced(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	f := newFixture(t)
	ctx := context.Background()
	v := f.visit(testNow.Add(time.Hour), false)

	if _, err := f.svc.Update(ctx, v.ID, UpdateRequest{}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, v.ID); err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, v.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if err := f.svc.Delete(ctx, v.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	ended := map[string]bool{}
	for _, span := range rec.Ended() {
		ended[span.Name()] = true
	}
	for _, name := range []string{"visit.Update", "visit.Confirm", "visit.Cancel", "visit.Delete"} {
		if !ended[name] {
			t.Errorf("no %q span recorded", name)
		}
	}
}

func TestProcessOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := f.visit(testNow.Add(-2*time.Hour), false)
	f.visit(testNow.Add(-3*time.Hour), true)
	f.visit(testNow.Add(time.Hour), false)

	report, err := f.svc.ProcessOverdue(ctx)
	if err != nil {
		t.Fatalf("ProcessOverdue() error: %v", err)
	}
	if len(report) != 1 {
		t.Fatalf("report = %+v, want one entry", report)
	}
	got := report[0]
	if got.VisitID != late.ID || got.Patient != "Ana Souza" || got.Professional != "Dr. Lima" ||
		got.Action != ActionMarkedMissed || !got.ScheduledAt.Equal(late.ScheduledAt) {
		t.Errorf("entry = %+v", got)
	}

	stored, _ := f.svc.Get(ctx, late.ID)
	if stored.Confirmed || !stored.Overdue {
		t.Errorf("visit after processing = %+v", stored)
	}

	again, err := f.svc.ProcessOverdue(ctx)
	if err != nil || len(again) != 1 {
		t.Errorf("second ProcessOverdue() = %d entries, %v", len(again), err)
	}
	if n := f.events.Count(events.VisitOverdue); n != 2 {
		t.Errorf("overdue events = %d, want 2", n)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.visit(testNow.Add(-2*time.Hour), false)
	f.visit(testNow.Add(-time.Hour), true)
	f.visit(testNow.Add(time.Hour), false)
	f.visit(testNow.AddDate(0, 0, 1), false)

	overdue, err := f.svc.List(ctx, ListRequest{Overdue: true})
	if err != nil || len(overdue) != 1 {
		t.Errorf("List(overdue) = %d, %v", len(overdue), err)
	}
	today, err := f.svc.List(ctx, ListRequest{Date: &testNow})
	if err != nil || len(today) != 3 {
		t.Errorf("List(today) = %d, %v", len(today), err)
	}
	confirmed := true
	got, err := f.svc.List(ctx, ListRequest{Confirmed: &confirmed})
	if err != nil || len(got) != 1 {
		t.Errorf("List(confirmed) = %d, %v", len(got), err)
	}
	other := f.store.AddProfessional("Dr. Costa")
	got, err = f.svc.List(ctx, ListRequest{ProfessionalID: &other.ID})
	if err != nil || len(got) != 0 {
		t.Errorf("List(other professional) = %d, %v", len(got), err)
	}
	from, to := testNow, testNow.Add(-time.Hour)
	if _, err := f.svc.List(ctx, ListRequest{From: &from, To: &to}); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("List(reversed) error = %v", err)
	}
}

func TestStatisticsAndReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	costa := f.store.AddProfessional("Dr. Costa")

	f.visit(testNow.Add(-2*time.Hour), true)
	f.visit(testNow.Add(-time.Hour), false)
	f.visit(testNow.Add(time.Hour), false)
	a := f.store.PutAppointment(&repo.Appointment{PatientID: f.patient.ID, ProfessionalID: costa.ID, ScheduledAt: testNow.AddDate(0, 0, 1)})
	f.store.PutVisit(&repo.Visit{AppointmentID: a.ID, ScheduledAt: a.ScheduledAt, Confirmed: true})

	start, end := testNow.AddDate(0, 0, -1), testNow.AddDate(0, 0, 2)
	stats, err := f.svc.Statistics(ctx, start, end)
	if err != nil {
		t.Fatalf("Statistics() error: %v", err)
	}
	if stats.Total != 4 || stats.Confirmed != 2 || stats.Overdue != 1 || stats.Pending != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ConfirmationRate.String() != "50" {
		t.Errorf("ConfirmationRate = %s, want 50", stats.ConfirmationRate)
	}
	if got := stats.ByProfessional["Dr. Lima"]; got != (Tally{Total: 3, Confirmed: 1}) {
		t.Errorf("ByProfessional[Dr. Lima] = %+v", got)
	}
	if got := stats.ByDay["2025-03-11"]; got != (Tally{Total: 1, Confirmed: 1}) {
		t.Errorf("ByDay[2025-03-11] = %+v", got)
	}

	pr, err := f.svc.ProfessionalReport(ctx, costa.ID, start, end)
	if err != nil {
		t.Fatalf("ProfessionalReport() error: %v", err)
	}
	if pr.Total != 1 || pr.Confirmed != 1 || pr.Professional.Name != "Dr. Costa" {
		t.Errorf("report = %+v", pr)
	}
	if _, err := f.svc.ProfessionalReport(ctx, uuid.New(), start, end); !errors.Is(err, ErrProfessionalNotFound) {
		t.Errorf("ProfessionalReport(unknown) error = %v", err)
	}

	r, err := f.svc.Report(ctx, start, end)
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}
	if len(r.Visits) != 4 || r.Statistics.Total != 4 || !r.GeneratedAt.Equal(testNow) {
		t.Errorf("Report() = %+v", r)
	}
	if _, err := f.svc.Statistics(ctx, end, start); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Statistics(reversed) error = %v", err)
	}
}

func TestConfirmationRate(t *testing.T) {
	tests := []struct {
		confirmed, total int
		want             string
	}{
		{0, 0, "0"},
		{1, 3, "33.33"},
		{2, 3, "66.67"},
		{3, 3, "100"},
	}
	for _, tt := range tests {
		if got := ConfirmationRate(tt.confirmed, tt.total).String(); got != tt.want {
			t.Errorf("ConfirmationRate(%d, %d) = %s, want %s", tt.confirmed, tt.total, got, tt.want)
		}
	}
}
