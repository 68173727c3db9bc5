package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicadesk/clinica_backend/internal/repo"
	"github.com/clinicadesk/clinica_backend/internal/repo/repotest"
	"github.com/clinicadesk/clinica_backend/internal/service/directory"
	"github.com/clinicadesk/clinica_backend/internal/service/visit"
	"github.com/clinicadesk/clinica_backend/pkg/clock"
	"github.com/clinicadesk/clinica_backend/pkg/email"
	"github.com/clinicadesk/clinica_backend/pkg/events"
	"github.com/clinicadesk/clinica_backend/pkg/sms"
)

// Monday 2025-03-10 09:00 UTC.
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type sentSMS struct {
	phone    string
	template string
	params   []sms.Param
}

type fakeSender struct {
	enabled bool
	err     error
	sent    []sentSMS
}

func (f *fakeSender) SendTemplate(_ context.Context, phone, templateID string, params ...sms.Param) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentSMS{phone: phone, template: templateID, params: params})
	return nil
}

func (f *fakeSender) IsEnabled() bool { return f.enabled }

type fakeMailer struct {
	err  error
	sent []email.Message
}

func (f *fakeMailer) Send(_ context.Context, m email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeMailer) Enabled() bool { return true }

type memoryJobState struct {
	locked  bool
	lastRun map[string]time.Time
}

func (s *memoryJobState) Lock(_ context.Context, _ string, _ time.Duration) (func(context.Context) error, error) {
	if s.locked {
		return nil, errSkipped
	}
	s.locked = true
	return func(context.Context) error { s.locked = false; return nil }, nil
}

func (s *memoryJobState) LastRun(_ context.Context, key string) (time.Time, bool, error) {
	t, ok := s.lastRun[key]
	return t, ok, nil
}

func (s *memoryJobState) SetLastRun(_ context.Context, key string, t time.Time) error {
	if s.lastRun == nil {
		s.lastRun = map[string]time.Time{}
	}
	s.lastRun[key] = t
	return nil
}

// ---------------------------------------------------------------------------
// notifier
// ---------------------------------------------------------------------------

func TestAppointmentNotifier(t *testing.T) {
	store := repotest.New()
	patient := store.AddPatient("Ana Souza")
	patient.Phone = "+55 11 96123-4567"
	prof := store.AddProfessional("Dr. Lima")
	appt := store.PutAppointment(&repo.Appointment{
		PatientID:      patient.ID,
		ProfessionalID: prof.ID,
		ScheduledAt:    time.Date(2025, 3, 11, 13, 30, 0, 0, time.UTC),
	})
	if err := store.Appointments().SoftDelete(context.Background(), appt.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	dir := directory.New(store.Patients(), store.Professionals())
	templates := map[events.Event]string{
		events.AppointmentCreated:   "100",
		events.AppointmentCancelled: "200",
	}

	tests := []struct {
		name     string
		sender   *fakeSender
		event    events.Event
		id       uuid.UUID
		wantSent bool
		wantErr  bool
	}{
		{"cancelled appointment is still found", &fakeSender{enabled: true}, events.AppointmentCancelled, appt.ID, true, false},
		{"event without template", &fakeSender{enabled: true}, events.AppointmentUpdated, appt.ID, false, false},
		{"sms disabled", &fakeSender{}, events.AppointmentCreated, appt.ID, false, false},
		{"unknown appointment", &fakeSender{enabled: true}, events.AppointmentCreated, uuid.New(), false, true},
		{"provider failure", &fakeSender{enabled: true, err: errors.New("boom")}, events.AppointmentCreated, appt.ID, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &appointmentNotifier{
				appointments: store.Appointments(),
				directory:    dir,
				sender:       tt.sender,
				templates:    templates,
				loc:          time.UTC,
			}
			sent, err := n.notify(context.Background(), tt.event, tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("notify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if sent != tt.wantSent {
				t.Fatalf("sent = %v, want %v", sent, tt.wantSent)
			}
			if !tt.wantSent {
				return
			}
			msg := tt.sender.sent[0]
			if msg.template != "200" || msg.phone != patient.Phone {
				t.Errorf("sent %+v", msg)
			}
			want := map[string]string{"PATIENT": "Ana Souza", "PROFESSIONAL": "Dr. Lima", "DATE": "11/03/2025", "TIME": "13:30"}
			for _, p := range msg.params {
				if want[p.Key] != p.Value {
					t.Errorf("param %s = %q, want %q", p.Key, p.Value, want[p.Key])
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// overdue job
// ---------------------------------------------------------------------------

type jobFixture struct {
	job    *OverdueJob
	store  *repotest.Store
	clock  *clock.Fixed
	mailer *fakeMailer
	state  *memoryJobState
	appt   *repo.Appointment
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	store := repotest.New()
	clk := clock.NewFixed(testNow)
	dir := directory.New(store.Patients(), store.Professionals())
	patient := store.AddPatient("Ana Souza")
	prof := store.AddProfessional("Dr. Lima")
	appt := store.PutAppointment(&repo.Appointment{
		PatientID:      patient.ID,
		ProfessionalID: prof.ID,
		ScheduledAt:    testNow.Add(-48 * time.Hour),
	})

	f := &jobFixture{store: store, clock: clk, mailer: &fakeMailer{}, state: &memoryJobState{}, appt: appt}
	f.job = &OverdueJob{
		visits:     visit.New(store.Visits(), store.Appointments(), dir, &events.Recorder{}, clk, visit.DefaultOptions()),
		state:      f.state,
		mailer:     f.mailer,
		recipients: []string{"coord@clinic.example"},
		lockTTL:    time.Minute,
		loc:        time.UTC,
		clinic:     "Clinica Centro",
		clock:      clk,
	}
	return f
}

func (f *jobFixture) addVisit(at time.Time) {
	f.store.PutVisit(&repo.Visit{AppointmentID: f.appt.ID, ScheduledAt: at})
}

func TestOverdueJobMailsOnlyNewEntries(t *testing.T) {
	f := newJobFixture(t)
	f.addVisit(testNow.Add(-2 * time.Hour))
	ctx := context.Background()

	res, err := f.job.Run(ctx, "test")
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if len(res.Entries) != 1 || res.Emailed != 1 || len(f.mailer.sent) != 1 {
		t.Fatalf("first run: entries=%d emailed=%d mails=%d, want 1/1/1", len(res.Entries), res.Emailed, len(f.mailer.sent))
	}
	if !strings.Contains(f.mailer.sent[0].TextBody, "Ana Souza") {
		t.Errorf("report body missing patient name:\n%s", f.mailer.sent[0].TextBody)
	}

	// Nothing new became overdue: the old visit is reported but not mailed again.
	f.clock.Advance(15 * time.Minute)
	res, err = f.job.Run(ctx, "test")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(res.Entries) != 1 || res.Emailed != 0 || len(f.mailer.sent) != 1 {
		t.Fatalf("second run: entries=%d emailed=%d mails=%d, want 1/0/1", len(res.Entries), res.Emailed, len(f.mailer.sent))
	}

	// A visit whose time passes between the runs is mailed on its own.
	f.addVisit(f.clock.Now().Add(5 * time.Minute))
	f.clock.Advance(15 * time.Minute)
	res, err = f.job.Run(ctx, "test")
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if len(res.Entries) != 2 || res.Emailed != 1 || len(f.mailer.sent) != 2 {
		t.Fatalf("third run: entries=%d emailed=%d mails=%d, want 2/1/2", len(res.Entries), res.Emailed, len(f.mailer.sent))
	}
	if f.state.locked {
		t.Error("lock not released")
	}
}

func TestOverdueJobMailsBackdatedVisits(t *testing.T) {
	f := newJobFixture(t)
	f.addVisit(testNow.Add(-2 * time.Hour))
	ctx := context.Background()

	if _, err := f.job.Run(ctx, "test"); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Recorded after the first run but scheduled before it.
	f.clock.Advance(15 * time.Minute)
	f.store.PutVisit(&repo.Visit{
		AppointmentID: f.appt.ID,
		ScheduledAt:   testNow.Add(-time.Hour),
		CreatedAt:     f.clock.Now(),
	})
	f.clock.Advance(time.Minute)

	res, err := f.job.Run(ctx, "test")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(res.Entries) != 2 || res.Emailed != 1 || len(f.mailer.sent) != 2 {
		t.Fatalf("second run: entries=%d emailed=%d mails=%d, want 2/1/2", len(res.Entries), res.Emailed, len(f.mailer.sent))
	}
}

func TestOverdueJobSkipsWhenLocked(t *testing.T) {
	f := newJobFixture(t)
	f.state.locked = true
	if _, err := f.job.Run(context.Background(), "test"); !errors.Is(err, errSkipped) {
		t.Fatalf("Run() error = %v, want errSkipped", err)
	}
}

func TestOverdueJobKeepsLastRunWhenMailFails(t *testing.T) {
	f := newJobFixture(t)
	f.addVisit(testNow.Add(-time.Hour))
	f.mailer.err = errors.New("smtp down")

	if _, err := f.job.Run(context.Background(), "test"); err == nil {
		t.Fatal("expected mail error")
	}
	if _, ok := f.state.lastRun[overdueLastRunKey]; ok {
		t.Error("last run stored although the report was not sent")
	}

	f.mailer.err = nil
	res, err := f.job.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if res.Emailed != 1 {
		t.Errorf("retry emailed %d, want 1", res.Emailed)
	}
}

func TestEventName(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		subject string
		want    string
	}{
		{events.Subject(events.VisitConfirmed, id), "visit.confirmed"},
		{events.Subject(events.AppointmentCreated, id), "appointment.created"},
		{"other.thing", "other.thing"},
	}
	for _, tt := range tests {
		if got := eventName(tt.subject); got != tt.want {
			t.Errorf("eventName(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
