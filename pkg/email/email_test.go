package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBuildMessageValidation(t *testing.T) {
	valid := Message{To: []string{"a@clinica.local"}, Subject: "hi", TextBody: "body"}
	tests := []struct {
		name    string
		from    string
		mutate  func(m *Message)
		wantErr bool
	}{
		{"valid", "noreply@clinica.local", func(*Message) {}, false},
		{"missing from", " ", func(*Message) {}, true},
		{"blank recipients", "noreply@clinica.local", func(m *Message) { m.To = []string{" "} }, true},
		{"missing subject", "noreply@clinica.local", func(m *Message) { m.Subject = "" }, true},
		{"missing body", "noreply@clinica.local", func(m *Message) { m.TextBody = "" }, true},
		{"html only", "noreply@clinica.local", func(m *Message) { m.TextBody, m.HTMLBody = "", "<p>x</p>" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			_, err := buildMessage(tt.from, m)
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			var invalid ErrInvalidMessage
			if tt.wantErr && !errors.As(err, &invalid) {
				t.Errorf("error %T is not ErrInvalidMessage", err)
			}
		})
	}
}

func TestSendDisabled(t *testing.T) {
	err := New(Config{}).Send(context.Background(), Message{})
	if !errors.As(err, &ErrDisabled{}) {
		t.Errorf("Send() error = %v, want ErrDisabled", err)
	}
}

func TestBuildOverdueReportEmail(t *testing.T) {
	at := time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC)
	msg, err := BuildOverdueReportEmail([]string{"coord@clinica.local"}, OverdueReportData{
		GeneratedAt: at.Add(time.Hour),
		Rows: []OverdueRow{
			{Patient: "Ana <Souza>", Professional: "Dr. Lima", ScheduledAt: at, Action: "marked_missed"},
		},
	})
	if err != nil {
		t.Fatalf("BuildOverdueReportEmail() error: %v", err)
	}
	if msg.Subject != "Clinica: 1 overdue visit(s)" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.TextBody, "2025-03-10 13:30  Ana <Souza> with Dr. Lima (marked_missed)") {
		t.Errorf("TextBody = %q", msg.TextBody)
	}
	if !strings.Contains(msg.HTMLBody, "Ana &lt;Souza&gt;") {
		t.Errorf("HTMLBody does not escape names: %q", msg.HTMLBody)
	}
	if _, err := buildMessage("noreply@clinica.local", msg); err != nil {
		t.Errorf("report is not a valid message: %v", err)
	}
}
