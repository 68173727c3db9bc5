// Package events publishes domain notifications on NATS.
//
// Subjects follow "<prefix>.<entity>.<verb>.<id>" and the payload is the id,
// so subscribers can filter by wildcard and reload the row themselves.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/clinicadesk/clinica_backend/pkg/constants"
)

type Event string

const (
	AppointmentCreated   Event = "appointment.created"
	AppointmentUpdated   Event = "appointment.updated"
	AppointmentCancelled Event = "appointment.cancelled"

	VisitCreated   Event = "visit.created"
	VisitConfirmed Event = "visit.confirmed"
	VisitCancelled Event = "visit.cancelled"
	VisitDeleted   Event = "visit.deleted"
	VisitOverdue   Event = "visit.overdue"
)

// Subject is the concrete NATS subject for an event about id.
func Subject(e Event, id uuid.UUID) string {
	return constants.EventPrefix + "." + string(e) + "." + id.String()
}

// Pattern matches every subject of e.
func Pattern(e Event) string {
	return constants.EventPrefix + "." + string(e) + ".*"
}

// All matches every subject this package publishes.
func All() string {
	return constants.EventPrefix + ".>"
}

// ParseID extracts the entity id from a message payload.
func ParseID(msg *nats.Msg) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(string(msg.Data)))
	if err != nil {
		return uuid.Nil, fmt.Errorf("event %s: %w", msg.Subject, err)
	}
	return id, nil
}

// Publisher is fire-and-forget: a lost event never fails the write that caused it.
type Publisher interface {
	Publish(ctx context.Context, e Event, id uuid.UUID)
}

type natsPublisher struct {
	nc *nats.Conn
}

func NewNATS(nc *nats.Conn) Publisher {
	if nc == nil {
		return Nop{}
	}
	return &natsPublisher{nc: nc}
}

func (p *natsPublisher) Publish(ctx context.Context, e Event, id uuid.UUID) {
	subject := Subject(e, id)
	if err := p.nc.Publish(subject, []byte(id.String())); err != nil {
		slog.WarnContext(ctx, "event publish failed", "subject", subject, "err", err)
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, Event, uuid.UUID) {}

// Recorded is one event captured by a Recorder.
type Recorded struct {
	Event Event
	ID    uuid.UUID
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func (r *Recorder) Publish(_ context.Context, e Event, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Event: e, ID: id})
}

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Count returns how many times e was published.
func (r *Recorder) Count(e Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Event == e {
			n++
		}
	}
	return n
}
