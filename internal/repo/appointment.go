package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// Appointment is a booked slot of a patient with a professional.
type Appointment struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	ProfessionalID uuid.UUID  `json:"professional_id"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	IsRecurring    bool       `json:"is_recurring"`
	Weekday        *string    `json:"weekday,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"-"`
}

// AppointmentFilter narrows List. Zero fields are ignored.
type AppointmentFilter struct {
	IDs            []uuid.UUID
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
	From           *time.Time // scheduled_at >= From
	To             *time.Time // scheduled_at <= To
	Before         *time.Time // scheduled_at < Before
	Recurring      *bool
	// WithDeleted includes cancelled (soft-deleted) rows.
	WithDeleted bool
	Ascending   bool
	Limit       int
	Offset      int
}

// AppointmentUpdate carries the fields to change; nil means unchanged.
type AppointmentUpdate struct {
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
	ScheduledAt    *time.Time
	IsRecurring    *bool
	Weekday        *string
}

var appointmentColumns = []string{
	"id", "patient_id", "professional_id", "scheduled_at",
	"is_recurring", "weekday", "created_at", "updated_at",
}

type AppointmentRepo struct {
	drv dialect.Driver
}

// Create inserts a, filling ID and timestamps when unset. A live appointment
// already holding the same professional and instant yields ErrDuplicate.
func (r *AppointmentRepo) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	q, args := builder().Insert(tableAppointments).
		Columns(appointmentColumns...).
		Values(a.ID, a.PatientID, a.ProfessionalID, a.ScheduledAt, a.IsRecurring, a.Weekday, a.CreatedAt, a.UpdatedAt).
		Query()
	if _, err := execStmt(ctx, r.drv, q, args); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	items, err := r.List(ctx, AppointmentFilter{IDs: []uuid.UUID{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

func (r *AppointmentRepo) List(ctx context.Context, f AppointmentFilter) ([]*Appointment, error) {
	q, args := appointmentListQuery(f)
	rows, err := queryRows(ctx, r.drv, q, args)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var (
			a       Appointment
			weekday sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.PatientID, &a.ProfessionalID, &a.ScheduledAt,
			&a.IsRecurring, &weekday, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		if weekday.Valid {
			a.Weekday = &weekday.String
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func appointmentListQuery(f AppointmentFilter) (string, []any) {
	var preds []*entsql.Predicate
	if !f.WithDeleted {
		preds = append(preds, notDeleted())
	}
	if len(f.IDs) > 0 {
		preds = append(preds, entsql.In("id", uuidArgs(f.IDs)...))
	}
	if f.PatientID != nil {
		preds = append(preds, entsql.EQ("patient_id", *f.PatientID))
	}
	if f.ProfessionalID != nil {
		preds = append(preds, entsql.EQ("professional_id", *f.ProfessionalID))
	}
	if f.From != nil {
		preds = append(preds, entsql.GTE("scheduled_at", *f.From))
	}
	if f.To != nil {
		preds = append(preds, entsql.LTE("scheduled_at", *f.To))
	}
	if f.Before != nil {
		preds = append(preds, entsql.LT("scheduled_at", *f.Before))
	}
	if f.Recurring != nil {
		preds = append(preds, entsql.EQ("is_recurring", *f.Recurring))
	}

	t := entsql.Table(tableAppointments)
	sel := builder().Select(appointmentColumns...).From(t)
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if f.Ascending {
		sel.OrderBy(sel.C("scheduled_at"))
	} else {
		sel.OrderBy(entsql.Desc(sel.C("scheduled_at")))
	}
	page(sel, f.Limit, f.Offset)
	return sel.Query()
}

// ExistsAt reports whether a live appointment of professionalID sits at
// exactly the instant at, ignoring excludeID when given.
func (r *AppointmentRepo) ExistsAt(ctx context.Context, professionalID uuid.UUID, at time.Time, excludeID *uuid.UUID) (bool, error) {
	preds := []*entsql.Predicate{
		notDeleted(),
		entsql.EQ("professional_id", professionalID),
		entsql.EQ("scheduled_at", at),
	}
	if excludeID != nil {
		preds = append(preds, entsql.NEQ("id", *excludeID))
	}
	q, args := builder().Select("id").
		From(entsql.Table(tableAppointments)).
		Where(entsql.And(preds...)).
		Limit(1).
		Query()

	rows, err := queryRows(ctx, r.drv, q, args)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

func (r *AppointmentRepo) Update(ctx context.Context, id uuid.UUID, u AppointmentUpdate) error {
	upd := builder().Update(tableAppointments).Set("updated_at", time.Now().UTC())
	if u.PatientID != nil {
		upd.Set("patient_id", *u.PatientID)
	}
	if u.ProfessionalID != nil {
		upd.Set("professional_id", *u.ProfessionalID)
	}
	if u.ScheduledAt != nil {
		upd.Set("scheduled_at", *u.ScheduledAt)
	}
	if u.IsRecurring != nil {
		upd.Set("is_recurring", *u.IsRecurring)
	}
	if u.Weekday != nil {
		upd.Set("weekday", *u.Weekday)
	}
	q, args := upd.Where(entsql.And(entsql.EQ("id", id), notDeleted())).Query()

	n, err := execStmt(ctx, r.drv, q, args)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at, freeing the professional's slot.
func (r *AppointmentRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.drv, tableAppointments, id)
}

func softDelete(ctx context.Context, drv dialect.Driver, table string, id uuid.UUID) error {
	now := time.Now().UTC()
	q, args := builder().Update(table).
		Set(colDeletedAt, now).
		Set("updated_at", now).
		Where(entsql.And(entsql.EQ("id", id), notDeleted())).
		Query()

	n, err := execStmt(ctx, drv, q, args)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func uuidArgs(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
