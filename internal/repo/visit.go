package repo

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// Visit records that an appointment is (or was meant to be) attended.
type Visit struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	Confirmed     bool       `json:"confirmed"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"-"`
}

// VisitFilter narrows List. Zero fields are ignored.
type VisitFilter struct {
	IDs            []uuid.UUID
	AppointmentIDs []uuid.UUID
	ProfessionalID *uuid.UUID // via the owning appointment
	PatientID      *uuid.UUID // via the owning appointment
	From           *time.Time
	To             *time.Time
	Before         *time.Time
	Confirmed      *bool
	Ascending      bool
	Limit          int
	Offset         int
}

type VisitUpdate struct {
	ScheduledAt *time.Time
	Confirmed   *bool
}

var visitColumns = []string{
	"id", "appointment_id", "scheduled_at", "confirmed", "created_at", "updated_at",
}

type VisitRepo struct {
	drv dialect.Driver
}

// Create inserts v. A second live visit for the same appointment yields ErrDuplicate.
func (r *VisitRepo) Create(ctx context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now

	q, args := builder().Insert(tableVisits).
		Columns(visitColumns...).
		Values(v.ID, v.AppointmentID, v.ScheduledAt, v.Confirmed, v.CreatedAt, v.UpdatedAt).
		Query()
	if _, err := execStmt(ctx, r.drv, q, args); err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (r *VisitRepo) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return r.first(ctx, VisitFilter{IDs: []uuid.UUID{id}})
}

// GetByAppointment returns the live visit of an appointment.
func (r *VisitRepo) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Visit, error) {
	return r.first(ctx, VisitFilter{AppointmentIDs: []uuid.UUID{appointmentID}})
}

func (r *VisitRepo) first(ctx context.Context, f VisitFilter) (*Visit, error) {
	f.Limit = 1
	items, err := r.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

func (r *VisitRepo) List(ctx context.Context, f VisitFilter) ([]*Visit, error) {
	q, args := visitListQuery(f)
	rows, err := queryRows(ctx, r.drv, q, args)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var out []*Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.AppointmentID, &v.ScheduledAt, &v.Confirmed, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func visitListQuery(f VisitFilter) (string, []any) {
	preds := []*entsql.Predicate{notDeleted()}
	if len(f.IDs) > 0 {
		preds = append(preds, entsql.In("id", uuidArgs(f.IDs)...))
	}
	if len(f.AppointmentIDs) > 0 {
		preds = append(preds, entsql.In("appointment_id", uuidArgs(f.AppointmentIDs)...))
	}
	if f.ProfessionalID != nil || f.PatientID != nil {
		owner := []*entsql.Predicate{notDeleted()}
		if f.ProfessionalID != nil {
			owner = append(owner, entsql.EQ("professional_id", *f.ProfessionalID))
		}
		if f.PatientID != nil {
			owner = append(owner, entsql.EQ("patient_id", *f.PatientID))
		}
		sub := builder().Select("id").From(entsql.Table(tableAppointments)).Where(entsql.And(owner...))
		preds = append(preds, entsql.In("appointment_id", sub))
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
	if f.Confirmed != nil {
		preds = append(preds, entsql.EQ("confirmed", *f.Confirmed))
	}

	sel := builder().Select(visitColumns...).From(entsql.Table(tableVisits)).Where(entsql.And(preds...))
	if f.Ascending {
		sel.OrderBy(sel.C("scheduled_at"))
	} else {
		sel.OrderBy(entsql.Desc(sel.C("scheduled_at")))
	}
	page(sel, f.Limit, f.Offset)
	return sel.Query()
}

// ConfirmedAppointments returns the subset of appointmentIDs that have a live
// confirmed visit.
func (r *VisitRepo) ConfirmedAppointments(ctx context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	if len(appointmentIDs) == 0 {
		return out, nil
	}

	q, args := builder().Select("appointment_id").
		From(entsql.Table(tableVisits)).
		Where(entsql.And(
			notDeleted(),
			entsql.EQ("confirmed", true),
			entsql.In("appointment_id", uuidArgs(appointmentIDs)...),
		)).
		Query()

	rows, err := queryRows(ctx, r.drv, q, args)
	if err != nil {
		return nil, fmt.Errorf("confirmed appointments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan appointment id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *VisitRepo) Update(ctx context.Context, id uuid.UUID, u VisitUpdate) error {
	upd := builder().Update(tableVisits).Set("updated_at", time.Now().UTC())
	if u.ScheduledAt != nil {
		upd.Set("scheduled_at", *u.ScheduledAt)
	}
	if u.Confirmed != nil {
		upd.Set("confirmed", *u.Confirmed)
	}
	q, args := upd.Where(entsql.And(entsql.EQ("id", id), notDeleted())).Query()

	n, err := execStmt(ctx, r.drv, q, args)
	if err != nil {
		return fmt.Errorf("update visit: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VisitRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.drv, tableVisits, id)
}
