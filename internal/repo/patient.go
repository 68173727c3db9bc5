package repo

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentPrivate   PaymentType = "private"
	PaymentInsurance PaymentType = "insurance"
)

// Patient is read-only here; records are maintained by the registration system.
type Patient struct {
	ID               uuid.UUID           `json:"id"`
	Name             string              `json:"name"`
	BirthDate        time.Time           `json:"birth_date"`
	Phone            string              `json:"phone"`
	GuardianName     string              `json:"guardian_name,omitempty"`
	GuardianDocument string              `json:"guardian_document,omitempty"`
	PaymentType      PaymentType         `json:"payment_type"`
	Fee              decimal.NullDecimal `json:"fee"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type DirectoryFilter struct {
	IDs    []uuid.UUID
	Search string // case-insensitive substring of the name
	Limit  int
	Offset int
}

var patientColumns = []string{
	"id", "name", "birth_date", "phone", "guardian_name", "guardian_document",
	"payment_type", "fee", "created_at", "updated_at",
}

type PatientRepo struct {
	drv dialect.Driver
}

func (r *PatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	items, err := r.List(ctx, DirectoryFilter{IDs: []uuid.UUID{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

func (r *PatientRepo) List(ctx context.Context, f DirectoryFilter) ([]*Patient, error) {
	q, args := directoryQuery(tablePatients, patientColumns, f)
	rows, err := queryRows(ctx, r.drv, q, args)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.BirthDate, &p.Phone, &p.GuardianName, &p.GuardianDocument,
			&p.PaymentType, &p.Fee, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func directoryQuery(table string, columns []string, f DirectoryFilter) (string, []any) {
	preds := []*entsql.Predicate{notDeleted()}
	if len(f.IDs) > 0 {
		preds = append(preds, entsql.In("id", uuidArgs(f.IDs)...))
	}
	if f.Search != "" {
		preds = append(preds, entsql.ContainsFold("name", f.Search))
	}
	sel := builder().Select(columns...).From(entsql.Table(table)).Where(entsql.And(preds...))
	sel.OrderBy(sel.C("name"))
	page(sel, f.Limit, f.Offset)
	return sel.Query()
}
