// Package repo is the Postgres persistence layer. Queries are composed with
// ent's dialect/sql builders and run on a dialect.Driver, so the same code
// works over a plain connection, a debug driver, or a transaction.
package repo

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableAppointments  = "appointments"
	tableVisits        = "visits"
	tablePatients      = "patients"
	tableProfessionals = "professionals"

	colDeletedAt = "deleted_at"
)

// Client bundles the repositories sharing one driver.
type Client struct {
	drv dialect.Driver

	Appointment  *AppointmentRepo
	Visit        *VisitRepo
	Patient      *PatientRepo
	Professional *ProfessionalRepo
}

func NewClient(drv dialect.Driver) *Client {
	return &Client{
		drv:          drv,
		Appointment:  &AppointmentRepo{drv: drv},
		Visit:        &VisitRepo{drv: drv},
		Patient:      &PatientRepo{drv: drv},
		Professional: &ProfessionalRepo{drv: drv},
	}
}

func (c *Client) Close() error {
	return c.drv.Close()
}

// Ping runs a trivial query against the database.
func (c *Client) Ping(ctx context.Context) error {
	rows := &entsql.Rows{}
	if err := c.drv.Query(ctx, "SELECT 1", []any{}, rows); err != nil {
		return err
	}
	return rows.Close()
}

// Migrate applies the embedded SQL migrations.
func (c *Client) Migrate(ctx context.Context) ([]string, error) {
	return migrate(ctx, c.drv)
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.Postgres)
}

func execStmt(ctx context.Context, drv dialect.Driver, q string, args []any) (int64, error) {
	var res sql.Result
	if err := drv.Exec(ctx, q, args, &res); err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func queryRows(ctx context.Context, drv dialect.Driver, q string, args []any) (*entsql.Rows, error) {
	rows := &entsql.Rows{}
	if err := drv.Query(ctx, q, args, rows); err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func notDeleted() *entsql.Predicate {
	return entsql.IsNull(colDeletedAt)
}

func page(sel *entsql.Selector, limit, offset int) {
	if limit > 0 {
		sel.Limit(limit)
	}
	if offset > 0 {
		sel.Offset(offset)
	}
}
