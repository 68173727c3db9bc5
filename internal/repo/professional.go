package repo

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Professional is read-only here.
type Professional struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Specialty        string          `json:"specialty"`
	PayoutPercentage decimal.Decimal `json:"payout_percentage"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

var professionalColumns = []string{
	"id", "name", "specialty", "payout_percentage", "created_at", "updated_at",
}

type ProfessionalRepo struct {
	drv dialect.Driver
}

func (r *ProfessionalRepo) GetByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	items, err := r.List(ctx, DirectoryFilter{IDs: []uuid.UUID{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

func (r *ProfessionalRepo) List(ctx context.Context, f DirectoryFilter) ([]*Professional, error) {
	q, args := directoryQuery(tableProfessionals, professionalColumns, f)
	rows, err := queryRows(ctx, r.drv, q, args)
	if err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}
	defer rows.Close()

	var out []*Professional
	for rows.Next() {
		var p Professional
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.PayoutPercentage, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan professional: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
