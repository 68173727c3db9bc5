package repo

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Postgres error classes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const pqUniqueViolation = "23505"

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// IsDuplicate reports whether err comes from a unique constraint.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
