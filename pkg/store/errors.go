// Package store is the PostgreSQL persistence layer for batches, sales and
// admin credentials
package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateCode     = errors.New("code already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
