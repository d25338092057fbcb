package db

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrInsufficientStock is returned when a decrement would take stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStatusConflict is returned when a conditional status update finds a
	// status other than the one the caller observed.
	ErrStatusConflict = errors.New("status changed concurrently")
	// ErrStockOverflow is returned when an increment would push stock past MaxStock.
	ErrStockOverflow = errors.New("stock would exceed the column range")
)

// MaxStock is the largest value the products.stock INTEGER column holds.
const MaxStock = math.MaxInt32

const (
	pgUniqueViolation   = "23505"
	pgCheckViolation    = "23514"
	pgNumericOutOfRange = "22003"
)

// StockShortageError carries the authoritative stock seen when a decrement was refused.
type StockShortageError struct {
	ProductID uuid.UUID
	Available int
	Requested int
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

func (e *StockShortageError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, only that
// constraint matches.
func IsUniqueViolation(err error, constraintName string) bool {
	return isViolation(err, pgUniqueViolation, constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsCheckViolation reports whether the error stems from a CHECK constraint,
// such as the non-negative stock guard.
func IsCheckViolation(err error, constraintName string) bool {
	return isViolation(err, pgCheckViolation, constraintName, "violates check constraint", "CHECK constraint failed")
}

// IsNumericOutOfRange reports whether a value overflowed its column type.
func IsNumericOutOfRange(err error) bool {
	return isViolation(err, pgNumericOutOfRange, "", "integer out of range", "value out of range")
}

func isViolation(err error, pgCode, constraintName string, markers ...string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == pgCode {
		return constraintName == "" || pgxErr.ConstraintName == constraintName
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgCode {
		return constraintName == "" || pqErr.Constraint == constraintName
	}

	// sqlite and wrapped driver errors only expose text
	msg := err.Error()
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
