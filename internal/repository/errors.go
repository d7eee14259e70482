package repository

import (
	"errors"
	"strings"

	"github.com/uptrace/bun/driver/pgdriver"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert or update violates a uniqueness
// constraint. Callers that race on creation (federated provisioning) branch on
// this to fall back to the update path.
var ErrDuplicate = errors.New("duplicate record")

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err originates from a storage-level
// uniqueness constraint, for both the pgdriver and modernc sqlite drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	// modernc.org/sqlite reports SQLITE_CONSTRAINT_UNIQUE through its message.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// markDuplicate wraps unique-violation errors with ErrDuplicate so callers can
// use errors.Is without importing driver packages.
func markDuplicate(err error) error {
	if err != nil && IsUniqueViolation(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
