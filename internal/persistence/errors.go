package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a row fails a check or required field.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced row is missing or still referenced.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrConflict is returned when a reservation overlaps a confirmed one.
	ErrConflict = errors.New("persistence: reservation conflict")
)
