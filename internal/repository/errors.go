package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrReferenced means the row is still referenced by another row (foreign key).
	ErrReferenced = errors.New("referenced by other rows")
	// ErrConstraint is a CHECK constraint violation, e.g. a negative seat count.
	ErrConstraint = errors.New("constraint violation")
	// ErrSerialization is a serialization failure or deadlock; the transaction may be retried.
	ErrSerialization = errors.New("serialization failure")
)
