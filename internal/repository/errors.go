// Package repository defines the MySQL data access layer of every service
// and the error values reused across repositories.  These sentinel values
// let the service layer distinguish failure scenarios without inspecting
// driver errors.  They are juju/errors ConstErrors so errors.Is works
// through annotations added with errors.Annotate/Trace.
package repository

import "github.com/juju/errors"

// ErrNotFound is returned when a row with the requested key does not exist.
const ErrNotFound = errors.ConstError("not found")

// ErrConflict is returned when a conditional update matched no row because
// another writer changed the row first (status moved on, version bumped).
// The service layer translates this into a 409 or an InvalidTransition.
const ErrConflict = errors.ConstError("conflict")

// ErrDuplicate is returned when an insert violates a unique key, e.g. an
// email that is already registered or a second profile for one identity.
const ErrDuplicate = errors.ConstError("duplicate")
