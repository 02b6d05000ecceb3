// Package repository implements the persistence layer over MySQL. The
// sentinel errors defined here let the service layer distinguish failure
// scenarios without inspecting driver errors: uniqueness conflicts at
// registration map to the two Exists errors, and lookups that match no
// row map to ErrNotFound.
package repository

import "errors"

// ErrNotFound is returned by lookup methods when no row matches.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when a registration collides with an
// existing username.
var ErrUsernameExists = errors.New("username already exists")

// ErrEmailExists is returned when a registration collides with an
// existing email address.
var ErrEmailExists = errors.New("email already registered")
