// Package repository contains all data access logic, separated from the
// HTTP handlers. This file defines sentinel errors shared across the
// repositories so handlers can translate failure modes into HTTP codes
// without inspecting driver-specific errors themselves.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// record owned by another account. Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrUsernameExists and ErrEmailExists signal sign-up/profile-update
// collisions with existing accounts. Handlers report them as per-field
// validation errors rather than surfacing a database error.
var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// Not-found sentinels, one per entity. Handlers translate these into 404.
var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrInvestigationNotFound = errors.New("investigation not found")
)
