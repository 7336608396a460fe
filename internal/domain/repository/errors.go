package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica que el recurso ya existe.
	ErrConflict = errors.New("conflict")
)
