package apidoc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the addressed entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a create would overwrite an entity.
	ErrDuplicate = errors.New("already exists")
)

// Error locates a failed document operation.
type Error struct {
	Op   string // e.g. "add model"
	Path string // e.g. "models.User"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func opErr(op, path string, err error) error {
	return &Error{Op: op, Path: path, Err: err}
}
