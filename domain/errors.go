package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references an identifier that
// does not exist in the store.
var ErrNotFound = errors.New("not found")

// NotFoundError names the entity kind and identifier that could not be found.
// It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError for the given entity kind.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Entity kinds used in errors and events.
const (
	EntityProject    = "project"
	EntityTask       = "task"
	EntityUser       = "user"
	EntityComment    = "comment"
	EntityAttachment = "attachment"
)
