package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by the gateway and service for unknown person IDs.
	ErrNotFound = errors.New("person not found")

	// ErrAlreadyExists is returned when a document ID is already taken.
	ErrAlreadyExists = errors.New("duplicate key: person already exists")

	// ErrEmptyUpdate is returned when an update carries no fields.
	ErrEmptyUpdate = errors.New("invalid update: no fields provided")
)

// RequestError is a caller mistake detected before any parsing happens:
// no file, empty selection, wrong file type or a malformed request body.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// OversizeError reports an upload larger than the configured maximum.
type OversizeError struct {
	Limit int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("file too large: limit is %d bytes", e.Limit)
}

// ParseError reports a file that could not be read as a CSV table.
// Line is the physical file line when known, 0 otherwise.
type ParseError struct {
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed write of one row.
type PersistenceError struct {
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store person: %v", e.Err)
	}
	return fmt.Sprintf("store person %s: %v", e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidationError reports a person payload that failed validation outside
// of a CSV import (single insert and updates).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid person: " + e.Reason
}
