package databases

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is reported by a handle that was never connected.
	ErrNotConnected = errors.New("database handle is not connected")
	// ErrClosed is reported by a handle after Disconnect.
	ErrClosed = errors.New("database handle is closed")
	// ErrNoRecord is returned by DBClient.FindOne when nothing matches.
	// The record store turns it into an absent result.
	ErrNoRecord = errors.New("no record matches the filter")
)

// Kind classifies a PersistenceError.
type Kind int

const (
	KindWrite Kind = iota
	KindQuery
	KindValidation
	KindDuplicateKey
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindValidation:
		return "validation"
	case KindDuplicateKey:
		return "duplicate_key"
	default:
		return "write"
	}
}

// PersistenceError is returned when the database rejects an operation.
type PersistenceError struct {
	Op         string
	Collection string
	Kind       Kind
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s on %s failed (%s): %v", e.Op, e.Collection, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ConnectionError reports an initial or ongoing link failure.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err unless it already is a ConnectionError or PersistenceError.
func NewPersistenceError(op, collection string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionError(err) || IsPersistenceError(err) {
		return err
	}
	return &PersistenceError{Op: op, Collection: collection, Kind: kind, Err: err}
}

// NewValidationError builds a PersistenceError of kind validation.
func NewValidationError(op, collection string, format string, args ...interface{}) error {
	return &PersistenceError{
		Op:         op,
		Collection: collection,
		Kind:       KindValidation,
		Err:        fmt.Errorf(format, args...),
	}
}

// IsConnectionError reports whether err is, or wraps, a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsPersistenceError reports whether err is, or wraps, a PersistenceError.
func IsPersistenceError(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr)
}

// IsValidation reports whether err is a PersistenceError of kind validation.
func IsValidation(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr) && perr.Kind == KindValidation
}

// IsDuplicateKey reports whether err is a PersistenceError of kind duplicate key.
func IsDuplicateKey(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr) && perr.Kind == KindDuplicateKey
}
