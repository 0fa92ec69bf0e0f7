package schemarecon

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a failed DDL statement or database round-trip.
type ErrorKind string

const (
	// BenignRace means the object the statement tried to create already
	// exists, because a concurrent run or an earlier partial run created it.
	// Operations failing this way are tolerated.
	BenignRace ErrorKind = "benign_race"
	// PreconditionMissing means a table or column the operation depends on
	// does not exist.
	PreconditionMissing ErrorKind = "precondition_missing"
	// ConnectionError means the database could not be reached or the
	// connection was lost.
	ConnectionError ErrorKind = "connection_error"
	// MalformedOperation means the operation itself is invalid: bad syntax, an
	// unknown type, or a kind the dialect cannot express.
	MalformedOperation ErrorKind = "malformed_operation"
	// InsufficientPrivilege means the database user may not run the statement.
	InsufficientPrivilege ErrorKind = "insufficient_privilege"
	// UnknownError is any failure without a more specific classification.
	UnknownError ErrorKind = "unknown_error"
)

// Fatal reports whether an error of this kind aborts reconciliation.
func (k ErrorKind) Fatal() bool {
	return k != BenignRace
}

var (
	ErrPreconditionMissing   = errors.New("precondition missing")
	ErrConnection            = errors.New("connection error")
	ErrMalformedOperation    = errors.New("malformed operation")
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case PreconditionMissing:
		return ErrPreconditionMissing
	case ConnectionError:
		return ErrConnection
	case MalformedOperation:
		return ErrMalformedOperation
	case InsufficientPrivilege:
		return ErrInsufficientPrivilege
	}
	return nil
}

// OperationError is returned by [Reconciler.Reconcile] when an operation
// fails fatally. It matches the sentinel error of its Kind with [errors.Is],
// as well as the underlying driver error.
type OperationError struct {
	Target    string
	Operation Operation
	Kind      ErrorKind
	// Object is the missing table or column, set for [PreconditionMissing].
	Object *Object
	Err    error
}

func (e *OperationError) Error() string {
	msg := string(e.Kind)
	if e.Target != "" {
		msg = fmt.Sprintf("%s: %s", e.Target, msg)
	}
	if e.Operation.Kind != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Operation)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	return errs
}

// KindOf returns the kind of a fatal error returned by this package. Errors
// that did not come from an [OperationError] but look like a lost connection
// are reported as [ConnectionError].
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var operr *OperationError
	if errors.As(err, &operr) {
		return operr.Kind
	}
	if isConnectionError(err) {
		return ConnectionError
	}
	return UnknownError
}

// isConnectionError recognises driver-independent signs of a dead connection.
// Dialects add their own driver-specific checks on top.
func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var neterr net.Error
	return errors.As(err, &neterr)
}
