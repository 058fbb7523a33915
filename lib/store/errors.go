package store

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

// ErrCode classifies every error returned by the store.
type ErrCode uint64

const (
	ErrCNotFound           ErrCode = iota + 1 // 1: Document does not exist in the collection.
	ErrCCollectionNotFound                    // 2: Collection is not registered in the database.
	ErrCSerialization                         // 3: Stored data or caller payload is not valid JSON.
	ErrCIo                                    // 4: Filesystem failure while reading, writing or removing a snapshot.
	ErrCLockPoisoned                          // 5: A panic while holding a lock left it unusable.
	ErrCInvalidName                           // 6: Collection name can not be mapped to a snapshot file.
)

func (c ErrCode) String() string {
	switch c {
	case ErrCNotFound:
		return "NotFound"
	case ErrCCollectionNotFound:
		return "CollectionNotFound"
	case ErrCSerialization:
		return "Serialization"
	case ErrCIo:
		return "Io"
	case ErrCLockPoisoned:
		return "LockPoisoned"
	case ErrCInvalidName:
		return "InvalidName"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps an error code, a message and (optionally) the underlying cause.
// Two *Error values are considered equal by errors.Is when their codes match,
// so callers can test against the exported sentinels:
//
//	if errors.Is(err, store.ErrNotFound) { ... }
type Error struct {
	Code ErrCode // The error code
	Msg  string  // Human readable message
	Err  error   // Underlying cause (may be nil)
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound           = &Error{Code: ErrCNotFound, Msg: "document not found"}
	ErrCollectionNotFound = &Error{Code: ErrCCollectionNotFound, Msg: "collection not found"}
	ErrSerialization      = &Error{Code: ErrCSerialization, Msg: "serialization error"}
	ErrIo                 = &Error{Code: ErrCIo, Msg: "io error"}
	ErrLockPoisoned       = &Error{Code: ErrCLockPoisoned, Msg: "lock poisoned"}
	ErrInvalidName        = &Error{Code: ErrCInvalidName, Msg: "invalid collection name"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code, message and cause.
func NewError(code ErrCode, msg string, cause error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  cause,
	}
}

// CodeOf returns the error code of err, or 0 if err is not a store error.
func CodeOf(err error) ErrCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func ioError(msg string, cause error) *Error {
	return NewError(ErrCIo, msg, cause)
}

func serializationError(msg string, cause error) *Error {
	return NewError(ErrCSerialization, msg, cause)
}
