package ir

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of a ledger error.
type ErrorCode string

const (
	// Validation kinds. Raised before any store access.
	CodeInvalidUsername    ErrorCode = "InvalidUsername"
	CodeInvalidDisplayName ErrorCode = "InvalidDisplayName"
	CodeInvalidCid         ErrorCode = "InvalidCid"
	CodeInvalidTopic       ErrorCode = "InvalidTopic"
	CodeInvalidArgument    ErrorCode = "InvalidArgument"

	// Store kinds.
	CodeAddressOccupied   ErrorCode = "AddressOccupied"
	CodeAddressNotFound   ErrorCode = "AddressNotFound"
	CodeUnauthorized      ErrorCode = "Unauthorized"
	CodeInsufficientFunds ErrorCode = "InsufficientFunds"
	CodeConstraintSeeds   ErrorCode = "ConstraintSeeds"
)

// ErrorClass groups codes by how a caller should react.
type ErrorClass string

const (
	ClassValidation    ErrorClass = "validation"
	ClassContention    ErrorClass = "contention"
	ClassAuthorization ErrorClass = "authorization"
	ClassTransfer      ErrorClass = "transfer"
)

// Class returns the error class of the code.
func (c ErrorCode) Class() ErrorClass {
	switch c {
	case CodeAddressOccupied, CodeAddressNotFound:
		return ClassContention
	case CodeUnauthorized, CodeConstraintSeeds:
		return ClassAuthorization
	case CodeInsufficientFunds:
		return ClassTransfer
	default:
		return ClassValidation
	}
}

// Retryable reports whether re-reading state and retrying can succeed
// without the caller changing its input.
func (c ErrorCode) Retryable() bool {
	return c.Class() == ClassContention
}

// Error is a ledger error with a machine-readable code.
type Error struct {
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Address is the record address or identity the error is about, if any.
	Address string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Address)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// NewFieldError creates a validation error for a field of the given length.
func NewFieldError(code ErrorCode, field string, length, max int) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s length %d outside 1..%d bytes", field, length, max),
	}
}

// NewArgumentError creates an InvalidArgument error.
func NewArgumentError(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NewOccupiedError creates an AddressOccupied error.
func NewOccupiedError(addr fmt.Stringer) *Error {
	return &Error{Code: CodeAddressOccupied, Message: "a live record already exists", Address: addr.String()}
}

// NewNotFoundError creates an AddressNotFound error.
func NewNotFoundError(addr fmt.Stringer) *Error {
	return &Error{Code: CodeAddressNotFound, Message: "no live record at address", Address: addr.String()}
}

// NewUnauthorizedError creates an Unauthorized error.
func NewUnauthorizedError(addr, authorizer fmt.Stringer) *Error {
	return &Error{
		Code:    CodeUnauthorized,
		Message: fmt.Sprintf("%s is not the record owner", authorizer),
		Address: addr.String(),
	}
}

// NewInsufficientFundsError creates an InsufficientFunds error.
func NewInsufficientFundsError(identity fmt.Stringer, have, need uint64) *Error {
	return &Error{
		Code:    CodeInsufficientFunds,
		Message: fmt.Sprintf("balance %d below required %d", have, need),
		Address: identity.String(),
	}
}

// NewSeedsError creates a ConstraintSeeds error.
func NewSeedsError(addr fmt.Stringer, want fmt.Stringer) *Error {
	return &Error{
		Code:    CodeConstraintSeeds,
		Message: fmt.Sprintf("address does not match seeds (want %s)", want),
		Address: addr.String(),
	}
}
