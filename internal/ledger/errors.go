package ledger

import (
	"errors"
	"fmt"
)

// CommandError reports a precondition violation detected before any
// persistence attempt. Command errors are explicit result outcomes, not
// control-flow exceptions: a failed command leaves the record set untouched.
type CommandError struct {
	// Code identifies the error category.
	Code CommandErrorCode

	// Message is a human-readable description.
	Message string

	// CouponCode identifies the affected code, when known.
	CouponCode string

	// Seq identifies the affected record, when known.
	Seq int64
}

// CommandErrorCode categorizes command errors.
type CommandErrorCode string

const (
	// ErrCodeMissingField indicates a required input was empty.
	ErrCodeMissingField CommandErrorCode = "MISSING_FIELD"

	// ErrCodeBadDate indicates a date input was not a calendar date.
	ErrCodeBadDate CommandErrorCode = "BAD_DATE"

	// ErrCodeNotAvailable indicates the code is not eligible for issuance
	// (its latest record is still outstanding, or it has no records).
	ErrCodeNotAvailable CommandErrorCode = "NOT_AVAILABLE"

	// ErrCodeNotOutstanding indicates the code has no open issuance to redeem.
	ErrCodeNotOutstanding CommandErrorCode = "NOT_OUTSTANDING"

	// ErrCodeNoSuchRecord indicates no record carries the target sequence
	// number, or no redemption target could be located.
	ErrCodeNoSuchRecord CommandErrorCode = "NO_SUCH_RECORD"

	// ErrCodeOffline indicates the backend is unreachable and the mutation
	// was rejected up front.
	ErrCodeOffline CommandErrorCode = "OFFLINE"
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	switch {
	case e.CouponCode != "" && e.Seq != 0:
		return fmt.Sprintf("%s: %s (code=%s, seq=%d)", e.Code, e.Message, e.CouponCode, e.Seq)
	case e.CouponCode != "":
		return fmt.Sprintf("%s: %s (code=%s)", e.Code, e.Message, e.CouponCode)
	case e.Seq != 0:
		return fmt.Sprintf("%s: %s (seq=%d)", e.Code, e.Message, e.Seq)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsCommandError reports whether err is (or wraps) a CommandError with the
// given code.
func IsCommandError(err error, code CommandErrorCode) bool {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// NewMissingFieldError creates a CommandError for an empty required input.
func NewMissingFieldError(field string) *CommandError {
	return &CommandError{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("required field %q is empty", field),
	}
}

// NewBadDateError creates a CommandError for a malformed date input.
func NewBadDateError(field, value string) *CommandError {
	return &CommandError{
		Code:    ErrCodeBadDate,
		Message: fmt.Sprintf("field %q is not a %s date: %q", field, DateLayout, value),
	}
}

// NewNotAvailableError creates a CommandError for an issuance against a code
// that is not available.
func NewNotAvailableError(code string) *CommandError {
	return &CommandError{
		Code:       ErrCodeNotAvailable,
		Message:    "code not available for issuance",
		CouponCode: code,
	}
}

// NewNotOutstandingError creates a CommandError for a redemption against a
// code with no open issuance.
func NewNotOutstandingError(code string) *CommandError {
	return &CommandError{
		Code:       ErrCodeNotOutstanding,
		Message:    "code not outstanding",
		CouponCode: code,
	}
}

// NewNoSuchRecordError creates a CommandError for a missing target record.
func NewNoSuchRecordError(seq int64) *CommandError {
	return &CommandError{
		Code:    ErrCodeNoSuchRecord,
		Message: "no record with that sequence number",
		Seq:     seq,
	}
}

// NewOfflineError creates a CommandError for a mutation attempted while the
// backend is unreachable.
func NewOfflineError() *CommandError {
	return &CommandError{
		Code:    ErrCodeOffline,
		Message: "backend unreachable, mutation rejected",
	}
}
