package undo

import "fmt"

// RestoreError is returned by Restore when the supplied blob is corrupt:
// its length isn't a whole multiple of the record width, or it claims more
// requests than the manager has capacity for. It is a normal, recoverable
// error reported to the startup path, never a programming bug.
type RestoreError struct {
	Message string
}

func (e RestoreError) Error() string {
	return fmt.Sprintf("%s", e.Message)
}

// NewRestoreError creates a new instance of RestoreError with the given message.
func NewRestoreError(message string) RestoreError {
	return RestoreError{Message: message}
}

// RequestNotFoundError describes a lookup by fxid that found no request
// listed in byFxid. No Manager operation returns it: SuspendPrepared treats
// an unknown fxid as an invariant violation and panics.
type RequestNotFoundError struct {
	Message string
}

func (e RequestNotFoundError) Error() string {
	return fmt.Sprintf("%s", e.Message)
}

// NewRequestNotFoundError creates a new instance of RequestNotFoundError with the given message.
func NewRequestNotFoundError(message string) RequestNotFoundError {
	return RequestNotFoundError{Message: message}
}

// InvariantViolation is panicked when the manager or one of its callers
// breaks an invariant that should be structurally impossible to break: a
// duplicate key insert, a reschedule that can't obtain a node, a corrupted
// cursor. Every such case is a bug in this package or its caller, never a
// condition a correct program can hit at runtime, so it is fatal rather
// than returned as an error.
type InvariantViolation struct {
	Message string
}

func (e InvariantViolation) Error() string {
	return fmt.Sprintf("%s", e.Message)
}

func panicInvariant(format string, args ...interface{}) {
	panic(InvariantViolation{Message: fmt.Sprintf(format, args...)})
}
