// Package errors defines the discriminated error type returned by the battle engine.
package errors

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain is the error domain attached to gRPC error details.
const Domain = "inscrybe.fight"

// Kind tags an engine error.
type Kind string

const (
	// KindInvalidAction rejects an action or response that fails validation.
	KindInvalidAction Kind = "INVALID_ACTION"
	// KindInsufficientResources rejects a play or activation the side cannot pay for.
	KindInsufficientResources Kind = "INSUFFICIENT_RESOURCES"
	// KindInvalidEvent reports an event a behavior corrupted or that cannot be settled.
	KindInvalidEvent Kind = "INVALID_EVENT"
	// KindInvalidPositionAccess reports an event addressing a card that does not exist.
	KindInvalidPositionAccess Kind = "INVALID_POSITION_ACCESS"
	// KindMaxStackSize reports settlement that did not terminate within the iteration ceiling.
	KindMaxStackSize Kind = "MAX_STACK_SIZE"
)

// Fatal reports whether the kind indicates a content or engine bug rather than a player mistake.
func (k Kind) Fatal() bool {
	switch k {
	case KindInvalidEvent, KindInvalidPositionAccess, KindMaxStackSize:
		return true
	default:
		return false
	}
}

// GRPCCode maps error kinds to gRPC status codes.
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case KindInvalidAction:
		return codes.InvalidArgument
	case KindInsufficientResources:
		return codes.FailedPrecondition
	case KindMaxStackSize:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// Error is the engine error with a kind tag and structured details.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// With returns a copy of e carrying an extra detail.
func (e *Error) With(key, value string) *Error {
	out := *e
	out.Details = make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

// InvalidAction is shorthand for New(KindInvalidAction, ...).
func InvalidAction(format string, args ...any) *Error {
	return Newf(KindInvalidAction, format, args...)
}

// InsufficientResources is shorthand for New(KindInsufficientResources, ...).
func InsufficientResources(format string, args ...any) *Error {
	return Newf(KindInsufficientResources, format, args...)
}

// InvalidEvent is shorthand for New(KindInvalidEvent, ...).
func InvalidEvent(format string, args ...any) *Error {
	return Newf(KindInvalidEvent, format, args...)
}

// InvalidPositionAccess is shorthand for New(KindInvalidPositionAccess, ...).
func InvalidPositionAccess(format string, args ...any) *Error {
	return Newf(KindInvalidPositionAccess, format, args...)
}

// KindOf extracts the kind from an error chain. ok is false for foreign errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsFatal reports whether err is an engine error of a fatal kind.
// Errors that are not engine errors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	k, ok := KindOf(err)
	if !ok {
		return true
	}
	return k.Fatal()
}

// ToGRPCStatus converts an error into a gRPC status error with ErrorInfo details.
// Fatal errors are reported without their internal message.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, "internal error")
	}

	message := e.Message
	if e.Kind.Fatal() {
		message = "battle engine failure"
	}
	st := status.New(e.Kind.GRPCCode(), message)
	withDetails, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   string(e.Kind),
		Domain:   Domain,
		Metadata: e.Details,
	})
	if detailErr != nil {
		return st.Err()
	}
	return withDetails.Err()
}
