package agenterr

import (
	"errors"
	"fmt"
)

// Kind classifies a handler failure so transports and tests can branch on it.
type Kind string

const (
	KindUsage        Kind = "usage_error"
	KindPrecondition Kind = "precondition_failed"
	KindExternal     Kind = "external_service_error"
	KindValidation   Kind = "validation_error"
	KindInternal     Kind = "internal_error"
	KindNone         Kind = ""
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyUserID       = errors.New("user id is required")
	ErrNotConfigured     = errors.New("collaborator not configured")
)

// Error is the single error shape produced at the handler boundary.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func Usage(message string) *Error {
	return &Error{Kind: KindUsage, Message: message}
}

func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// External wraps a collaborator failure. op names the call that failed.
func External(op string, err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Error{
		Kind:    KindExternal,
		Message: fmt.Sprintf("❌ Sorry, %s failed. Please try again later.", op),
		Detail:  detail,
		Err:     err,
	}
}

func Internal(detail string) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: "❌ Something went wrong while handling that message.",
		Detail:  detail,
	}
}

// KindOf returns the kind carried by err, or KindNone when err is not an *Error.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target.Kind
	}
	return KindNone
}

// UserText renders the message shown to the user. External failures carry
// their detail so operators can diagnose from a screenshot.
func (e *Error) UserText() string {
	if e == nil {
		return ""
	}
	if e.Kind == KindExternal && e.Detail != "" {
		return e.Message + "\nDetails: " + e.Detail
	}
	return e.Message
}
