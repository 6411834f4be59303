package apperror

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeDuplicateName   Code = "DUPLICATE_NAME"
	CodeDuplicateSlug   Code = "DUPLICATE_SLUG"
	CodeInvalidRoleSet  Code = "INVALID_ROLE_SET"
	CodeAlreadyAssigned Code = "ALREADY_ASSIGNED"
	CodeChannelArchived Code = "CHANNEL_ARCHIVED"
	CodeEmptyContent    Code = "EMPTY_CONTENT"
	CodeInternal        Code = "INTERNAL"
)

// Error carries a machine-readable code alongside the message so controllers
// can map permission failures ("ask an admin") apart from access failures
// ("you don't have this role") without string matching.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Unauthorized(msg string) error    { return New(CodeUnauthorized, msg) }
func Forbidden(msg string) error       { return New(CodeForbidden, msg) }
func NotFound(msg string) error        { return New(CodeNotFound, msg) }
func DuplicateName(msg string) error   { return New(CodeDuplicateName, msg) }
func DuplicateSlug(msg string) error   { return New(CodeDuplicateSlug, msg) }
func InvalidRoleSet(msg string) error  { return New(CodeInvalidRoleSet, msg) }
func AlreadyAssigned(msg string) error { return New(CodeAlreadyAssigned, msg) }
func ChannelArchived(msg string) error { return New(CodeChannelArchived, msg) }
func EmptyContent(msg string) error    { return New(CodeEmptyContent, msg) }
func Internal(msg string, cause error) error {
	return Wrap(CodeInternal, msg, cause)
}

// CodeOf extracts the code from any error in the chain, defaulting to
// CodeInternal for plain errors.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
