package app

import (
	"errors"
	"fmt"
)

// Kind classifies failures for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindTooLarge
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooLarge:
		return "too_large"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a caller-facing failure with a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on code so that errors built with WithMessage still compare
// equal to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage copies the error with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidInput      = &Error{KindValidation, "invalid_input", "invalid input"}
	ErrUsernameExists    = &Error{KindValidation, "username_exists", "username already exists"}
	ErrEmailExists       = &Error{KindValidation, "email_exists", "email already exists"}
	ErrInvalidCredential = &Error{KindUnauthenticated, "invalid_credentials", "invalid username or password"}
	ErrUnauthenticated   = &Error{KindUnauthenticated, "unauthenticated", "authentication required"}

	ErrSessionNotFound = &Error{KindNotFound, "session_not_found", "session not found"}
	ErrProductNotFound = &Error{KindNotFound, "product_not_found", "product not found"}
	ErrForbidden       = &Error{KindForbidden, "forbidden", "not allowed"}
	ErrSessionClaimed  = &Error{KindConflict, "session_claimed", "session already claimed"}

	ErrEmptyMessage        = &Error{KindValidation, "empty_message", "message or attachment required"}
	ErrAttachmentNotFound  = &Error{KindNotFound, "attachment_not_found", "attachment not found"}
	ErrAttachmentMismatch  = &Error{KindForbidden, "attachment_mismatch", "attachment does not belong to this session"}
	ErrAttachmentForbidden = &Error{KindForbidden, "attachment_forbidden", "attachment not owned by user"}

	ErrNoFile         = &Error{KindValidation, "no_file", "no file uploaded"}
	ErrFileTooLarge   = &Error{KindTooLarge, "file_too_large", "file is too large"}
	ErrUploadPartial  = &Error{KindValidation, "upload_partial", "file was only partially uploaded"}
	ErrFileTypeDenied = &Error{KindValidation, "file_type_not_allowed", "file type is not allowed"}
	ErrUploadFailed   = &Error{KindInternal, "upload_failed", "upload failed"}
	ErrNoAgents       = &Error{KindUnavailable, "no_agents", "no agents configured"}
)

// KindOf returns the kind of err, KindInternal when it is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
