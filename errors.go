package challengeq

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an [Error] as caller-correctable or backend-side. An
// outer transport layer typically maps KindClient to a 4xx status and
// KindServer to a 5xx status.
type ErrorKind int

const (
	// KindClient marks errors caused by invalid input. Client errors are
	// always detected before any write happens, so they never leave partial
	// state behind.
	KindClient ErrorKind = iota
	// KindServer marks backend failures: storage access, hashing, event
	// delivery. Server errors can occur after partial writes.
	KindServer
)

// Machine-readable error codes carried by [Error]. The numbering groups
// client errors under 10xxx and server errors under 20xxx.
const (
	CodeInvalidUser            = "CQE-10001"
	CodeDuplicateAnswers       = "CQE-10002"
	CodeQuestionNotRegistered  = "CQE-10003"
	CodeMissingQuestionDetails = "CQE-10004"
	CodeInvalidQuestionValue   = "CQE-10005"
	CodeInvalidLocale          = "CQE-10006"
	CodeInvalidPathParam       = "CQE-10007"
	CodeRecoveryDisabled       = "CQE-10008"
	CodeInsufficientAnswers    = "CQE-10009"
	CodeAnswerMismatch         = "CQE-10010"
	CodeInvalidAssertion       = "CQE-10011"
	CodeStorageFailure         = "CQE-20001"
	CodeAttributeStoreFailure  = "CQE-20002"
	CodeEventDeliveryFailure   = "CQE-20003"
	CodePartialDeleteFailure   = "CQE-20004"
	CodeRecoveryAssertion      = "CQE-20005"
)

// Error is the tagged error type returned by every challengeq operation that
// fails. It carries an [ErrorKind] for status mapping, a stable machine
// readable code, and a human readable message. The underlying cause, if any,
// is available through errors.Unwrap.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewClientError builds a client-kind [Error] with the given code and
// formatted message.
func NewClientError(code, format string, args ...any) *Error {
	return &Error{Kind: KindClient, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewServerError builds a server-kind [Error] wrapping cause. A nil cause is
// allowed.
func NewServerError(code string, cause error, format string, args ...any) *Error {
	return &Error{Kind: KindServer, Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// IsClientError reports whether err is (or wraps) a client-kind [Error].
func IsClientError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindClient
}

// IsServerError reports whether err is (or wraps) a server-kind [Error].
func IsServerError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindServer
}

// asTaggedError passes through an error that already carries a kind
// classification, and otherwise wraps it as a server error with the given
// code. Used at collaborator boundaries (event sink, attribute store) where
// the collaborator's own classification must not be reinterpreted.
func asTaggedError(err error, fallbackCode, format string, args ...any) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewServerError(fallbackCode, err, format, args...)
}
