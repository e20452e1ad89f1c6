package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an ingestion failure.
type Kind int

const (
	KindInternal Kind = iota
	KindBadInput
	KindUnsupportedFormat
	KindPayloadTooLarge
	KindParseFailure
	KindEmptyData
	KindFetchFailure
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindBadInput:
		return "bad_input"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindParseFailure:
		return "parse_failure"
	case KindEmptyData:
		return "empty_data"
	case KindFetchFailure:
		return "fetch_failure"
	case KindBusy:
		return "busy"
	default:
		return "internal"
	}
}

// Error is the error type returned by every ingestion stage.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds an *Error with a formatted message.
func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Errorf builds an *Error of the given kind with no wrapped cause.
func Errorf(kind Kind, format string, args ...any) *Error {
	return newError(kind, nil, format, args...)
}

// KindOf returns the Kind of err. Errors that are not an *Error are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var kindMessages = map[Kind]UserMessage{
	KindBadInput: {
		Message: "The request could not be understood",
		Action:  "Check the URL and delimiter and try again",
		Code:    "REQ001",
	},
	KindPayloadTooLarge: {
		Message: "File size exceeds 100MB limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	},
	KindParseFailure: {
		Message: "The file could not be parsed",
		Action:  "Pick the delimiter explicitly and resubmit",
		Code:    "FILE002",
	},
	KindEmptyData: {
		Message: "File is empty or could not be parsed",
		Action:  "Upload a file with a header and at least one row",
		Code:    "FILE005",
	},
	KindUnsupportedFormat: {
		Message: "Unsupported file type. Allowed: csv, xlsx, xls, txt",
		Action:  "Convert the file to CSV or Excel",
		Code:    "FILE006",
	},
	KindFetchFailure: {
		Message: "Error fetching URL",
		Action:  "Check that the URL is reachable and try again",
		Code:    "NET001",
	},
	KindBusy: {
		Message: "Too many uploads in progress",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	},
}

// defaultMessage is returned when no specific kind matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if !IsKind(err, KindFetchFailure) {
			return UserMessage{
				Message: "Request timed out",
				Action:  "Try a smaller file or check your connection",
				Code:    "UPL005",
			}
		}
	}
	if msg, ok := kindMessages[KindOf(err)]; ok {
		return msg
	}
	return defaultMessage
}

// Detail returns the message shown to the caller for err. Anticipated kinds
// expose their own message; internal errors never leak technical detail.
func Detail(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return MapError(err).Message
	}
	return strings.TrimSpace(e.Error())
}
