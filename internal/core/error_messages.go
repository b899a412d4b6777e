package core

// error_messages.go maps technical errors to user-friendly messages with
// codes for support reference.
//
// # Capture Errors (CAP001-CAP099)
//
//	CAP001 - Invalid date: a date/time value did not match its layout
//	CAP002 - Capture disabled: the form does not store leads
//	CAP003 - Submission failed: anything else during capture (storage details hidden)
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Unknown export configuration
//	EXP002 - Unknown exporter type
//	EXP003 - Exporter wiring defect (integrity)
//	EXP004 - Too many exports in progress
//	EXP005 - Unknown form
//
// # Database Errors (DB001-DB099)
//
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//
// # Default Error (ERR000)
//
// Typed errors are matched first with errors.As; untyped errors fall back to
// case-insensitive substring patterns. The first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgInvalidDate = UserMessage{
		Message: "A date or time value has the wrong format",
		Action:  "Correct the highlighted value and submit again",
		Code:    "CAP001",
	}
	msgCaptureDisabled = UserMessage{
		Message: "This form does not store submissions",
		Action:  "Enable lead storage on the form",
		Code:    "CAP002",
	}
	msgCaptureFailed = UserMessage{
		Message: "Your submission could not be saved",
		Action:  "Please try again later",
		Code:    "CAP003",
	}
	msgIntegrity = UserMessage{
		Message: "The export could not be produced because of a configuration defect",
		Action:  "Contact the administrator",
		Code:    "EXP003",
	}
)

var notFoundMessages = map[string]UserMessage{
	"export config": {
		Message: "Export configuration not found",
		Action:  "Check the export configuration id",
		Code:    "EXP001",
	},
	"exporter": {
		Message: "Unknown export type",
		Action:  "Choose one of the available export types",
		Code:    "EXP002",
	},
	"form": {
		Message: "Form not found",
		Action:  "Check the form id",
		Code:    "EXP005",
	},
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	{
		pattern: "too many concurrent exports",
		msg: UserMessage{
			Message: "Too many exports in progress",
			Action:  "Please wait a moment and try again",
			Code:    "EXP004",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller export or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller export or try again later",
			Code:    "DB006",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		msg := msgInvalidDate
		if ve.Field != "" {
			msg.Message = fmt.Sprintf("%s (field %s)", msg.Message, ve.Field)
		}
		return msg
	}
	if IsDisabled(err) {
		return msgCaptureDisabled
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		msg, ok := notFoundMessages[nf.Kind]
		if !ok {
			msg = UserMessage{Message: "Not found", Action: "Check the request", Code: "EXP001"}
		}
		msg.Message = fmt.Sprintf("%s: %s", msg.Message, nf.Key)
		return msg
	}
	if IsIntegrity(err) {
		return msgIntegrity
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// MapCaptureError is MapError for submitters: anything that is not a
// validation problem becomes a generic failure so storage details never
// reach the form.
func MapCaptureError(err error) UserMessage {
	msg := MapError(err)
	switch msg.Code {
	case msgInvalidDate.Code, msgCaptureDisabled.Code, "":
		return msg
	default:
		return msgCaptureFailed
	}
}

// FormatUserError formats an error as a user-friendly string with code and action.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
