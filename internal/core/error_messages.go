package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Codes are grouped by category:
//
//	FILE001-FILE099  upload and CSV format problems
//	PER001-PER099    person lookups and payloads
//	DB001-DB099      store constraints and connectivity
//	UPL001-UPL099    import capacity and request lifetime
//	RATE001          request throttling
//	ERR000           anything else; check the server log for the cause
//
// Typed errors from this package are matched first. Errors that only reach
// us as text (driver messages) fall through to the pattern table, matched
// case-insensitively with strings.Contains; the first match wins.

import (
	"context"
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

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with a header row and consistent columns",
		Code:    "FILE002",
	}
	msgEncoding = UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save the file as UTF-8 or declare its charset",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "FILE005",
	}
	msgWrongType = UserMessage{
		Message: "File type not allowed",
		Action:  "Only .csv files are accepted",
		Code:    "FILE006",
	}
	msgBadRequest = UserMessage{
		Message: "The request could not be read",
		Action:  "Check the request body and try again",
		Code:    "FILE007",
	}

	msgNotFound = UserMessage{
		Message: "Person not found",
		Action:  "Verify the person ID",
		Code:    "PER001",
	}
	msgInvalidPerson = UserMessage{
		Message: "Person data is invalid",
		Action:  "Provide every person field; age must be a whole number and status a boolean",
		Code:    "PER002",
	}
	msgEmptyUpdate = UserMessage{
		Message: "No fields to update",
		Action:  "Send at least one person field",
		Code:    "PER003",
	}
	msgNothingImported = UserMessage{
		Message: "No records were imported",
		Action:  "Review the row errors and upload the corrected file",
		Code:    "PER004",
	}

	msgDuplicate = UserMessage{
		Message: "A record with this ID already exists",
		Action:  "Please try again",
		Code:    "DB001",
	}

	msgBusy = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL001",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL002",
	}
	msgTimedOut = UserMessage{
		Message: "Request timed out",
		Action:  "Try uploading a smaller file or try again later",
		Code:    "UPL003",
	}
)

// ErrNothingImported marks an import that completed without accepting a row.
var ErrNothingImported = errors.New("no records imported")

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// More specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{pattern: "duplicate key", msg: msgDuplicate},
	{pattern: "violates unique", msg: msgDuplicate},
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
	{pattern: "context deadline exceeded", msg: msgTimedOut},
	{pattern: "context canceled", msg: msgCancelled},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{pattern: "too many uploads", msg: msgBusy},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Typed
// errors are recognised through the wrap chain; other errors are matched
// against known patterns. Unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		oversize *OversizeError
		parseErr *ParseError
		reqErr   *RequestError
		valErr   *ValidationError
	)

	switch {
	case errors.As(err, &oversize):
		return msgFileTooLarge, true
	case errors.As(err, &parseErr):
		switch {
		case strings.Contains(parseErr.Message, "encoding"):
			return msgEncoding, true
		case strings.Contains(parseErr.Message, "empty file"):
			return msgEmptyFile, true
		}
		return msgInvalidCSV, true
	case errors.As(err, &reqErr):
		switch reqErr.Message {
		case MsgNoFile, MsgNoFileName:
			return msgNoFile, true
		case MsgWrongFileType:
			return msgWrongType, true
		}
		return msgBadRequest, true
	case errors.As(err, &valErr):
		return msgInvalidPerson, true
	case errors.Is(err, ErrEmptyUpdate):
		return msgEmptyUpdate, true
	case errors.Is(err, ErrNotFound):
		return msgNotFound, true
	case errors.Is(err, ErrAlreadyExists):
		return msgDuplicate, true
	case errors.Is(err, ErrNothingImported):
		return msgNothingImported, true
	case errors.Is(err, ErrTooManyUploads):
		return msgBusy, true
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimedOut, true
	case errors.Is(err, context.Canceled):
		return msgCancelled, true
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback. Errors that are not user facing should be logged in full.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
