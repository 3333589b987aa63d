package importer

// errors.go maps import and store errors to user-facing messages with codes
// support staff can look up.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Missing required field: name, price or categoryId is blank
//	         Action: Fill in every required column and re-upload the failed rows
//	         Match: ValidationFailure with reason "missing required field"
//
//	IMP002 - Duplicate attribute: A row or variant sets the same attribute twice
//	         Action: Give each attribute one value per variant
//	         Match: catalog.ErrDuplicateAttribute
//
//	IMP003 - System busy: Too many imports running
//	         Action: Wait a moment and try again
//	         Match: ErrTooManyImports
//
//	IMP004 - Empty file: The file has no header or no data
//	         Action: Upload a file with a header row and at least one product
//	         Match: ErrEmptyInput
//
//	IMP005 - Unsupported format: Only .csv and .xlsx files are accepted
//	         Action: Export the sheet as CSV or XLSX
//	         Match: ErrUnsupportedFormat
//
//	IMP006 - Import cancelled: The run stopped before every row was processed
//	         Action: Check which rows were imported before re-running
//	         Match: context.Canceled
//
//	IMP007 - Import timed out
//	         Action: Split the file into smaller batches
//	         Match: context.DeadlineExceeded
//
//	IMP008 - Invalid attribute list
//	         Action: Use the form Color=Red;Size=M
//	         Patterns: "invalid attribute pair"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	          Action: Split the file into smaller chunks
//	          Match: ErrFileTooLarge
//
//	FILE002 - Invalid CSV
//	          Action: Check quoting, or disable quoted parsing
//	          Patterns: "invalid csv"
//
//	FILE003 - Invalid workbook
//	          Action: Re-save the file from Excel as .xlsx
//	          Patterns: "invalid xlsx"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate value: A slug or SKU already exists
//	        Action: Change the SKU or remove the duplicate row
//	        Match: store.ErrConflict; Patterns: "duplicate key", "unique constraint"
//
//	DB002 - Foreign key: A referenced record does not exist
//	        Action: Create the category or attribute first
//	        Match: store code 23503; Patterns: "foreign key"
//
//	DB003 - Connection refused
//	        Action: Try again in a few moments
//	        Patterns: "connection refused"
//
//	DB004 - Connection reset
//	        Action: Try again
//	        Patterns: "connection reset"
//
// # Default Error (ERR000)
//
// Returned when nothing matches; the technical error is in the logs.
//
// Sentinel errors are checked with errors.Is before any pattern. Patterns are
// matched case-insensitively with strings.Contains and the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/store"
)

// UserMessage is an error rendered for people rather than logs.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type sentinelMessage struct {
	match func(error) bool
	msg   UserMessage
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

var (
	msgMissingField = UserMessage{
		Message: "A required field is empty",
		Action:  "Fill in name, price and categoryId and re-upload the failed rows",
		Code:    "IMP001",
	}
	msgDuplicate = UserMessage{
		Message: "A slug or SKU already exists",
		Action:  "Change the SKU or remove the duplicate row",
		Code:    "DB001",
	}
	msgForeignKey = UserMessage{
		Message: "A referenced record does not exist",
		Action:  "Create the category or attribute first",
		Code:    "DB002",
	}
)

var sentinelMessages = []sentinelMessage{
	{
		match: func(err error) bool {
			var vf *ValidationFailure
			return errors.As(err, &vf) && vf.Reason == ReasonMissingRequired
		},
		msg: msgMissingField,
	},
	{
		match: is(catalog.ErrDuplicateAttribute),
		msg: UserMessage{
			Message: "The same attribute is set twice",
			Action:  "Give each attribute one value per variant",
			Code:    "IMP002",
		},
	},
	{
		match: is(ErrTooManyImports),
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Wait a moment and try again",
			Code:    "IMP003",
		},
	},
	{
		match: is(ErrEmptyInput),
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row and at least one product",
			Code:    "IMP004",
		},
	},
	{
		match: is(ErrUnsupportedFormat),
		msg: UserMessage{
			Message: "Only .csv and .xlsx files are accepted",
			Action:  "Export the sheet as CSV or XLSX",
			Code:    "IMP005",
		},
	},
	{
		match: is(context.Canceled),
		msg: UserMessage{
			Message: "The import was cancelled",
			Action:  "Check which rows were imported before re-running",
			Code:    "IMP006",
		},
	},
	{
		match: is(context.DeadlineExceeded),
		msg: UserMessage{
			Message: "The import timed out",
			Action:  "Split the file into smaller batches",
			Code:    "IMP007",
		},
	},
	{
		match: is(ErrFileTooLarge),
		msg: UserMessage{
			Message: "File exceeds the maximum size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{match: is(store.ErrConflict), msg: msgDuplicate},
	{
		match: func(err error) bool {
			var se *store.Error
			return errors.As(err, &se) && se.Code == store.CodeForeignKey
		},
		msg: msgForeignKey,
	},
}

var errorPatterns = []errorPattern{
	{
		pattern: "invalid attribute pair",
		msg: UserMessage{
			Message: "The attributes column could not be read",
			Action:  "Use the form Color=Red;Size=M",
			Code:    "IMP008",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not valid CSV",
			Action:  "Check quoting, or disable quoted parsing",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid xlsx",
		msg: UserMessage{
			Message: "File is not a valid workbook",
			Action:  "Re-save the file from Excel as .xlsx",
			Code:    "FILE003",
		},
	},
	{pattern: "duplicate key", msg: msgDuplicate},
	{pattern: "unique constraint", msg: msgDuplicate},
	{pattern: "foreign key", msg: msgForeignKey},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Try again",
			Code:    "DB004",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a user-facing message. Nil maps to the zero value.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if sm.match(err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
