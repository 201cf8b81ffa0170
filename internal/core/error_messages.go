package core

// # Error Codes Reference
//
// Technical errors and violation category tags are mapped to user-friendly
// messages with a code users can quote when asking for help.
//
// # Validation (VAL001-VAL099)
//
//	VAL001 - Invalid price           Patterns: "invalid_price", "invalid price"
//	VAL002 - Invalid quantity        Patterns: "invalid_quantity", "invalid quantity"
//	VAL003 - Missing field           Patterns: "missing_field", "missing field"
//	VAL004 - Invalid condition       Patterns: "invalid_condition"
//	VAL005 - Title too long          Patterns: "invalid_title"
//	VAL006 - Invalid UPC             Patterns: "invalid_upc"
//	VAL007 - Invalid item ID         Patterns: "invalid_item_id", "item_id is required"
//
// # Files (FILE001-FILE099)
//
//	FILE001 - Invalid CSV            Patterns: "invalid csv"
//	FILE002 - Report not written     Patterns: "failure report could not be written"
//	FILE003 - Report unreadable      Patterns: "decode artifact", "open artifact"
//
// # Storage (DB001-DB099)
//
//	DB001 - Item not found           Patterns: "item not found", "not_found:item_id"
//	DB002 - Duplicate                Patterns: "unique constraint", "duplicate key"
//	DB003 - Rejected by database     Patterns: "check constraint", "constraint failed"
//	DB004 - Database busy            Patterns: "database is locked"
//	DB005 - Connection refused       Patterns: "connection refused"
//	DB006 - Timeout                  Patterns: "timeout", "deadline exceeded"
//
// # Queries (QRY001-QRY099)
//
//	QRY001 - Unknown field           Patterns: "unknown field"
//	QRY002 - Invalid filter          Patterns: "invalid filter"
//
// # Plugins and repair
//
//	PLG001 - Incompatible plugin     Patterns: "incompatible plugin"
//	REP001 - Repair declined         Patterns: "repair_declined", "repair declined"
//
// ERR000 is the fallback; check the log output for the technical error.

import (
	"fmt"
	"strings"
)

// UserMessage is a user-facing explanation of an error.
type UserMessage struct {
	Message string // What went wrong
	Action  string // What the user can do
	Code    string // Reference code
}

type errorPattern struct {
	patterns []string
	msg      UserMessage
}

// errorPatterns is searched in order; the first match wins.
var errorPatterns = []errorPattern{
	{
		patterns: []string{"invalid_price", "invalid price"},
		msg:      UserMessage{"Invalid price", "Use a non-negative number up to 999999.99, without text", "VAL001"},
	},
	{
		patterns: []string{"invalid_quantity", "invalid quantity"},
		msg:      UserMessage{"Invalid quantity", "Use a whole number between 0 and 999999", "VAL002"},
	},
	{
		patterns: []string{"missing_field:item_id", "item_id is required"},
		msg:      UserMessage{"Item ID is required", "Updates need the item_id column filled in", "VAL007"},
	},
	{
		patterns: []string{"missing_field", "missing field"},
		msg:      UserMessage{"A required field is missing", "Fill in every field listed in the report", "VAL003"},
	},
	{
		patterns: []string{"invalid_condition"},
		msg:      UserMessage{"Invalid condition", "Use one of: " + strings.Join(Conditions, ", "), "VAL004"},
	},
	{
		patterns: []string{"invalid_title"},
		msg:      UserMessage{"Title is too long for a target platform", "Shorten the title to 80 characters", "VAL005"},
	},
	{
		patterns: []string{"invalid_upc"},
		msg:      UserMessage{"Invalid UPC", "Use the 12 or 13 digit barcode number", "VAL006"},
	},
	{
		patterns: []string{"invalid_item_id"},
		msg:      UserMessage{"Invalid item ID", "Use the numeric ID shown by list, or leave it empty for new items", "VAL007"},
	},
	{
		patterns: []string{"invalid csv"},
		msg:      UserMessage{"The file is not in the expected CSV layout", "Use the header " + strings.Join(Columns, ","), "FILE001"},
	},
	{
		patterns: []string{"failure report could not be written"},
		msg:      UserMessage{"The failure report could not be saved", "Check that the failed-items directory is writable", "FILE002"},
	},
	{
		patterns: []string{"decode artifact", "open artifact"},
		msg:      UserMessage{"The failure report could not be read", "Pass a report written by import or update", "FILE003"},
	},
	{
		patterns: []string{"item not found", "not_found:item_id"},
		msg:      UserMessage{"Item not found", "Check the item_id against the list command", "DB001"},
	},
	{
		patterns: []string{"unique constraint", "duplicate key"},
		msg:      UserMessage{"This item already exists", "Leave item_id empty for new items", "DB002"},
	},
	{
		patterns: []string{"check constraint", "constraint failed"},
		msg:      UserMessage{"The database rejected the item", "Fix the values listed in the report and retry", "DB003"},
	},
	{
		patterns: []string{"database is locked"},
		msg:      UserMessage{"The database is busy", "Close other inventory commands and retry", "DB004"},
	},
	{
		patterns: []string{"connection refused"},
		msg:      UserMessage{"Unable to connect to database", "Check DATABASE_URL and that the server is running", "DB005"},
	},
	{
		patterns: []string{"timeout", "deadline exceeded"},
		msg:      UserMessage{"Operation timed out", "Please try again", "DB006"},
	},
	{
		patterns: []string{"unknown field"},
		msg:      UserMessage{"Unknown field", "Run the fields command to see names and shortcuts", "QRY001"},
	},
	{
		patterns: []string{"invalid filter"},
		msg:      UserMessage{"Invalid filter", "Use field:value, field:lo-hi or field:a,b", "QRY002"},
	},
	{
		patterns: []string{"incompatible plugin"},
		msg:      UserMessage{"A plugin was skipped", "Upgrade the plugin to a compatible version", "PLG001"},
	},
	{
		patterns: []string{"repair_declined", "repair declined"},
		msg:      UserMessage{"The row was not repaired", "Fix it in the failure report and run retry", "REP001"},
	},
	{
		patterns: []string{"persistence_failure", "persistence failure"},
		msg:      UserMessage{"The item could not be saved", "Run retry once the database problem is fixed", "DB003"},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Run with LOG_LEVEL=debug for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Patterns are matched case-insensitively; the first match wins.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	return MapTag(err.Error())
}

// MapTag maps a violation category tag or error text to a user message.
func MapTag(tag string) UserMessage {
	if tag == "" {
		return UserMessage{}
	}
	s := strings.ToLower(tag)
	for _, ep := range errorPatterns {
		for _, p := range ep.patterns {
			if strings.Contains(s, p) {
				return ep.msg
			}
		}
	}
	return defaultMessage
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

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
