package core

// error_messages.go maps technical errors to user-facing messages with codes
// that can be quoted to support.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A slab with this identity already exists
//	        Patterns: "duplicate key", "violates unique"
//	DB002 - Store unavailable: Inventory database is unreachable
//	        Patterns: "store unavailable", "connection refused", "connection reset"
//	DB003 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing field: A row or form is missing a required value
//	         Patterns: "missing required field", "is required", "cannot be empty"
//	VAL002 - Insufficient quantity: Subtraction would make stock negative
//	         Patterns: "insufficient quantity"
//	VAL003 - Invalid status: Status is not one of the form statuses
//	         Patterns: "invalid status"
//	VAL004 - Invalid quantity: Quantity is not a usable whole number
//	         Patterns: "must be a whole number", "must be at least", "cannot be negative"
//	VAL005 - Invalid category: Category is not current or development
//	         Patterns: "must be current or development"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Empty file: No header and data rows found
//	          Patterns: "empty file"
//	FILE003 - No file provided
//	          Patterns: "no file provided"
//	FILE004 - Workbook could not be read
//	          Patterns: "unreadable workbook"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy: Too many imports in progress
//	         Patterns: "too many concurrent imports"
//	IMP002 - Preview expired: The preview token is unknown or expired
//	         Patterns: "preview not found"
//	IMP003 - Unsupported resolution: Separate duplicate records are not allowed
//	         Patterns: "unsupported resolution"
//	IMP004 - No pending confirmation
//	         Patterns: "no duplicate confirmation is pending"
//
// # Slab Errors (SLB001-SLB099)
//
//	SLB001 - Slab not found
//	         Patterns: "slab not found"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	         Patterns: "context canceled"
//	REQ002 - Request timeout
//	         Patterns: "context deadline exceeded", "timeout"
//	REQ003 - Rate limited
//	         Patterns: "rate limit"
//	REQ004 - Malformed request
//	         Patterns: "invalid request body", "invalid query parameter"
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins. ERR000 is the fallback; check the logs for the original
// error when a user reports it.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgDuplicateKey = UserMessage{
		Message: "A slab with this identity already exists",
		Action:  "Refresh the inventory and edit the existing slab instead",
		Code:    "DB001",
	}
	msgUnavailable = UserMessage{
		Message: "Inventory database is unreachable",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}
	msgMissingField = UserMessage{
		Message: "A required value is missing",
		Action:  "Fill in slab ID and family before saving",
		Code:    "VAL001",
	}
	msgInvalidQuantity = UserMessage{
		Message: "Quantity is not valid",
		Action:  "Enter a whole number of slabs",
		Code:    "VAL004",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgBadRequest = UserMessage{
		Message: "The request could not be understood",
		Action:  "Check the request body and query parameters",
		Code:    "REQ004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ002",
	}
)

// errorPatterns is ordered specific before general.
var errorPatterns = []errorPattern{
	// Database
	{pattern: "duplicate key", msg: msgDuplicateKey},
	{pattern: "violates unique", msg: msgDuplicateKey},
	{pattern: "store unavailable", msg: msgUnavailable},
	{pattern: "connection refused", msg: msgUnavailable},
	{pattern: "connection reset", msg: msgUnavailable},
	{pattern: "deadlock", msg: UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB003",
	}},

	// Validation
	{pattern: "missing required field", msg: msgMissingField},
	{pattern: "is required", msg: msgMissingField},
	{pattern: "cannot be empty", msg: msgMissingField},
	{pattern: "insufficient quantity", msg: UserMessage{
		Message: "Not enough slabs on hand to subtract that quantity",
		Action:  "Check the current quantity and enter a smaller amount",
		Code:    "VAL002",
	}},
	{pattern: "invalid status", msg: UserMessage{
		Message: "Status is not valid",
		Action:  "Choose in stock, sent, not in yet or discontinued",
		Code:    "VAL003",
	}},
	{pattern: "must be a whole number", msg: msgInvalidQuantity},
	{pattern: "must be at least", msg: msgInvalidQuantity},
	{pattern: "cannot be negative", msg: msgInvalidQuantity},
	{pattern: "must be current or development", msg: UserMessage{
		Message: "Category is not valid",
		Action:  "Choose current or development",
		Code:    "VAL005",
	}},

	// File
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "empty file", msg: UserMessage{
		Message: "The file has no data rows",
		Action:  "Include a header line and at least one slab",
		Code:    "FILE002",
	}},
	{pattern: "no file provided", msg: UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file or paste rows to import",
		Code:    "FILE003",
	}},
	{pattern: "unreadable workbook", msg: UserMessage{
		Message: "The Excel file could not be read",
		Action:  "Save it as .xlsx again or export the sheet as CSV",
		Code:    "FILE004",
	}},

	// Import
	{pattern: "too many concurrent imports", msg: UserMessage{
		Message: "Too many imports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}},
	{pattern: "preview not found", msg: UserMessage{
		Message: "This preview has expired",
		Action:  "Upload the file again to get a fresh preview",
		Code:    "IMP002",
	}},
	{pattern: "unsupported resolution", msg: UserMessage{
		Message: "A separate record for an existing slab ID cannot be created",
		Action:  "Add the quantity to the existing slab instead",
		Code:    "IMP003",
	}},
	{pattern: "no duplicate confirmation is pending", msg: UserMessage{
		Message: "There is no duplicate waiting for confirmation",
		Action:  "Submit the form again",
		Code:    "IMP004",
	}},

	// Slab
	{pattern: "slab not found", msg: UserMessage{
		Message: "Slab not found",
		Action:  "Refresh the inventory list",
		Code:    "SLB001",
	}},

	// Request
	{pattern: "context canceled", msg: UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "rate limit", msg: UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "REQ003",
	}},
	{pattern: "invalid request body", msg: msgBadRequest},
	{pattern: "invalid query parameter", msg: msgBadRequest},
}

// defaultMessage is returned when no specific pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error yields the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
