// Package qerrors defines the typed error kinds qtable surfaces to
// clients and uses internally, wrapped with cockroachdb/errors for stack
// context. Grounded on original_source/src/parser.rs's SyntaxErrorCode/
// SyntaxError and original_source/src/index.rs's IndexError.
package qerrors

import "github.com/cockroachdb/errors"

// SyntaxCode identifies the kind of a parser-level syntax error, matching
// the numeric codes original_source/src/parser.rs prints to clients.
type SyntaxCode int

const (
	UnknownKeyword SyntaxCode = 1000
	InvalidOperator SyntaxCode = 1001
	UnknownOperator SyntaxCode = 1002
	InvalidDefinition SyntaxCode = 1003
	InvalidDataType SyntaxCode = 1004
	InvalidValue SyntaxCode = 1005
)

func (c SyntaxCode) String() string {
	switch c {
	case UnknownKeyword:
		return "1000: Unknown keyword"
	case InvalidOperator:
		return "1001: Invalid operator"
	case UnknownOperator:
		return "1002: Unknown operator"
	case InvalidDefinition:
		return "1003: Invalid definition"
	case InvalidDataType:
		return "1004: Invalid data type"
	case InvalidValue:
		return "1005: Invalid value"
	default:
		return "unknown syntax error code"
	}
}

// SyntaxError is a parser-level error surfaced verbatim to the client.
type SyntaxError struct {
	Code    SyntaxCode
	Message string
}

func (e *SyntaxError) Error() string {
	return "Error " + e.Code.String() + ": " + e.Message
}

// NewSyntaxError builds a SyntaxError, capturing a stack via
// cockroachdb/errors so internal logs keep the call site without
// changing what the client sees in Error().
func NewSyntaxError(code SyntaxCode, message string) error {
	return errors.WithStack(&SyntaxError{Code: code, Message: message})
}

// ParseError is a lower-level grammar failure with no specific code,
// matching original_source's SyntaxError::ParseError variant.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func NewParseError(message string) error {
	return errors.WithStack(&ParseError{Message: message})
}

// Storage error kinds, grounded on original_source/src/index.rs's
// IndexError and data_object.rs's read/write error paths.
var (
	ErrSerialize   = errors.New("serialize error")
	ErrDeserialize = errors.New("deserialize error")
	ErrCreate      = errors.New("create error")
	ErrInsert      = errors.New("insert error")
	ErrUpdate      = errors.New("update error")
	ErrDelete      = errors.New("delete error")
)

// Registry/database-level sentinels, grounded on original_source/src/
// database.rs's inline format! error strings.
var (
	ErrDatabaseExists   = errors.New("database already exists")
	ErrDatabaseNotFound = errors.New("database not found")
	ErrTableNotFound    = errors.New("table not found")
	ErrTableExists      = errors.New("table already exists")
	ErrDuplicateID      = errors.New("object_id already exists")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrMissingAttribute = errors.New("missing required attribute")
)
