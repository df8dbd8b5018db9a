package qerrors

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestSyntaxErrorMessageIncludesCode(t *testing.T) {
	err := NewSyntaxError(UnknownOperator, "'~=' is not a recognized operator")
	assert.EqualError(t, err, "Error 1002: Unknown operator: '~=' is not a recognized operator")
}

func TestSyntaxCodeStringUnknownCode(t *testing.T) {
	assert.Equal(t, "unknown syntax error code", SyntaxCode(9999).String())
}

func TestParseErrorMessage(t *testing.T) {
	err := NewParseError("unexpected end of input")
	assert.EqualError(t, err, "unexpected end of input")
}

func TestSentinelsSurviveWrap(t *testing.T) {
	wrapped := errors.Wrap(ErrDatabaseExists, "create")
	assert.ErrorIs(t, wrapped, ErrDatabaseExists)
}
