package parser

import (
	"testing"

	"github.com/keaz/qtable/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreateCommand(t *testing.T) {
	cmd, err := Parse("", "CREATE federation")
	require.NoError(t, err)
	assert.Equal(t, CmdCreate, cmd.Kind)
	assert.Equal(t, "federation", cmd.Database)
}

func TestParseInsertCommand(t *testing.T) {
	cmd, err := Parse("db", `INSERT INTO user {"name":"John","age":30}`)
	require.NoError(t, err)
	require.Equal(t, CmdInsert, cmd.Kind)
	assert.Equal(t, "user", cmd.Record.Table)
	assert.True(t, cmd.Record.Active)
	assert.NotEmpty(t, cmd.Record.ObjectID)

	name, ok := cmd.Record.Data.Get("name")
	require.True(t, ok)
	assert.Equal(t, document.NewString("John"), name)

	age, ok := cmd.Record.Data.Get("age")
	require.True(t, ok)
	assert.Equal(t, document.NewInt(30), age)
}

func TestParseInsertCommandUsesSuppliedID(t *testing.T) {
	cmd, err := Parse("db", `INSERT INTO user {"id":"abc-123","name":"John"}`)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", cmd.Record.ObjectID)
}

func TestParseInsertCommandRejectsDuplicateKeys(t *testing.T) {
	_, err := Parse("db", `INSERT INTO user {"name":"John","name":"Jane"}`)
	require.Error(t, err)
}

func TestParseDeleteCommand(t *testing.T) {
	cmd, err := Parse("db", `DELETE FROM user WHERE id = '123' AND (name = 'John' OR age >= 30)`)
	require.NoError(t, err)
	require.Equal(t, CmdDelete, cmd.Kind)
	assert.Equal(t, "user", cmd.Query.Table)

	filter := cmd.Query.Filter
	require.Equal(t, OpAnd, filter.Op)
	assert.Equal(t, OpEqual, filter.Left.Op)
	assert.Equal(t, "id", filter.Left.Field)
	assert.Equal(t, "123", filter.Left.Value)

	or := filter.Right
	require.Equal(t, OpOr, or.Op)
	assert.Equal(t, "name", or.Left.Field)
	assert.Equal(t, "John", or.Left.Value)
	assert.Equal(t, OpGreaterThanOrEqual, or.Right.Op)
	assert.Equal(t, "age", or.Right.Field)
	assert.Equal(t, "30", or.Right.Value)
}

func TestParseDefineCommand(t *testing.T) {
	msg := `DEFINE user {"name": {"type": "String", "indexed": true, "optional": false}, "age": {"type": "Number", "indexed": false, "optional": true}}`
	cmd, err := Parse("db", msg)
	require.NoError(t, err)
	require.Equal(t, CmdDefine, cmd.Kind)
	assert.Equal(t, "user", cmd.Table)
	require.Len(t, cmd.Schema, 2)

	name := cmd.Schema["name"]
	assert.Equal(t, "String", name.DataType)
	assert.True(t, name.Indexed)
	assert.False(t, name.Optional)

	age := cmd.Schema["age"]
	assert.Equal(t, "Number", age.DataType)
	assert.False(t, age.Indexed)
	assert.True(t, age.Optional)
}

func TestParseDefineCommandRejectsUnknownType(t *testing.T) {
	msg := `DEFINE user {"name": {"type": "Weird", "indexed": true, "optional": false}}`
	_, err := Parse("db", msg)
	require.Error(t, err)
}

func TestParseSelectCommand(t *testing.T) {
	msg := `SELECT user WHERE id = 'cf0aad38-3ea2-4930-ae70-cb92560d15d3' AND (name = 'John' OR age >= 30)`
	cmd, err := Parse("db", msg)
	require.NoError(t, err)
	require.Equal(t, CmdSelect, cmd.Kind)
	assert.Equal(t, "user", cmd.Query.Table)

	filter := cmd.Query.Filter
	require.Equal(t, OpAnd, filter.Op)
	assert.Equal(t, "id", filter.Left.Field)
	assert.Equal(t, "cf0aad38-3ea2-4930-ae70-cb92560d15d3", filter.Left.Value)
}

func TestParseSelectCommandWithNestedGrouping(t *testing.T) {
	msg := `SELECT user WHERE (id = '1' OR (name = 'John' AND age > 20)) AND active = 'true'`
	cmd, err := Parse("db", msg)
	require.NoError(t, err)

	top := cmd.Query.Filter
	require.Equal(t, OpAnd, top.Op)
	require.Equal(t, OpOr, top.Left.Op)
	require.Equal(t, OpEqual, top.Left.Left.Op)
	require.Equal(t, OpAnd, top.Left.Right.Op)
	assert.Equal(t, "name", top.Left.Right.Left.Field)
	assert.Equal(t, "age", top.Left.Right.Right.Field)
	assert.Equal(t, "active", top.Right.Field)
}

func TestParseCondition(t *testing.T) {
	cond, rest, err := parseCondition(`id = '123' AND (name = 'John' OR age >= 30)`)
	require.NoError(t, err)
	assert.Empty(t, rest)
	require.Equal(t, OpAnd, cond.Op)
	assert.Equal(t, "id", cond.Left.Field)
	assert.Equal(t, "123", cond.Left.Value)
	require.Equal(t, OpOr, cond.Right.Op)
}

func TestParseValueQuoted(t *testing.T) {
	value, rest, err := parseValue(`'John'`)
	require.NoError(t, err)
	assert.Equal(t, "John", value)
	assert.Empty(t, rest)
}

func TestParseValueQuotedUUID(t *testing.T) {
	value, _, err := parseValue(`'cf0aad38-3ea2-4930-ae70-cb92560d15d3'`)
	require.NoError(t, err)
	assert.Equal(t, "cf0aad38-3ea2-4930-ae70-cb92560d15d3", value)
}

func TestParseValueBareNumber(t *testing.T) {
	value, _, err := parseValue("30")
	require.NoError(t, err)
	assert.Equal(t, "30", value)
}

func TestParseUpdateCommand(t *testing.T) {
	msg := `UPDATE user {"name":"John","age":30} WHERE id = '123' AND name = 'John' AND age >= 30`
	cmd, err := Parse("db", msg)
	require.NoError(t, err)
	require.Equal(t, CmdUpdate, cmd.Kind)
	assert.Equal(t, "user", cmd.Record.Table)

	name, ok := cmd.Record.Data.Get("name")
	require.True(t, ok)
	assert.Equal(t, document.NewString("John"), name)

	where := cmd.UpdateWhere.Filter
	require.Equal(t, OpAnd, where.Op)
	require.Equal(t, OpAnd, where.Left.Op)
	assert.Equal(t, "id", where.Left.Left.Field)
	assert.Equal(t, "name", where.Left.Right.Field)
	assert.Equal(t, OpGreaterThanOrEqual, where.Right.Op)
}

func TestConditionStringRoundTripsForCacheKeys(t *testing.T) {
	cond, _, err := parseCondition(`id = '123' AND (name = 'John' OR age >= 30)`)
	require.NoError(t, err)
	assert.Equal(t, `(id = 123 AND (name = John OR age >= 30))`, cond.String())

	reparsed, _, err := parseCondition(cond.String())
	require.NoError(t, err)
	assert.Equal(t, cond.String(), reparsed.String())
}
