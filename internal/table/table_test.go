package table

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/keaz/qtable/internal/document"
	"github.com/keaz/qtable/internal/parser"
	"github.com/keaz/qtable/internal/qerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSchema() document.Schema {
	return document.Schema{
		"name": {DataType: "string", Indexed: true, Optional: false},
		"age":  {DataType: "int", Indexed: true, Optional: true},
	}
}

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := Create("users", t.TempDir(), testSchema(), zap.NewNop())
	require.NoError(t, err)
	return tbl
}

func recordOf(t *testing.T, id, name string, age int64) document.Record {
	t.Helper()
	return document.Record{
		ObjectID: id,
		Table:    "users",
		Active:   true,
		Data: document.NewObject([]document.Pair{
			{Key: "name", Value: document.NewString(name)},
			{Key: "age", Value: document.NewInt(age)},
		}),
	}
}

func mustParseCondition(t *testing.T, expr string) *parser.Condition {
	t.Helper()
	cmd, err := parser.Parse("testdb", "SELECT users WHERE "+expr)
	require.NoError(t, err)
	return cmd.Query.Filter
}

func TestInsertAndSelectEqual(t *testing.T) {
	tbl := newTestTable(t)
	rec := recordOf(t, uuid.NewString(), "alice", 30)
	require.NoError(t, tbl.Insert(rec))

	cond := mustParseCondition(t, "name = 'alice'")
	results, err := tbl.Select(cond)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, rec.ObjectID, results[0].ObjectID)
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	tbl := newTestTable(t)
	id := uuid.NewString()
	require.NoError(t, tbl.Insert(recordOf(t, id, "alice", 30)))
	err := tbl.Insert(recordOf(t, id, "bob", 40))
	assert.ErrorIs(t, err, qerrors.ErrDuplicateID)
}

func TestInsertRejectsUnknownAttribute(t *testing.T) {
	tbl := newTestTable(t)
	rec := document.Record{
		ObjectID: uuid.NewString(),
		Table:    "users",
		Active:   true,
		Data: document.NewObject([]document.Pair{
			{Key: "name", Value: document.NewString("alice")},
			{Key: "nickname", Value: document.NewString("al")},
		}),
	}
	err := tbl.Insert(rec)
	assert.ErrorIs(t, err, qerrors.ErrUnknownAttribute)
}

func TestInsertRejectsMissingRequiredAttribute(t *testing.T) {
	tbl := newTestTable(t)
	rec := document.Record{
		ObjectID: uuid.NewString(),
		Table:    "users",
		Active:   true,
		Data: document.NewObject([]document.Pair{
			{Key: "age", Value: document.NewInt(30)},
		}),
	}
	err := tbl.Insert(rec)
	assert.ErrorIs(t, err, qerrors.ErrMissingAttribute)
}

func TestUpdateSupersedesOldRecord(t *testing.T) {
	tbl := newTestTable(t)
	id := uuid.NewString()
	require.NoError(t, tbl.Insert(recordOf(t, id, "alice", 30)))

	newData := document.NewObject([]document.Pair{
		{Key: "age", Value: document.NewInt(31)},
	})
	where := &parser.Query{Table: "users", Filter: mustParseCondition(t, "name = 'alice'")}
	updated, err := tbl.Update(newData, where)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, id, updated[0].ObjectID)
	assert.Equal(t, "alice", mustString(t, updated[0].Data, "name"))

	oldAge, err := tbl.Select(mustParseCondition(t, "age = 30"))
	require.NoError(t, err)
	assert.Empty(t, oldAge)

	newAge, err := tbl.Select(mustParseCondition(t, "age = 31"))
	require.NoError(t, err)
	require.Len(t, newAge, 1)
	assert.Equalf(t, id, newAge[0].ObjectID, "unexpected record after update: %s", spew.Sdump(newAge[0]))
	assert.Equal(t, "alice", mustString(t, newAge[0].Data, "name"))
}

func TestUpdateMergesPartialPayloadOntoOldRecord(t *testing.T) {
	tbl := newTestTable(t)
	id := uuid.NewString()
	require.NoError(t, tbl.Insert(recordOf(t, id, "John", 30)))

	partial := document.NewObject([]document.Pair{
		{Key: "age", Value: document.NewInt(31)},
	})
	where := &parser.Query{Table: "users", Filter: mustParseCondition(t, "name = 'John'")}
	_, err := tbl.Update(partial, where)
	require.NoError(t, err)

	results, err := tbl.Select(mustParseCondition(t, "name = 'John'"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "John", mustString(t, results[0].Data, "name"))
	age, ok := results[0].Data.Get("age")
	require.True(t, ok)
	assert.Equal(t, document.NewInt(31), age)
}

func TestUpdateRejectsUnknownAttributeInPartialPayload(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Insert(recordOf(t, uuid.NewString(), "alice", 30)))

	badPayload := document.NewObject([]document.Pair{
		{Key: "nickname", Value: document.NewString("al")},
	})
	where := &parser.Query{Table: "users", Filter: mustParseCondition(t, "name = 'alice'")}
	_, err := tbl.Update(badPayload, where)
	assert.ErrorIs(t, err, qerrors.ErrUnknownAttribute)
}

func TestDeleteRemovesFromSelect(t *testing.T) {
	tbl := newTestTable(t)
	id := uuid.NewString()
	require.NoError(t, tbl.Insert(recordOf(t, id, "alice", 30)))

	where := &parser.Query{Table: "users", Filter: mustParseCondition(t, "name = 'alice'")}
	require.NoError(t, tbl.Delete(where))

	results, err := tbl.Select(mustParseCondition(t, "name = 'alice'"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAndOrCombinators(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Insert(recordOf(t, uuid.NewString(), "alice", 30)))
	require.NoError(t, tbl.Insert(recordOf(t, uuid.NewString(), "bob", 40)))

	and, err := tbl.Select(mustParseCondition(t, "(name = 'alice' AND age = 30)"))
	require.NoError(t, err)
	assert.Len(t, and, 1)

	or, err := tbl.Select(mustParseCondition(t, "(name = 'alice' OR name = 'bob')"))
	require.NoError(t, err)
	assert.Len(t, or, 2)
}

func TestLoadReopensExistingTable(t *testing.T) {
	dir := t.TempDir()
	tbl, err := Create("users", dir, testSchema(), zap.NewNop())
	require.NoError(t, err)
	id := uuid.NewString()
	require.NoError(t, tbl.Insert(recordOf(t, id, "alice", 30)))

	reopened, err := Load("users", dir, zap.NewNop())
	require.NoError(t, err)
	results, err := reopened.Select(mustParseCondition(t, "name = 'alice'"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ObjectID)
}

func TestNeedsReindexRebuildsFromScan(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.Insert(recordOf(t, uuid.NewString(), "alice", 30)))
	require.NoError(t, tbl.Insert(recordOf(t, uuid.NewString(), "bob", 40)))

	tbl.stateMu.Lock()
	tbl.needsReindex = true
	tbl.stateMu.Unlock()

	results, err := tbl.Select(mustParseCondition(t, "name = 'bob'"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bob", mustString(t, results[0].Data, "name"))
}

func mustString(t *testing.T, v document.Value, key string) string {
	t.Helper()
	val, ok := v.Get(key)
	require.True(t, ok)
	return val.Str
}
