// Package database implements the per-tenant collection of tables
// spec.md §4.4 describes (original_source's NoSqlDatabase): it owns a
// flat map of table name to table.Table and dispatches parsed commands
// to the right one. Grounded structurally on the teacher's own flat
// map-of-substores Repository in internal/repo/repo.go.
package database

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/keaz/qtable/internal/document"
	"github.com/keaz/qtable/internal/parser"
	"github.com/keaz/qtable/internal/qerrors"
	"github.com/keaz/qtable/internal/table"
	"go.uber.org/zap"
)

// Response is the outcome of dispatching one Command, matching
// original_source's DataResponse::Data/Error split.
type Response struct {
	Data  []document.Record `msgpack:"data"`
	Error string            `msgpack:"error,omitempty"`
}

// Database owns every table created under one tenant namespace.
type Database struct {
	log  *zap.Logger
	name string
	dir  string // dataPath/<name>

	mu     sync.RWMutex
	tables map[string]*table.Table
}

// Create makes a new, empty database directory. Returns
// qerrors.ErrDatabaseExists if the directory already exists, matching
// original_source/src/database.rs's NoSqlDatabase::new.
func Create(name, dataPath string, log *zap.Logger) (*Database, error) {
	dir := filepath.Join(dataPath, name)
	if _, err := os.Stat(dir); err == nil {
		return nil, qerrors.ErrDatabaseExists
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, qerrors.ErrCreate
	}
	return &Database{
		log:    log.Named("database").With(zap.String("database", name)),
		name:   name,
		dir:    dir,
		tables: make(map[string]*table.Table),
	}, nil
}

// Load reopens an existing database, loading every table subdirectory
// found under it. Grounded on original_source's NoSqlDatabase::load
// (WalkDir over the database directory, max depth 1).
func Load(name, dataPath string, log *zap.Logger) (*Database, error) {
	dir := filepath.Join(dataPath, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, qerrors.ErrDatabaseNotFound
	}

	db := &Database{
		log:    log.Named("database").With(zap.String("database", name)),
		name:   name,
		dir:    dir,
		tables: make(map[string]*table.Table),
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tbl, err := table.Load(entry.Name(), dir, log)
		if err != nil {
			return nil, err
		}
		db.tables[entry.Name()] = tbl
	}
	return db, nil
}

// LoadAll loads every database found directly under dataPath, grounded
// on original_source's NoSqlDatabase::load_databases.
func LoadAll(dataPath string, log *zap.Logger) (map[string]*Database, error) {
	databases := make(map[string]*Database)
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return databases, nil
		}
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		db, err := Load(entry.Name(), dataPath, log)
		if err != nil {
			return nil, err
		}
		databases[entry.Name()] = db
	}
	return databases, nil
}

// Name returns the database's name.
func (d *Database) Name() string { return d.name }

// TableNames lists every table currently open, for the admin HTTP
// surface's read-only introspection routes (SPEC_FULL.md §4.8).
func (d *Database) TableNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	return names
}

// Tables returns a snapshot of every open table, keyed by name, for the
// housekeeping cron's periodic stats sweep (SPEC_FULL.md §4.9).
func (d *Database) Tables() map[string]*table.Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]*table.Table, len(d.tables))
	for name, tbl := range d.tables {
		out[name] = tbl
	}
	return out
}

// TableSchema returns the schema for one table, if it exists.
func (d *Database) TableSchema(name string) (document.Schema, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tbl, ok := d.tables[name]
	if !ok {
		return nil, false
	}
	return tbl.Schema(), true
}

// Handle dispatches a parsed Command to its table, matching
// original_source's NoSqlDatabase::handle_message routing (minus the
// CREATE branch, which the registry handles before a Database exists).
func (d *Database) Handle(cmd *parser.Command) Response {
	switch cmd.Kind {
	case parser.CmdDefine:
		return d.handleDefine(cmd)
	case parser.CmdInsert:
		return d.handleInsert(cmd)
	case parser.CmdUpdate:
		return d.handleUpdate(cmd)
	case parser.CmdDelete:
		return d.handleDelete(cmd)
	case parser.CmdSelect:
		return d.handleSelect(cmd)
	case parser.CmdCreate:
		return Response{Error: "create should not reach a database handler"}
	default:
		return Response{Error: "command not supported"}
	}
}

func (d *Database) handleDefine(cmd *parser.Command) Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	tbl, err := table.Create(cmd.Table, d.dir, cmd.Schema, d.log)
	if err != nil {
		return Response{Error: "error creating table: " + err.Error()}
	}
	d.tables[cmd.Table] = tbl
	return Response{Data: []document.Record{}}
}

// handleInsert, handleUpdate, and handleDelete all hold the Database
// lock exclusively for the whole call into the table, not just the
// lookup: spec.md §5 requires "the Database lock MUST be exclusive for
// Insert/Update/Delete/Define" (shared is only safe for Select).
func (d *Database) handleInsert(cmd *parser.Command) Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	tbl, ok := d.tables[cmd.Record.Table]
	if !ok {
		return Response{Error: "table " + cmd.Record.Table + " not found"}
	}
	if err := tbl.Insert(cmd.Record); err != nil {
		return Response{Error: "error inserting data: " + err.Error()}
	}
	return Response{Data: []document.Record{cmd.Record}}
}

func (d *Database) handleUpdate(cmd *parser.Command) Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	tbl, ok := d.tables[cmd.Record.Table]
	if !ok {
		return Response{Error: "table " + cmd.Record.Table + " not found"}
	}
	records, err := tbl.Update(cmd.Record.Data, cmd.UpdateWhere)
	if err != nil {
		return Response{Error: "error updating data: " + err.Error()}
	}
	return Response{Data: records}
}

func (d *Database) handleDelete(cmd *parser.Command) Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	tbl, ok := d.tables[cmd.Query.Table]
	if !ok {
		return Response{Error: "table " + cmd.Query.Table + " not found"}
	}
	if err := tbl.Delete(cmd.Query); err != nil {
		return Response{Error: "error deleting data: " + err.Error()}
	}
	return Response{Data: []document.Record{}}
}

func (d *Database) handleSelect(cmd *parser.Command) Response {
	d.mu.RLock()
	tbl, ok := d.tables[cmd.Query.Table]
	d.mu.RUnlock()
	if !ok {
		return Response{Error: "table " + cmd.Query.Table + " not found"}
	}
	records, err := tbl.Select(cmd.Query.Filter)
	if err != nil {
		return Response{Error: "error querying data: " + err.Error()}
	}
	return Response{Data: records}
}
