// Package registry owns the top-level map of open databases and the
// locking discipline spec.md §4.5 describes for CREATE versus every
// other command: CREATE takes the registry write lock to add a new
// entry; every other command only needs a read lock on the registry to
// look a database up, after which all further locking is internal to
// that database.Database. Grounded on
// original_source/src/network/client.rs's Client::listen, which holds
// the same `Arc<RwLock<HashMap<String, NoSqlDatabase>>>` with exactly
// this split (write lock only around the two CREATE branches, read
// lock everywhere else).
package registry

import (
	"sync"

	"github.com/keaz/qtable/internal/database"
	"github.com/keaz/qtable/internal/parser"
	"github.com/keaz/qtable/internal/qerrors"
	"go.uber.org/zap"
)

// Registry is the process-wide set of open databases.
type Registry struct {
	log      *zap.Logger
	dataPath string

	mu        sync.RWMutex
	databases map[string]*database.Database
}

// LoadAll opens every database directory found under dataPath and
// returns a ready Registry, mirroring original_source's
// load_databases-then-Server::run wiring in main.rs.
func LoadAll(dataPath string, log *zap.Logger) (*Registry, error) {
	databases, err := database.LoadAll(dataPath, log)
	if err != nil {
		return nil, err
	}
	return &Registry{
		log:       log.Named("registry"),
		dataPath:  dataPath,
		databases: databases,
	}, nil
}

// Create makes a brand-new database and registers it, returning
// qerrors.ErrDatabaseExists if the name is already in use.
func (r *Registry) Create(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.databases[name]; ok {
		return qerrors.ErrDatabaseExists
	}
	db, err := database.Create(name, r.dataPath, r.log)
	if err != nil {
		return err
	}
	r.databases[name] = db
	return nil
}

// Get returns the database registered under name, if any.
func (r *Registry) Get(name string) (*database.Database, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	db, ok := r.databases[name]
	return db, ok
}

// Databases returns a snapshot of every open database, keyed by name.
func (r *Registry) Databases() map[string]*database.Database {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*database.Database, len(r.databases))
	for name, db := range r.databases {
		out[name] = db
	}
	return out
}

// Names lists every open database, for the admin HTTP surface's
// read-only introspection routes (SPEC_FULL.md §4.8).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.databases))
	for name := range r.databases {
		names = append(names, name)
	}
	return names
}

// Handle routes a parsed non-CREATE command to its database, matching
// client.rs's per-command dispatch after the CREATE branch.
func (r *Registry) Handle(dbName string, cmd *parser.Command) database.Response {
	db, ok := r.Get(dbName)
	if !ok {
		return database.Response{Error: "database " + dbName + " not found"}
	}
	return db.Handle(cmd)
}
