// Package table implements the per-table document store spec.md §4.3
// calls the "Table" (original_source's NoSqlDataObject): an append-only
// ".dat" record log plus one inverted index per indexed attribute.
//
// Concurrency & Durability Model (grounded on the teacher's
// internal/repo/store/store.go doc-comment style):
//
//   - Writes are serialized by writeMu, which also orders all ".dat"
//     appends and in-place active-flag rewrites.
//   - Index state (the per-attribute index.Index values, needsReindex)
//     is guarded by stateMu, an RWMutex separate from writeMu: readers
//     take stateMu.RLock to evaluate a filter against the indices,
//     writers take stateMu.Lock only for the brief section that mutates
//     index contents after the corresponding data-log write has already
//     landed on disk.
//   - Data-log writes are staged before index mutations commit (spec.md
//     §9's recommended redesign): Insert appends then indexes; Update
//     appends the new record and flags the old one inactive before
//     touching any index; Delete flags records inactive before removing
//     their index entries. A failure after the data-log write but before
//     the index save leaves the table answerable from a full rebuild,
//     flagged via needsReindex rather than left inconsistent.
package table

import (
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/keaz/qtable/internal/document"
	"github.com/keaz/qtable/internal/index"
	"github.com/keaz/qtable/internal/parser"
	"github.com/keaz/qtable/internal/qerrors"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const objectIDAttribute = "__object_id"

// recordCacheSize bounds the LRU of decoded records kept per table,
// cutting repeat ".dat" reads on SELECT (spec.md §4.3 / SPEC_FULL.md §2).
const recordCacheSize = 1024

// Table owns one attribute schema, its append-only data log, and the
// inverted indices built over its indexed attributes.
type Table struct {
	log  *zap.Logger
	name string
	dir  string // <database root>/<table>

	schema document.Schema

	writeMu sync.Mutex
	dataPath string

	stateMu      sync.RWMutex
	indices      map[string]*index.Index // attribute -> index, plus objectIDAttribute
	needsReindex bool

	cache *lru.Cache[locatorKey, document.Record]
	group singleflight.Group
}

type locatorKey struct {
	position uint64
	length   uint64
}

func idxDir(tableDir string) string { return filepath.Join(tableDir, "idx") }
func defPath(tableDir, name string) string { return filepath.Join(tableDir, name+".def") }
func datPath(tableDir, name string) string { return filepath.Join(tableDir, name+".dat") }

// Create makes a brand-new table directory, schema file, empty data log,
// and one index per schema attribute marked Indexed, plus the internal
// object_id index used to reject duplicate inserts (spec.md §9).
func Create(name, parentDir string, schema document.Schema, log *zap.Logger) (*Table, error) {
	dir := filepath.Join(parentDir, name)
	if _, err := os.Stat(dir); err == nil {
		return nil, qerrors.ErrTableExists
	}
	if err := os.MkdirAll(idxDir(dir), 0o755); err != nil {
		return nil, qerrors.ErrCreate
	}

	encodedSchema, err := msgpack.Marshal(schema)
	if err != nil {
		return nil, qerrors.ErrSerialize
	}
	if err := os.WriteFile(defPath(dir, name), encodedSchema, 0o644); err != nil {
		return nil, qerrors.ErrCreate
	}
	if f, err := os.Create(datPath(dir, name)); err != nil {
		return nil, qerrors.ErrCreate
	} else {
		f.Close()
	}

	t := &Table{
		log:      log.Named("table").With(zap.String("table", name)),
		name:     name,
		dir:      dir,
		dataPath: datPath(dir, name),
		schema:   schema,
		indices:  make(map[string]*index.Index),
	}
	for attr, def := range schema {
		if !def.Indexed {
			continue
		}
		idx, err := index.Open(attr, idxDir(dir))
		if err != nil {
			return nil, err
		}
		t.indices[attr] = idx
	}
	objIdx, err := index.Open(objectIDAttribute, idxDir(dir))
	if err != nil {
		return nil, err
	}
	t.indices[objectIDAttribute] = objIdx

	cache, err := lru.New[locatorKey, document.Record](recordCacheSize)
	if err != nil {
		return nil, qerrors.ErrCreate
	}
	t.cache = cache
	return t, nil
}

// Load reopens an existing table directory, rebuilding nothing: every
// index was already persisted by Save on its last successful mutation.
func Load(name, parentDir string, log *zap.Logger) (*Table, error) {
	dir := filepath.Join(parentDir, name)
	raw, err := os.ReadFile(defPath(dir, name))
	if err != nil {
		return nil, qerrors.ErrTableNotFound
	}
	var schema document.Schema
	if err := msgpack.Unmarshal(raw, &schema); err != nil {
		return nil, qerrors.ErrDeserialize
	}

	t := &Table{
		log:      log.Named("table").With(zap.String("table", name)),
		name:     name,
		dir:      dir,
		dataPath: datPath(dir, name),
		schema:   schema,
		indices:  make(map[string]*index.Index),
	}
	for attr, def := range schema {
		if !def.Indexed {
			continue
		}
		idx, err := index.Open(attr, idxDir(dir))
		if err != nil {
			return nil, err
		}
		t.indices[attr] = idx
	}
	objIdx, err := index.Open(objectIDAttribute, idxDir(dir))
	if err != nil {
		return nil, err
	}
	t.indices[objectIDAttribute] = objIdx

	cache, err := lru.New[locatorKey, document.Record](recordCacheSize)
	if err != nil {
		return nil, qerrors.ErrCreate
	}
	t.cache = cache
	return t, nil
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Schema returns the table's attribute definitions, for the admin HTTP
// surface's read-only schema endpoint (SPEC_FULL.md §4.8).
func (t *Table) Schema() document.Schema { return t.schema }

// validate enforces Insert's full-record contract: every attribute name
// must be known, and every non-optional attribute must be present.
func (t *Table) validate(data document.Value) error {
	if data.Kind != document.KindObject {
		return qerrors.NewSyntaxError(qerrors.InvalidValue, "record data must be an object")
	}
	seen := make(map[string]bool, len(data.Object))
	for _, pair := range data.Object {
		if pair.Key == "id" {
			continue
		}
		if _, ok := t.schema[pair.Key]; !ok {
			return qerrors.ErrUnknownAttribute
		}
		seen[pair.Key] = true
	}
	for attr, def := range t.schema {
		if !def.Optional && !seen[attr] {
			return qerrors.ErrMissingAttribute
		}
	}
	return nil
}

// validatePartial enforces Update's partial-record contract (spec.md
// §4.3 step 3): the payload only has to name known attributes. It is
// necessarily missing whatever keys the caller didn't mean to change, so
// it is never checked for completeness against non-optional attributes.
// The shallow merge carries forward every key the payload omitted; the
// merged record itself is not validated again.
func (t *Table) validatePartial(data document.Value) error {
	if data.Kind != document.KindObject {
		return qerrors.NewSyntaxError(qerrors.InvalidValue, "record data must be an object")
	}
	for _, pair := range data.Object {
		if pair.Key == "id" {
			continue
		}
		if _, ok := t.schema[pair.Key]; !ok {
			return qerrors.ErrUnknownAttribute
		}
	}
	return nil
}

func (t *Table) indexableAttributes(data document.Value) map[string]string {
	out := make(map[string]string)
	for attr, def := range t.schema {
		if !def.Indexed {
			continue
		}
		val, ok := data.Get(attr)
		if !ok {
			continue
		}
		out[attr] = document.Stringify(val)
	}
	return out
}

// Stats reports the number of active records and the number of
// indexed attributes currently maintained, for the housekeeping cron's
// periodic log line (SPEC_FULL.md §4.9).
type Stats struct {
	Records int
	Indices int
}

func (t *Table) Stats() (Stats, error) {
	records, _, err := t.scanAll()
	if err != nil {
		return Stats{}, err
	}
	active := 0
	for _, rec := range records {
		if rec.Active {
			active++
		}
	}

	t.stateMu.RLock()
	indices := len(t.indices)
	t.stateMu.RUnlock()

	return Stats{Records: active, Indices: indices}, nil
}

// conditionRangeOp maps a leaf parser.Condition operator to an
// index.RangeOp, the two enums being otherwise identical in meaning.
func conditionRangeOp(op parser.ConditionOp) (index.RangeOp, bool) {
	switch op {
	case parser.OpGreaterThan:
		return index.GreaterThan, true
	case parser.OpGreaterThanOrEqual:
		return index.GreaterThanOrEqual, true
	case parser.OpLessThan:
		return index.LessThan, true
	case parser.OpLessThanOrEqual:
		return index.LessThanOrEqual, true
	default:
		return 0, false
	}
}
