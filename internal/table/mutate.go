package table

import (
	"github.com/keaz/qtable/internal/document"
	"github.com/keaz/qtable/internal/index"
	"github.com/keaz/qtable/internal/parser"
	"github.com/keaz/qtable/internal/qerrors"
)

// Insert appends rec to the data log and indexes its indexed attributes.
// Duplicate object_ids are rejected up front (spec.md §9's resolution of
// the original's unguarded duplicate-id gap). The duplicate probe, the
// append, and the index mutation all run under one writeMu hold so two
// concurrent inserts of the same object_id can't both observe "not a
// duplicate" before either commits — the same single-lock-spans-check-
// persist-mutate discipline the teacher's store.go uses for its own
// Create/Update/Delete.
func (t *Table) Insert(rec document.Record) error {
	if err := t.validate(rec.Data); err != nil {
		return err
	}
	if err := t.ensureIndices(); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.stateMu.RLock()
	duplicate := len(t.indices[objectIDAttribute].Equal(rec.ObjectID)) > 0
	t.stateMu.RUnlock()
	if duplicate {
		return qerrors.ErrDuplicateID
	}

	loc, err := t.appendRecord(rec)
	if err != nil {
		return err
	}

	t.stateMu.Lock()
	attrs := t.indexableAttributes(rec.Data)
	t.indices[objectIDAttribute].Add(rec.ObjectID, loc)
	for attr, value := range attrs {
		t.indices[attr].Add(value, loc)
	}
	touched := append([]string{objectIDAttribute}, keysOf(attrs)...)
	t.saveIndices(touched...)
	t.stateMu.Unlock()
	return nil
}

type matchedRecord struct {
	loc index.ID
	rec document.Record
}

func (t *Table) matchActive(filter *parser.Condition) []matchedRecord {
	t.stateMu.RLock()
	locs := t.eval(filter)
	t.stateMu.RUnlock()

	out := make([]matchedRecord, 0, len(locs))
	for _, loc := range locs {
		rec, err := t.readRecord(loc)
		if err != nil || !rec.Active {
			continue
		}
		out = append(out, matchedRecord{loc: loc, rec: rec})
	}
	return out
}

// Update shallow-merges newData over the data of every active record
// matching where, keeping the original object_id, and returns the
// resulting merged records. Every key present in an old record but
// absent from newData is retained from the old record (spec.md §4.3
// step 3) — newData is necessarily partial (e.g. `UPDATE user {"age":31}
// WHERE name = 'John'` never mentions `name`), so this is not a replace.
// Grounded on spec.md §9's staged-write recovery design: every new
// record is appended and every old record flagged inactive (both
// data-log writes) before any index mutation is attempted.
func (t *Table) Update(newData document.Value, where *parser.Query) ([]document.Record, error) {
	if err := t.validatePartial(newData); err != nil {
		return nil, err
	}
	if err := t.ensureIndices(); err != nil {
		return nil, err
	}

	matches := t.matchActive(where.Filter)
	if len(matches) == 0 {
		return nil, nil
	}

	type transition struct {
		old matchedRecord
		new document.Record
		loc index.ID
	}
	transitions := make([]transition, 0, len(matches))

	t.writeMu.Lock()
	for _, m := range matches {
		merged := mergeData(m.rec.Data, newData)
		newRec := document.Record{ObjectID: m.rec.ObjectID, Table: t.name, Data: merged, Active: true}
		newLoc, err := t.appendRecord(newRec)
		if err != nil {
			t.writeMu.Unlock()
			return nil, err
		}
		transitions = append(transitions, transition{old: m, new: newRec, loc: newLoc})
	}
	for _, tr := range transitions {
		if err := t.markInactive(tr.old.loc, tr.old.rec); err != nil {
			t.writeMu.Unlock()
			return nil, err
		}
	}
	t.writeMu.Unlock()

	touched := map[string]bool{objectIDAttribute: true}
	t.stateMu.Lock()
	for _, tr := range transitions {
		for attr, value := range t.indexableAttributes(tr.old.rec.Data) {
			if idx, ok := t.indices[attr]; ok {
				idx.Remove(value, tr.old.loc)
				touched[attr] = true
			}
		}
		t.indices[objectIDAttribute].Remove(tr.old.rec.ObjectID, tr.old.loc)
		t.indices[objectIDAttribute].Add(tr.new.ObjectID, tr.loc)
		for attr, value := range t.indexableAttributes(tr.new.Data) {
			if idx, ok := t.indices[attr]; ok {
				idx.Add(value, tr.loc)
				touched[attr] = true
			}
		}
	}
	t.saveIndices(keysOf(touched)...)
	t.stateMu.Unlock()

	records := make([]document.Record, len(transitions))
	for i, tr := range transitions {
		records[i] = tr.new
	}
	return records, nil
}

// mergeData shallow-merges update's pairs over old's: every key update
// names wins, and every key present in old but absent from update is
// carried forward unchanged (spec.md §4.3 step 3).
func mergeData(old, update document.Value) document.Value {
	merged := make([]document.Pair, 0, len(old.Object)+len(update.Object))
	present := make(map[string]bool, len(update.Object))
	for _, pair := range update.Object {
		merged = append(merged, pair)
		present[pair.Key] = true
	}
	for _, pair := range old.Object {
		if !present[pair.Key] {
			merged = append(merged, pair)
		}
	}
	return document.NewObject(merged)
}

// Delete flags every active record matching where as inactive and
// removes its index entries, following the same staged-write-then-index
// ordering as Update.
func (t *Table) Delete(where *parser.Query) error {
	if err := t.ensureIndices(); err != nil {
		return err
	}

	matches := t.matchActive(where.Filter)
	if len(matches) == 0 {
		return nil
	}

	t.writeMu.Lock()
	for _, m := range matches {
		if err := t.markInactive(m.loc, m.rec); err != nil {
			t.writeMu.Unlock()
			return err
		}
	}
	t.writeMu.Unlock()

	touched := map[string]bool{objectIDAttribute: true}
	t.stateMu.Lock()
	for _, m := range matches {
		t.indices[objectIDAttribute].Remove(m.rec.ObjectID, m.loc)
		for attr, value := range t.indexableAttributes(m.rec.Data) {
			if idx, ok := t.indices[attr]; ok {
				idx.Remove(value, m.loc)
				touched[attr] = true
			}
		}
	}
	t.saveIndices(keysOf(touched)...)
	t.stateMu.Unlock()
	return nil
}

func keysOf[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
