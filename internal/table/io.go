package table

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/keaz/qtable/internal/document"
	"github.com/keaz/qtable/internal/index"
	"github.com/keaz/qtable/internal/qerrors"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Each data-log entry is framed as an 8-byte big-endian body length
// followed by the msgpack-encoded document.Record. The length prefix is
// only needed to walk the log sequentially (scanAll, used by the index
// rebuild and by Stats); direct reads already know a record's total framed length from its
// index.ID locator.
const frameHeaderSize = 8

func frame(body []byte) []byte {
	buf := make([]byte, frameHeaderSize+len(body))
	binary.BigEndian.PutUint64(buf[:frameHeaderSize], uint64(len(body)))
	copy(buf[frameHeaderSize:], body)
	return buf
}

// appendRecord serializes rec and appends it to the data log, returning
// its locator. Callers must hold writeMu. Grounded on original_source's
// seek_and_write (seek to end, write, flush).
func (t *Table) appendRecord(rec document.Record) (index.ID, error) {
	body, err := msgpack.Marshal(rec)
	if err != nil {
		return index.ID{}, qerrors.ErrSerialize
	}
	entry := frame(body)

	f, err := os.OpenFile(t.dataPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return index.ID{}, qerrors.ErrInsert
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return index.ID{}, qerrors.ErrInsert
	}
	position := uint64(info.Size())

	if _, err := f.Write(entry); err != nil {
		return index.ID{}, qerrors.ErrInsert
	}
	loc := index.ID{Position: position, Length: uint64(len(entry))}
	t.cache.Add(locatorKey{loc.Position, loc.Length}, rec)
	return loc, nil
}

// readRecord loads the record at loc, preferring the LRU cache over a
// disk seek+read (spec.md §4.3's record cache).
func (t *Table) readRecord(loc index.ID) (document.Record, error) {
	key := locatorKey{loc.Position, loc.Length}
	if rec, ok := t.cache.Get(key); ok {
		return rec, nil
	}

	f, err := os.Open(t.dataPath)
	if err != nil {
		return document.Record{}, qerrors.ErrDeserialize
	}
	defer f.Close()

	buf := make([]byte, loc.Length)
	if _, err := f.ReadAt(buf, int64(loc.Position)); err != nil {
		return document.Record{}, qerrors.ErrDeserialize
	}
	var rec document.Record
	if err := msgpack.Unmarshal(buf[frameHeaderSize:], &rec); err != nil {
		return document.Record{}, qerrors.ErrDeserialize
	}
	t.cache.Add(key, rec)
	return rec, nil
}

// markInactive flips rec.Active to false and rewrites it in place at loc.
// msgpack encodes a bool as a single fixed token either way, so the
// re-encoded record is exactly loc.Length bytes long and the rewrite
// never disturbs neighboring records (spec.md P4 / SPEC_FULL.md §6).
// Callers must hold writeMu.
func (t *Table) markInactive(loc index.ID, rec document.Record) error {
	rec.Active = false
	body, err := msgpack.Marshal(rec)
	if err != nil {
		return qerrors.ErrSerialize
	}
	entry := frame(body)
	if uint64(len(entry)) != loc.Length {
		return qerrors.ErrUpdate
	}

	f, err := os.OpenFile(t.dataPath, os.O_WRONLY, 0o644)
	if err != nil {
		return qerrors.ErrUpdate
	}
	defer f.Close()
	if _, err := f.WriteAt(entry, int64(loc.Position)); err != nil {
		return qerrors.ErrUpdate
	}
	t.cache.Add(locatorKey{loc.Position, loc.Length}, rec)
	return nil
}

// saveIndices persists every touched index. A failure marks the table
// needsReindex instead of returning a hard error: the data log already
// reflects the mutation, so the next read rebuilds indices from a full
// scan rather than leaving them stale (spec.md §9's recovery redesign).
func (t *Table) saveIndices(attrs ...string) {
	for _, attr := range attrs {
		idx, ok := t.indices[attr]
		if !ok {
			continue
		}
		if err := idx.Save(); err != nil {
			t.log.Error("failed to save index, flagging for rebuild", zap.Error(err), zap.String("attribute", attr))
			t.needsReindex = true
		}
	}
}

// ensureIndices rebuilds every index from a full scan of the data log
// when a prior index save failed. Grounded on the teacher's
// "persist first, mutate in-memory state only after persistence
// succeeds" recovery instinct, extended here to cover index corruption
// recovery rather than just the write path.
func (t *Table) ensureIndices() error {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	if !t.needsReindex {
		return nil
	}

	fresh := make(map[string]*index.Index, len(t.indices))
	for attr := range t.indices {
		// Empty the persisted file first so the scan below is the only
		// source of entries.
		if err := os.Truncate(filepath.Join(idxDir(t.dir), attr+".idx"), 0); err != nil && !os.IsNotExist(err) {
			return qerrors.ErrCreate
		}
		idx, err := index.Open(attr, idxDir(t.dir))
		if err != nil {
			return err
		}
		fresh[attr] = idx
	}

	records, locs, err := t.scanAll()
	if err != nil {
		return err
	}
	for i, rec := range records {
		if !rec.Active {
			continue
		}
		fresh[objectIDAttribute].Add(rec.ObjectID, locs[i])
		for attr, value := range t.indexableAttributes(rec.Data) {
			if idx, ok := fresh[attr]; ok {
				idx.Add(value, locs[i])
			}
		}
	}

	for _, idx := range fresh {
		if err := idx.Save(); err != nil {
			return err
		}
	}
	t.indices = fresh
	t.needsReindex = false
	return nil
}

// scanAll reads every record in the data log in append order, alongside
// its locator.
func (t *Table) scanAll() ([]document.Record, []index.ID, error) {
	buf, err := os.ReadFile(t.dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, qerrors.ErrDeserialize
	}

	var records []document.Record
	var locs []index.ID
	var offset uint64
	for offset < uint64(len(buf)) {
		if offset+frameHeaderSize > uint64(len(buf)) {
			return nil, nil, qerrors.ErrDeserialize
		}
		bodyLen := binary.BigEndian.Uint64(buf[offset : offset+frameHeaderSize])
		entryLen := frameHeaderSize + bodyLen
		if offset+entryLen > uint64(len(buf)) {
			return nil, nil, qerrors.ErrDeserialize
		}
		body := buf[offset+frameHeaderSize : offset+entryLen]
		var rec document.Record
		if err := msgpack.Unmarshal(body, &rec); err != nil {
			return nil, nil, qerrors.ErrDeserialize
		}
		records = append(records, rec)
		locs = append(locs, index.ID{Position: offset, Length: entryLen})
		offset += entryLen
	}
	return records, locs, nil
}
