// Package index implements the per-attribute inverted index spec.md §4.2
// describes: a sorted string key maps to the set of record locators that
// produced it. Grounded on original_source/src/index.rs's IndexImpl,
// which gets ordering for free from Rust's BTreeMap; Go has no built-in
// ordered map, so this keeps a sorted key slice alongside the lookup map
// and uses sort.Search for key insertion and the prefix scan, giving the
// same O(log n) seek the original relies on. Range compares every key.
package index

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/keaz/qtable/internal/qerrors"
	"github.com/vmihailenco/msgpack/v5"
)

// ID locates one record in a table's append-only data log.
type ID struct {
	Position uint64 `msgpack:"position"`
	Length   uint64 `msgpack:"length"`
}

// RangeOp selects the comparison Range performs against the index's
// sorted keys.
type RangeOp int

const (
	GreaterThan RangeOp = iota
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

// Index is the in-memory inverted index for one table attribute,
// persisted to "<attribute>.idx" under the table's idx directory.
type Index struct {
	mu   sync.RWMutex
	path string
	keys []string
	data map[string][]ID
}

// Open loads (or creates) the index file for attribute under parentDir,
// grounded on original_source's new_or_load.
func Open(attribute, parentDir string) (*Index, error) {
	path := filepath.Join(parentDir, attribute+".idx")
	idx := &Index{path: path, data: make(map[string][]ID)}

	bytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if f, createErr := os.Create(path); createErr != nil {
				return nil, qerrors.ErrCreate
			} else {
				f.Close()
			}
			return idx, nil
		}
		return nil, qerrors.ErrCreate
	}
	if len(bytes) == 0 {
		return idx, nil
	}
	var data map[string][]ID
	if err := msgpack.Unmarshal(bytes, &data); err != nil {
		return nil, qerrors.ErrDeserialize
	}
	idx.data = data
	idx.keys = make([]string, 0, len(data))
	for k := range data {
		idx.keys = append(idx.keys, k)
	}
	sort.Strings(idx.keys)
	return idx, nil
}

// Save truncates and rewrites the index file with the current contents,
// grounded on original_source's IndexImpl::save (set_len(0), seek(0),
// write_all).
func (idx *Index) Save() error {
	idx.mu.RLock()
	data := make(map[string][]ID, len(idx.data))
	for k, v := range idx.data {
		data[k] = v
	}
	idx.mu.RUnlock()

	encoded, err := msgpack.Marshal(data)
	if err != nil {
		return qerrors.ErrSerialize
	}
	f, err := os.OpenFile(idx.path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return qerrors.ErrSerialize
	}
	defer f.Close()
	if _, err := f.Write(encoded); err != nil {
		return qerrors.ErrSerialize
	}
	return nil
}

// Add appends id to the list of locators for value, inserting value into
// the sorted key set if it is new.
func (idx *Index) Add(value string, id ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.data[value]; !ok {
		idx.insertKey(value)
	}
	idx.data[value] = append(idx.data[value], id)
}

// Remove drops id from value's locator list. A value with no ids left
// stays in the index as an empty slice, matching original_source's
// retain-based remove_from_index (it never deletes the map entry).
func (idx *Index) Remove(value string, id ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids, ok := idx.data[value]
	if !ok {
		return
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	idx.data[value] = kept
}

func (idx *Index) insertKey(value string) {
	i := sort.SearchStrings(idx.keys, value)
	idx.keys = append(idx.keys, "")
	copy(idx.keys[i+1:], idx.keys[i:])
	idx.keys[i] = value
}

// Equal returns the locators recorded under exactly value.
func (idx *Index) Equal(value string) []ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]ID(nil), idx.data[value]...)
}

// Range returns locators for every key satisfying op against value.
func (idx *Index) Range(value string, op RangeOp) []ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var results []ID
	for _, key := range idx.keys {
		var match bool
		switch op {
		case GreaterThan:
			match = key > value
		case GreaterThanOrEqual:
			match = key >= value
		case LessThan:
			match = key < value
		case LessThanOrEqual:
			match = key <= value
		}
		if match {
			results = append(results, idx.data[key]...)
		}
	}
	return results
}

// Prefix returns locators for every key starting with prefix, using
// sort.Search to jump directly to the first matching key the way the
// original's BTreeMap range(prefix..) does.
func (idx *Index) Prefix(prefix string) []ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	start := sort.SearchStrings(idx.keys, prefix)
	var results []ID
	for _, key := range idx.keys[start:] {
		if !strings.HasPrefix(key, prefix) {
			break
		}
		results = append(results, idx.data[key]...)
	}
	return results
}

// Suffix returns locators for every key ending with suffix. Unlike
// Prefix this needs a full scan: no ordering over suffixes is available
// from a key sorted by prefix.
func (idx *Index) Suffix(suffix string) []ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var results []ID
	for _, key := range idx.keys {
		if strings.HasSuffix(key, suffix) {
			results = append(results, idx.data[key]...)
		}
	}
	return results
}

// Contains returns locators for every key containing substr.
func (idx *Index) Contains(substr string) []ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var results []ID
	for _, key := range idx.keys {
		if strings.Contains(key, substr) {
			results = append(results, idx.data[key]...)
		}
	}
	return results
}
