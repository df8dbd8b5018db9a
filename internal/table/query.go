package table

import (
	"github.com/keaz/qtable/internal/document"
	"github.com/keaz/qtable/internal/index"
	"github.com/keaz/qtable/internal/parser"
	"github.com/samber/lo"
)

// eval walks a Condition tree, combining leaf index lookups with
// intersection for And and deduplicated union for Or. Grounded on
// original_source/src/data_object.rs's query/query_wildcard, which does
// exactly this over its own index map. Callers must hold stateMu
// (read or write).
func (t *Table) eval(cond *parser.Condition) []index.ID {
	if cond == nil {
		return nil
	}
	switch cond.Op {
	case parser.OpAnd:
		left := t.eval(cond.Left)
		right := t.eval(cond.Right)
		return intersect(left, right)
	case parser.OpOr:
		left := t.eval(cond.Left)
		right := t.eval(cond.Right)
		return lo.Uniq(append(left, right...))
	case parser.OpEqual:
		return t.lookup(cond.Field, func(idx *index.Index) []index.ID { return idx.Equal(cond.Value) })
	case parser.OpStartsWith:
		return t.lookup(cond.Field, func(idx *index.Index) []index.ID { return idx.Prefix(cond.Value) })
	case parser.OpEndsWith:
		return t.lookup(cond.Field, func(idx *index.Index) []index.ID { return idx.Suffix(cond.Value) })
	case parser.OpContains:
		return t.lookup(cond.Field, func(idx *index.Index) []index.ID { return idx.Contains(cond.Value) })
	default:
		if op, ok := conditionRangeOp(cond.Op); ok {
			return t.lookup(cond.Field, func(idx *index.Index) []index.ID { return idx.Range(cond.Value, op) })
		}
		return nil
	}
}

func (t *Table) lookup(field string, query func(*index.Index) []index.ID) []index.ID {
	idx, ok := t.indices[field]
	if !ok {
		return nil
	}
	return query(idx)
}

// intersect mirrors original_source's And handling: retain items from
// left that also appear in right.
func intersect(left, right []index.ID) []index.ID {
	if len(left) == 0 || len(right) == 0 {
		return nil
	}
	set := make(map[index.ID]bool, len(right))
	for _, id := range right {
		set[id] = true
	}
	var out []index.ID
	for _, id := range left {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}

// Select evaluates filter and returns every active matching record.
// Concurrent identical queries are coalesced through a singleflight
// group keyed by the filter's canonical string rendering (spec.md §4.3
// query coalescing).
func (t *Table) Select(filter *parser.Condition) ([]document.Record, error) {
	if err := t.ensureIndices(); err != nil {
		return nil, err
	}

	key := filter.String()
	result, err, _ := t.group.Do(key, func() (any, error) {
		t.stateMu.RLock()
		locs := t.eval(filter)
		t.stateMu.RUnlock()

		records := make([]document.Record, 0, len(locs))
		for _, loc := range locs {
			rec, err := t.readRecord(loc)
			if err != nil {
				return nil, err
			}
			if rec.Active {
				records = append(records, rec)
			}
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}

	// Each caller gets its own copy so index mutations elsewhere never
	// alias a concurrently returned slice.
	records := result.([]document.Record)
	out := make([]document.Record, len(records))
	copy(out, records)
	return out, nil
}
