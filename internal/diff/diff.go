// Package diff classifies the files of a delivery directory against the
// previous snapshot and selects the obsolete revisions.
package diff

import (
	"sort"

	"grd/internal/revision"
	"grd/internal/scan"
	"grd/internal/snapshot"
)

// Result holds the classified records. Records absent from every list are
// unchanged.
type Result struct {
	New     []scan.FileRecord
	Revised []scan.FileRecord
	Changed []scan.FileRecord
}

// Empty reports whether nothing needs delivering.
func (r Result) Empty() bool {
	return len(r.New) == 0 && len(r.Revised) == 0 && len(r.Changed) == 0
}

// All returns New, Revised and Changed concatenated.
func (r Result) All() []scan.FileRecord {
	out := make([]scan.FileRecord, 0, len(r.New)+len(r.Revised)+len(r.Changed))
	out = append(out, r.New...)
	out = append(out, r.Revised...)
	return append(out, r.Changed...)
}

// lineage is the records of one key, ascending by revision number.
type lineage struct {
	key     revision.Key
	records []scan.FileRecord
}

// group splits records by lineage. Lineages are returned in key order and
// records within a lineage ascend by revision number, then name.
func group(records []scan.FileRecord) []lineage {
	index := make(map[revision.Key]int)
	var groups []lineage
	for _, r := range records {
		k := r.Key()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, lineage{key: k})
		}
		groups[i].records = append(groups[i].records, r)
	}
	for i := range groups {
		recs := groups[i].records
		sort.SliceStable(recs, func(a, b int) bool {
			na, nb := recs[a].RevisionNumber(), recs[b].RevisionNumber()
			if na != nb {
				return na < nb
			}
			return recs[a].Name < recs[b].Name
		})
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].key.String() < groups[b].key.String() })
	return groups
}

// Diff classifies records against the previous state.
//
// A lineage unknown to the state contributes its lowest revision as new and
// every other revision as revised. For a known lineage whose highest revision
// moved past the stored one, records above the stored revision are revised.
// In every known lineage, the record carrying the stored revision is changed
// when its size or timestamp drifted from the stored values.
func Diff(records []scan.FileRecord, state snapshot.State) Result {
	var res Result
	for _, g := range group(records) {
		prev, known := state.Lookup(g.key)
		if !known {
			res.New = append(res.New, g.records[0])
			res.Revised = append(res.Revised, g.records[1:]...)
			continue
		}

		prevNum := revision.Number(prev.Revision)
		highest := g.records[len(g.records)-1]
		if revision.Compare(highest.Revision, prev.Revision) > 0 {
			for _, r := range g.records {
				switch n := r.RevisionNumber(); {
				case n > prevNum:
					res.Revised = append(res.Revised, r)
				case n == prevNum && prev.Drifted(r.Size, r.Timestamp()):
					res.Changed = append(res.Changed, r)
				}
			}
			continue
		}

		for _, r := range g.records {
			if r.Revision == prev.Revision && prev.Drifted(r.Size, r.Timestamp()) {
				res.Changed = append(res.Changed, r)
			}
		}
	}
	return res
}

// IdentifyObsolete returns every record except the highest revision of each
// lineage.
func IdentifyObsolete(records []scan.FileRecord) []scan.FileRecord {
	var out []scan.FileRecord
	for _, g := range group(records) {
		out = append(out, g.records[:len(g.records)-1]...)
	}
	return out
}

// Heads returns the highest revision of each lineage.
func Heads(records []scan.FileRecord) []scan.FileRecord {
	groups := group(records)
	out := make([]scan.FileRecord, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.records[len(g.records)-1])
	}
	return out
}
