package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/natefinch/atomic"

	"grd/internal/revision"
	"grd/internal/scan"
)

const (
	keyLastRun    = "ultima_execucao"
	keyDeliveries = "entregas_oficiais"

	// LastRunLayout formats ultima_execucao.
	LastRunLayout = "2006-01-02T15:04:05"

	// timestampTolerance absorbs float rounding of persisted mtimes.
	timestampTolerance = 1e-3
)

// Entry is the persisted head of one lineage.
type Entry struct {
	Revision  string  `json:"revisao"`
	Size      int64   `json:"tamanho"`
	Timestamp float64 `json:"timestamp"`
}

// Drifted reports whether size or timestamp differ from the entry.
func (e Entry) Drifted(size int64, timestamp float64) bool {
	return e.Size != size || math.Abs(e.Timestamp-timestamp) > timestampTolerance
}

// EntryFor captures a file record as a snapshot entry.
func EntryFor(r scan.FileRecord) Entry {
	return Entry{Revision: r.Revision, Size: r.Size, Timestamp: r.Timestamp()}
}

// State is the full snapshot of one delivery directory.
type State struct {
	Entries            map[string]Entry
	LastRun            string
	OfficialDeliveries int

	// skipped holds top-level keys that were not lineage entries.
	skipped []string
}

// IsEmpty reports whether the state describes a directory never delivered.
func (s State) IsEmpty() bool {
	return len(s.Entries) == 0
}

// Lookup returns the entry for a lineage.
func (s State) Lookup(key revision.Key) (Entry, bool) {
	e, ok := s.Entries[key.String()]
	return e, ok
}

// Keys returns the lineage keys in sorted order.
func (s State) Keys() []revision.Key {
	raw := make([]string, 0, len(s.Entries))
	for k := range s.Entries {
		raw = append(raw, k)
	}
	sort.Strings(raw)
	keys := make([]revision.Key, len(raw))
	for i, k := range raw {
		keys[i] = revision.ParseKey(k)
	}
	return keys
}

// FromHeads builds a state from lineage head records.
func FromHeads(heads []scan.FileRecord, deliveries int, now time.Time) State {
	st := State{
		Entries:            make(map[string]Entry, len(heads)),
		LastRun:            now.Format(LastRunLayout),
		OfficialDeliveries: deliveries,
	}
	for _, r := range heads {
		st.Entries[r.Key().String()] = EntryFor(r)
	}
	return st
}

// MarshalJSON writes the flat layout: lineage keys next to the two metadata
// fields.
func (s State) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(s.Entries)+2)
	for k, e := range s.Entries {
		flat[k] = e
	}
	flat[keyLastRun] = s.LastRun
	flat[keyDeliveries] = s.OfficialDeliveries
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat layout written by MarshalJSON. Keys whose
// value is not an entry object are skipped; only malformed metadata fields
// fail the decode.
func (s *State) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	out := State{Entries: make(map[string]Entry, len(flat))}
	for k, raw := range flat {
		switch k {
		case keyLastRun:
			if err := json.Unmarshal(raw, &out.LastRun); err != nil {
				return fmt.Errorf("%s: %w", keyLastRun, err)
			}
		case keyDeliveries:
			if err := json.Unmarshal(raw, &out.OfficialDeliveries); err != nil {
				return fmt.Errorf("%s: %w", keyDeliveries, err)
			}
		default:
			var e Entry
			if !isObject(raw) || json.Unmarshal(raw, &e) != nil {
				out.skipped = append(out.skipped, k)
				continue
			}
			out.Entries[k] = e
		}
	}
	sort.Strings(out.skipped)
	*s = out
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Status tags the outcome of Load.
type Status int

const (
	StatusOK Status = iota
	StatusAbsent
	StatusCorrupt
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAbsent:
		return "absent"
	case StatusCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// LoadResult is the outcome of reading a snapshot file. Err is set for
// StatusCorrupt and carries the read or decode failure.
type LoadResult struct {
	Status Status
	State  State
	Path   string
	Err    error
	// Skipped lists top-level keys ignored because they were not lineage
	// entries.
	Skipped []string
}

// StateOrEmpty returns the loaded state, or an empty state when the file was
// absent or corrupt.
func (r LoadResult) StateOrEmpty() State {
	if r.Status != StatusOK {
		return State{Entries: map[string]Entry{}}
	}
	return r.State
}

// Load reads the snapshot file at path. It never fails: absence and
// corruption are reported through the result status.
func Load(path string) LoadResult {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LoadResult{Status: StatusAbsent, Path: path}
		}
		return LoadResult{Status: StatusCorrupt, Path: path, Err: fmt.Errorf("read snapshot: %w", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return LoadResult{Status: StatusAbsent, Path: path}
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return LoadResult{Status: StatusCorrupt, Path: path, Err: fmt.Errorf("parse snapshot: %w", err)}
	}
	skipped := st.skipped
	st.skipped = nil
	return LoadResult{Status: StatusOK, State: st, Path: path, Skipped: skipped}
}

// Save writes the state to path atomically, replacing any previous content.
func Save(path string, st State) error {
	if st.Entries == nil {
		st.Entries = map[string]Entry{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
