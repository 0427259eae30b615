package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"grd/internal/revision"
	"grd/internal/scan"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controle_entregas.json")
	heads := []scan.FileRecord{
		{Name: "Doc_A1-R01.dwg", Revision: "R01", Size: 42, ModTime: time.Unix(1700000000, 250_000_000)},
		{Name: "Memorial.pdf", Revision: "", Size: 7, ModTime: time.Unix(1700000100, 0)},
	}
	st := FromHeads(heads, 3, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC))

	if err := Save(path, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	res := Load(path)
	if res.Status != StatusOK {
		t.Fatalf("expected ok status, got %v (%v)", res.Status, res.Err)
	}
	got := res.State
	if got.OfficialDeliveries != 3 || got.LastRun != "2026-01-02T15:04:05" {
		t.Fatalf("unexpected metadata %+v", got)
	}
	e, ok := got.Lookup(revision.Key{Base: "doc-a1", Ext: ".dwg"})
	if !ok {
		t.Fatalf("missing entry, have %v", got.Entries)
	}
	if e.Revision != "R01" || e.Size != 42 || e.Timestamp != 1700000000.25 {
		t.Fatalf("unexpected entry %+v", e)
	}
	if keys := got.Keys(); len(keys) != 2 || keys[0].String() != "doc-a1|.dwg" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestFileLayoutUsesFlatKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st := State{
		Entries:            map[string]Entry{"doc-a1|.dwg": {Revision: "R01", Size: 10, Timestamp: 5}},
		LastRun:            "2026-01-02T00:00:00",
		OfficialDeliveries: 1,
	}
	if err := Save(path, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	entry, ok := raw["doc-a1|.dwg"].(map[string]any)
	if !ok {
		t.Fatalf("expected flat lineage key, got %v", raw)
	}
	if entry["revisao"] != "R01" || entry["tamanho"] != float64(10) || entry["timestamp"] != float64(5) {
		t.Fatalf("unexpected entry fields %v", entry)
	}
	if raw["entregas_oficiais"] != float64(1) || raw["ultima_execucao"] != "2026-01-02T00:00:00" {
		t.Fatalf("unexpected metadata %v", raw)
	}
}

func TestLoadAbsentAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	absent := Load(filepath.Join(dir, "missing.json"))
	if absent.Status != StatusAbsent || !absent.StateOrEmpty().IsEmpty() {
		t.Fatalf("expected absent empty state, got %+v", absent)
	}

	corruptPath := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corruptPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	corrupt := Load(corruptPath)
	if corrupt.Status != StatusCorrupt || corrupt.Err == nil {
		t.Fatalf("expected corrupt status with error, got %+v", corrupt)
	}
	if !corrupt.StateOrEmpty().IsEmpty() {
		t.Fatal("corrupt snapshot must degrade to empty state")
	}

	badMeta := filepath.Join(dir, "bad-meta.json")
	if err := os.WriteFile(badMeta, []byte(`{"entregas_oficiais": "two"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := Load(badMeta); res.Status != StatusCorrupt {
		t.Fatalf("expected malformed metadata to be corrupt, got %v", res.Status)
	}
}

func TestLoadSkipsKeysThatAreNotEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controle_entregas.json")
	data := `{
  "doc-a1|.dwg": {"revisao": "R02", "tamanho": 10, "timestamp": 1700000000},
  "versao": 2,
  "notas": "editado a mao",
  "planta|.pdf": ["R01"],
  "entregas_oficiais": 4,
  "ultima_execucao": "2026-01-02T15:04:05"
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res := Load(path)
	if res.Status != StatusOK {
		t.Fatalf("expected ok status, got %v (%v)", res.Status, res.Err)
	}
	if want := []string{"notas", "planta|.pdf", "versao"}; !reflect.DeepEqual(res.Skipped, want) {
		t.Fatalf("skipped = %v, want %v", res.Skipped, want)
	}
	if res.State.OfficialDeliveries != 4 || len(res.State.Entries) != 1 {
		t.Fatalf("unexpected state %+v", res.State)
	}
	if e, ok := res.State.Lookup(revision.Key{Base: "doc-a1", Ext: ".dwg"}); !ok || e.Revision != "R02" {
		t.Fatalf("entry = %+v, %v", e, ok)
	}
}

func TestEntryDrifted(t *testing.T) {
	e := Entry{Revision: "R01", Size: 10, Timestamp: 100.5}
	if e.Drifted(10, 100.5) {
		t.Fatal("identical metrics must not drift")
	}
	if e.Drifted(10, 100.5004) {
		t.Fatal("sub-millisecond differences must not drift")
	}
	if !e.Drifted(11, 100.5) || !e.Drifted(10, 101) {
		t.Fatal("size or timestamp changes must drift")
	}
}
