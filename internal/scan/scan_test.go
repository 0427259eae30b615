package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDirectorySkipsReservedEntries(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"B-R01.dwg", "A.pdf", ".grd.lock", "~$A.docx", "GRD_ENTREGAS_AP.xlsx"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "1.ENTREGAS"), 0o755); err != nil {
		t.Fatal(err)
	}

	records, err := Directory(dir, "grd_entregas_ap.xlsx")
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if got, want := Names(records), []string{"A.pdf", "B-R01.dwg"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected names %v, want %v", got, want)
	}
	if records[1].Revision != "R01" || records[0].Revision != "" {
		t.Fatalf("unexpected revisions %q %q", records[0].Revision, records[1].Revision)
	}
	if records[1].Size != 1 {
		t.Fatalf("unexpected size %d", records[1].Size)
	}
}

func TestDirectoryMissing(t *testing.T) {
	if _, err := Directory(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestTimestampSeconds(t *testing.T) {
	r := FileRecord{ModTime: time.Unix(1700000000, 500_000_000)}
	if got := r.Timestamp(); got != 1700000000.5 {
		t.Fatalf("unexpected timestamp %v", got)
	}
}

func TestStat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Doc_A1-R02.dwg")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if r.Name != "Doc_A1-R02.dwg" || r.Revision != "R02" || r.Size != 3 || r.Path != path {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.Key().String() != "doc-a1|.dwg" {
		t.Fatalf("unexpected key %q", r.Key().String())
	}
}
