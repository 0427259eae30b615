package folders

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"grd/internal/fileutil"
	"grd/internal/logging"
	"grd/internal/scan"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(DefaultLayout(), logging.NewNop(),
		WithRetryPolicy(fileutil.RetryPolicy{Attempts: 1}),
		WithClock(func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }),
	)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestCreateDeliveryFolderRotates(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	base := t.TempDir()
	src := filepath.Join(t.TempDir(), "Doc_A1-R01.dwg")
	writeFile(t, src, "abc")

	first, report, err := m.CreateDeliveryFolder(ctx, base, AP, []string{src})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first.Number != 1 || first.Name != "1.AP - Entrega-1" {
		t.Fatalf("unexpected first folder %+v", first)
	}
	if len(report.Done) != 1 {
		t.Fatalf("expected one copied file, got %+v", report)
	}
	if !fileutil.Exists(filepath.Join(first.Path, "Doc_A1-R01.dwg")) {
		t.Fatal("expected file copied into delivery folder")
	}

	second, _, err := m.CreateDeliveryFolder(ctx, base, AP, nil)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.Number != 2 {
		t.Fatalf("expected delivery 2, got %d", second.Number)
	}
	want := []string{"1.AP - Entrega-1-OBSOLETO", "1.AP - Entrega-2"}
	if got := dirNames(t, filepath.Join(base, "AP")); !reflect.DeepEqual(got, want) {
		t.Fatalf("folders = %v, want %v", got, want)
	}

	active, err := m.Active(base, AP)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Name != "1.AP - Entrega-2" {
		t.Fatalf("expected exactly one active folder, got %+v", active)
	}
}

func TestCreateDeliveryFolderObsoleteCollision(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	base := t.TempDir()

	for i := 0; i < 2; i++ {
		if _, _, err := m.CreateDeliveryFolder(ctx, base, AP, nil); err != nil {
			t.Fatal(err)
		}
	}
	// A stale rotated copy of delivery 2 already occupies the obsolete name.
	if err := os.Mkdir(filepath.Join(base, "AP", "1.AP - Entrega-2-OBSOLETO"), 0o755); err != nil {
		t.Fatal(err)
	}

	third, _, err := m.CreateDeliveryFolder(ctx, base, AP, nil)
	if err != nil {
		t.Fatal(err)
	}
	if third.Number != 3 {
		t.Fatalf("expected delivery 3, got %d", third.Number)
	}
	want := []string{
		"1.AP - Entrega-1-OBSOLETO",
		"1.AP - Entrega-2-OBSOLETO",
		"1.AP - Entrega-2-OBSOLETO2",
		"1.AP - Entrega-3",
	}
	if got := dirNames(t, filepath.Join(base, "AP")); !reflect.DeepEqual(got, want) {
		t.Fatalf("folders = %v, want %v", got, want)
	}
	if got := m.ResolveFolder(base, AP, 2); got != filepath.Join(base, "AP", "1.AP - Entrega-2-OBSOLETO2") {
		t.Fatalf("ResolveFolder(2) = %q, want the folder rotated last", got)
	}
}

func TestIdentify(t *testing.T) {
	m := newTestManager(t)
	base := t.TempDir()
	cases := []struct {
		path string
		t    Type
		n    int
		ok   bool
	}{
		{filepath.Join(base, "AP", "1.AP - Entrega-4"), AP, 4, true},
		{filepath.Join(base, "AP", "1.AP - Entrega-4-OBSOLETO2"), AP, 4, true},
		{filepath.Join(base, "PE", "2.PE - Entrega-1-OBSOLETO"), PE, 1, true},
		{filepath.Join(base, "PE", "1.AP - Entrega-1"), "", 0, false},
		{base, "", 0, false},
	}
	for _, tc := range cases {
		typ, n, ok := m.Identify(tc.path)
		if typ != tc.t || n != tc.n || ok != tc.ok {
			t.Errorf("Identify(%q) = %q %d %v, want %q %d %v", tc.path, typ, n, ok, tc.t, tc.n, tc.ok)
		}
	}
}

func TestCreateDeliveryFolderSkipsMissingSources(t *testing.T) {
	m := newTestManager(t)
	base := t.TempDir()
	present := filepath.Join(t.TempDir(), "Planta-R00.pdf")
	writeFile(t, present, "x")
	missing := filepath.Join(t.TempDir(), "Gone-R00.pdf")

	folder, report, err := m.CreateDeliveryFolder(context.Background(), base, PE, []string{missing, present})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if folder.Name != "2.PE - Entrega-1" {
		t.Fatalf("unexpected folder %s", folder.Name)
	}
	if !reflect.DeepEqual(report.Skipped, []string{missing}) || !reflect.DeepEqual(report.Done, []string{present}) {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestTypesAreIndependent(t *testing.T) {
	m := newTestManager(t)
	base := t.TempDir()
	if _, _, err := m.CreateDeliveryFolder(context.Background(), base, AP, nil); err != nil {
		t.Fatal(err)
	}
	n, err := m.NextNumber(base, PE)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected PE numbering to start at 1, got %d", n)
	}
}

func TestResolveFolderFollowsRotation(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	base := t.TempDir()
	for i := 0; i < 2; i++ {
		if _, _, err := m.CreateDeliveryFolder(ctx, base, AP, nil); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := m.ResolveFolder(base, AP, 1), filepath.Join(base, "AP", "1.AP - Entrega-1-OBSOLETO"); got != want {
		t.Fatalf("ResolveFolder(1) = %s, want %s", got, want)
	}
	if got, want := m.ResolveFolder(base, AP, 2), filepath.Join(base, "AP", "1.AP - Entrega-2"); got != want {
		t.Fatalf("ResolveFolder(2) = %s, want %s", got, want)
	}
	if got, want := m.ResolveFolder(base, AP, 9), filepath.Join(base, "AP", "1.AP - Entrega-9"); got != want {
		t.Fatalf("ResolveFolder(9) = %s, want %s", got, want)
	}
}

func TestArchivePreviousDelivery(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "GRD_ENTREGAS_AP.xlsx"), "ledger")

	var obsoletes []scan.FileRecord
	for _, name := range []string{"E-Doc-R00.dwg", "Doc_B-R00.dwg"} {
		path := filepath.Join(dir, name)
		writeFile(t, path, name)
		obsoletes = append(obsoletes, scan.FileRecord{Name: name, Path: path})
	}
	obsoletes = append(obsoletes, scan.FileRecord{Name: "Vanished-R00.dwg", Path: filepath.Join(dir, "Vanished-R00.dwg")})

	archiveDir := filepath.Join(dir, "Entrega_1-Obsoletos-2026-03-04")
	// An earlier archive run the same day already holds an A-Doc-R00.dwg.
	writeFile(t, filepath.Join(archiveDir, "A-Doc-R00.dwg"), "old")

	archive, report, err := m.ArchivePreviousDelivery(context.Background(), obsoletes, dir, AP, 2)
	if err != nil {
		t.Fatalf("ArchivePreviousDelivery: %v", err)
	}
	if archive.Path != archiveDir {
		t.Fatalf("unexpected archive path %s", archive.Path)
	}
	if archive.LedgerCopy == "" || !fileutil.Exists(filepath.Join(dir, "GRD_ENTREGAS_AP.xlsx")) {
		t.Fatal("expected ledger to be copied and the live ledger kept")
	}
	if len(report.Done) != 2 || len(report.Skipped) != 1 || len(report.Failed) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	want := []string{"A-Doc-R00.dwg", "A-Doc-R00_dup1.dwg", "Doc_B-R00.dwg", "GRD_ENTREGAS_AP.xlsx", "LISTA_OBSOLETOS.txt"}
	if got := dirNames(t, archiveDir); !reflect.DeepEqual(got, want) {
		t.Fatalf("archive contents = %v, want %v", got, want)
	}

	manifest, err := os.ReadFile(archive.Manifest)
	if err != nil {
		t.Fatal(err)
	}
	if string(manifest) != "Doc_B-R00.dwg\nE-Doc-R00.dwg\nVanished-R00.dwg\n" {
		t.Fatalf("unexpected manifest %q", manifest)
	}
}

func TestArchivedName(t *testing.T) {
	tests := map[string]string{
		"E-Doc-R00.dwg":  "A-Doc-R00.dwg",
		"p_Planta.pdf":   "A_Planta.pdf",
		"Doc_A1-R00.dwg": "Doc_A1-R00.dwg",
		"1-Doc.dwg":      "1-Doc.dwg",
	}
	for in, want := range tests {
		if got := ArchivedName(in); got != want {
			t.Errorf("ArchivedName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseType(t *testing.T) {
	if got, err := ParseType(" pe "); err != nil || got != PE {
		t.Fatalf("ParseType(pe) = %v, %v", got, err)
	}
	if _, err := ParseType("XX"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
