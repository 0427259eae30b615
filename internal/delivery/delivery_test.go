package delivery_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"grd/internal/config"
	"grd/internal/delivery"
	"grd/internal/fileutil"
	"grd/internal/folders"
	"grd/internal/history"
	"grd/internal/ledger"
	"grd/internal/logging"
	"grd/internal/scan"
	"grd/internal/snapshot"
	"grd/internal/testsupport"
)

var (
	clock = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	mtime = time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
)

func newSession(t *testing.T, cfg *config.Config, opts ...delivery.Option) *delivery.Session {
	t.Helper()
	opts = append(opts, delivery.WithClock(func() time.Time { return clock }))
	return delivery.NewSession(cfg, logging.NewNop(), opts...)
}

func writeDoc(t *testing.T, dir, name string, size int64) scan.FileRecord {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, size)
	testsupport.Touch(t, path, mtime)
	rec, err := scan.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func readLedger(t *testing.T, dir string) ledger.View {
	t.Helper()
	view, err := ledger.Read(filepath.Join(dir, "GRD_ENTREGAS_AP.xlsx"), "GRD")
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	return view
}

func loadState(t *testing.T, dir string) snapshot.State {
	t.Helper()
	res := snapshot.Load(filepath.Join(dir, "controle_entregas.json"))
	if res.Status != snapshot.StatusOK {
		t.Fatalf("snapshot status = %v (%v)", res.Status, res.Err)
	}
	return res.State
}

func TestPostProcessFirstDelivery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	session := newSession(t, cfg)
	dir := t.TempDir()
	rec := writeDoc(t, dir, "Doc_A1-R01.dwg", 1234)

	out, err := session.PostProcess(context.Background(), delivery.Request{
		First:    true,
		Dir:      dir,
		Previous: snapshot.State{},
		New:      []scan.FileRecord{rec},
		Type:     folders.AP,
	})
	if err != nil {
		t.Fatalf("PostProcess failed: %v", err)
	}
	if out.Number != 1 || out.SaveErr != nil {
		t.Fatalf("unexpected outcome %+v", out)
	}

	view := readLedger(t, dir)
	if len(view.Rows) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(view.Rows))
	}
	if cell := view.Rows[0].Cells[0]; cell.Status != ledger.StatusNew || cell.Value != "Doc_A1-R01.dwg" {
		t.Fatalf("unexpected ledger cell %+v", cell)
	}

	state := loadState(t, dir)
	if state.OfficialDeliveries != 1 {
		t.Fatalf("entregas_oficiais = %d, want 1", state.OfficialDeliveries)
	}
	want := snapshot.Entry{Revision: "R01", Size: 1234, Timestamp: rec.Timestamp()}
	if got := state.Entries["doc-a1|.dwg"]; got != want {
		t.Fatalf("snapshot entry = %+v, want %+v", got, want)
	}
	if state.LastRun != clock.Format(snapshot.LastRunLayout) {
		t.Fatalf("ultima_execucao = %q", state.LastRun)
	}
}

func TestPostProcessFirstDeliveryWithoutFiles(t *testing.T) {
	session := newSession(t, testsupport.NewConfig(t))
	dir := t.TempDir()

	_, err := session.PostProcess(context.Background(), delivery.Request{First: true, Dir: dir, Type: folders.AP})
	if !errors.Is(err, delivery.ErrNothingToDeliver) {
		t.Fatalf("expected ErrNothingToDeliver, got %v", err)
	}
	if fileutil.Exists(filepath.Join(dir, "GRD_ENTREGAS_AP.xlsx")) {
		t.Fatal("ledger should not be created for an empty delivery")
	}
}

func TestPostProcessRejectsConcurrentRun(t *testing.T) {
	session := newSession(t, testsupport.NewConfig(t))
	dir := t.TempDir()
	rec := writeDoc(t, dir, "Doc_A1-R01.dwg", 10)

	held := flock.New(filepath.Join(dir, ".grd.lock"))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: %v %v", ok, err)
	}
	defer held.Unlock()

	_, err = session.PostProcess(context.Background(), delivery.Request{
		First: true,
		Dir:   dir,
		New:   []scan.FileRecord{rec},
		Type:  folders.AP,
	})
	if !errors.Is(err, delivery.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestDeliverTwiceArchivesAndRotates(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	journal, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()
	session := newSession(t, cfg, delivery.WithJournal(journal))

	dir := t.TempDir()
	writeDoc(t, dir, "Doc_A1-R01.dwg", 100)
	writeDoc(t, dir, "Planta-B-R00.pdf", 50)

	first, err := session.Deliver(ctx, dir, folders.AP)
	if err != nil {
		t.Fatalf("first Deliver failed: %v", err)
	}
	if !first.Plan.First || first.Folder.Number != 1 || len(first.Copied.Done) != 2 {
		t.Fatalf("unexpected first delivery %+v", first)
	}

	writeDoc(t, dir, "Doc_A1-R02.dwg", 120)
	second, err := session.Deliver(ctx, dir, folders.AP)
	if err != nil {
		t.Fatalf("second Deliver failed: %v", err)
	}
	if second.Plan.First || second.Folder.Number != 2 {
		t.Fatalf("unexpected second delivery %+v", second.Folder)
	}
	if len(second.Plan.Changes.Revised) != 1 || len(second.Plan.Obsolete) != 1 {
		t.Fatalf("unexpected plan %+v", second.Plan.Changes)
	}

	base := filepath.Join(dir, "1.ENTREGAS", "AP")
	rotated := filepath.Join(base, "1.AP - Entrega-1-OBSOLETO")
	if !fileutil.Exists(rotated) || !fileutil.Exists(filepath.Join(base, "1.AP - Entrega-2", "Doc_A1-R02.dwg")) {
		t.Fatal("expected rotated folder 1 and active folder 2")
	}

	archive := filepath.Join(dir, "Entrega_1-Obsoletos-2026-03-04")
	for _, name := range []string{"Doc_A1-R01.dwg", "GRD_ENTREGAS_AP.xlsx", "LISTA_OBSOLETOS.txt"} {
		if !fileutil.Exists(filepath.Join(archive, name)) {
			t.Fatalf("expected %s in archive", name)
		}
	}
	if fileutil.Exists(filepath.Join(dir, "Doc_A1-R01.dwg")) {
		t.Fatal("obsolete revision should have left the directory")
	}

	view := readLedger(t, dir)
	if len(view.Headers) != 2 || view.Headers[0] != "AP 2" {
		t.Fatalf("headers = %v", view.Headers)
	}
	doc, ok := view.Find("doc-a1", ".dwg")
	if !ok {
		t.Fatal("missing Doc-A1 row")
	}
	if doc.Cells[0].Status != ledger.StatusRevised || doc.Cells[0].Value != "Doc_A1-R02.dwg" {
		t.Fatalf("newest cell = %+v", doc.Cells[0])
	}
	if doc.Cells[1].Link != ledger.FolderURI(rotated) {
		t.Fatalf("historical link = %q", doc.Cells[1].Link)
	}
	plan, ok := view.Find("planta-b", ".pdf")
	if !ok || plan.Cells[0].Status != ledger.StatusUnchanged {
		t.Fatalf("unexpected Planta-B row %+v", plan)
	}

	state := loadState(t, dir)
	if state.OfficialDeliveries != 2 || state.Entries["doc-a1|.dwg"].Revision != "R02" {
		t.Fatalf("unexpected state %+v", state)
	}

	if _, err := session.Deliver(ctx, dir, folders.AP); !errors.Is(err, delivery.ErrNothingToDeliver) {
		t.Fatalf("expected ErrNothingToDeliver on unchanged directory, got %v", err)
	}

	runs, err := journal.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 journaled runs, got %d", len(runs))
	}
	for _, run := range runs {
		if run.Status != history.StatusCompleted {
			t.Fatalf("unexpected run %+v", run)
		}
	}
}

func TestLedgerLinksPointAtFoldersHoldingTheFile(t *testing.T) {
	ctx := context.Background()
	session := newSession(t, testsupport.NewConfig(t))
	dir := t.TempDir()

	writeDoc(t, dir, "Doc_A1-R01.dwg", 100)
	writeDoc(t, dir, "Planta-B-R00.pdf", 50)
	if _, err := session.Deliver(ctx, dir, folders.AP); err != nil {
		t.Fatalf("first Deliver failed: %v", err)
	}
	writeDoc(t, dir, "Doc_A1-R02.dwg", 120)
	if _, err := session.Deliver(ctx, dir, folders.AP); err != nil {
		t.Fatalf("second Deliver failed: %v", err)
	}
	writeDoc(t, dir, "Corte-C-R00.dwg", 80)
	if _, err := session.Deliver(ctx, dir, folders.AP); err != nil {
		t.Fatalf("third Deliver failed: %v", err)
	}

	view := readLedger(t, dir)
	if len(view.Headers) != 3 {
		t.Fatalf("headers = %v", view.Headers)
	}
	checked := 0
	for _, row := range view.Rows {
		for i, cell := range row.Cells {
			if cell.Value == "" {
				continue
			}
			folder, ok := ledger.FolderFromURI(cell.Link)
			if !ok {
				t.Fatalf("%s %s: unusable link %q", view.Headers[i], cell.Value, cell.Link)
			}
			if !fileutil.Exists(filepath.Join(folder, cell.Value)) {
				t.Errorf("%s %s (%s): link %s does not hold the file", view.Headers[i], cell.Value, cell.Status, folder)
			}
			checked++
		}
	}
	if checked != 7 {
		t.Fatalf("checked %d cells, want 7", checked)
	}
}

func TestPlanTreatsCorruptSnapshotAsFirstDelivery(t *testing.T) {
	session := newSession(t, testsupport.NewConfig(t))
	dir := t.TempDir()
	writeDoc(t, dir, "Doc_A1-R01.dwg", 10)
	if err := os.WriteFile(filepath.Join(dir, "controle_entregas.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	plan, err := session.Plan(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Load.Status != snapshot.StatusCorrupt || !plan.First {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if len(plan.Changes.New) != 1 || len(plan.Files) != 1 {
		t.Fatalf("expected the file to be new, got %+v", plan.Changes)
	}
}

func TestPlanIgnoresForeignSnapshotKeys(t *testing.T) {
	session := newSession(t, testsupport.NewConfig(t))
	dir := t.TempDir()
	rec := writeDoc(t, dir, "Doc_A1-R01.dwg", 10)

	path := filepath.Join(dir, "controle_entregas.json")
	if err := snapshot.Save(path, snapshot.FromHeads([]scan.FileRecord{rec}, 1, clock)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data = append([]byte(`{"versao": 2, `), bytes.TrimPrefix(bytes.TrimSpace(data), []byte("{"))...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	plan, err := session.Plan(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Load.Status != snapshot.StatusOK || plan.First {
		t.Fatalf("expected the snapshot to load, got %+v", plan.Load)
	}
	if len(plan.Load.Skipped) != 1 || plan.Load.Skipped[0] != "versao" {
		t.Fatalf("skipped = %v", plan.Load.Skipped)
	}
	if !plan.Changes.Empty() {
		t.Fatalf("expected no changes, got %+v", plan.Changes)
	}
}
