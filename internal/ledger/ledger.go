package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"grd/internal/folders"
	"grd/internal/logging"
	"grd/internal/revision"
	"grd/internal/scan"
	"grd/internal/snapshot"
)

// ErrSheetMissing is returned when an existing workbook lacks the ledger sheet.
var ErrSheetMissing = errors.New("ledger sheet missing")

var deliveryHeader = regexp.MustCompile(`^(AP|PE) (\d+)$`)

// FolderResolver finds the current path of a numbered delivery folder,
// following rotations to obsolete names, and tells which delivery a folder
// path belongs to.
type FolderResolver interface {
	ResolveFolder(baseDir string, t folders.Type, n int) string
	Identify(path string) (folders.Type, int, bool)
}

// Options describes one ledger update.
type Options struct {
	// Path of the workbook; created when absent.
	Path        string
	Sheet       string
	Title       string
	Description string

	Type   folders.Type
	Number int

	// Dir is the discipline directory shown in the header block.
	Dir string
	// BaseDir is the deliveries root used to resolve historical links.
	BaseDir string
	// Folder is the delivery folder holding the new, revised and changed
	// files of this delivery. Unchanged files keep linking to the folder
	// they were last delivered in. Empty links each cell to the directory
	// of its file.
	Folder string

	Files []scan.FileRecord
	// Previous is the persisted state before this run. Its entries take
	// precedence over what can be recovered from the sheet.
	Previous snapshot.State
}

// Summary reports what an update wrote.
type Summary struct {
	Path          string
	Created       bool
	Header        string
	Rows          int
	Counts        map[Status]int
	CarriedOver   int
	Reconstructed int
	Backfilled    int
}

// Writer updates ledgers.
type Writer struct {
	resolver FolderResolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewWriter constructs a ledger writer.
func NewWriter(resolver FolderResolver, logger *slog.Logger) *Writer {
	return &Writer{
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "ledger"),
		now:      time.Now,
	}
}

// prior is what is known about a lineage from the previous delivery.
type prior struct {
	row int
	// value is the previous delivery's cell, empty when the lineage was not
	// part of it.
	value string
	// link is the folder the previous delivery's cell points at, already
	// followed through rotations.
	link string
	// entry is valid when known is set; metrics when it came from the state.
	entry   snapshot.Entry
	known   bool
	metrics bool
}

// Header returns the column header of a delivery, e.g. "AP 3".
func Header(t folders.Type, n int) string {
	return fmt.Sprintf("%s %d", t, n)
}

// Update inserts a column for the delivery and writes the workbook.
func (w *Writer) Update(opts Options) (Summary, error) {
	if opts.Sheet == "" {
		opts.Sheet = "GRD"
	}
	summary := Summary{Path: opts.Path, Header: Header(opts.Type, opts.Number), Counts: make(map[Status]int)}

	f, created, err := openOrCreate(opts.Path, opts.Sheet)
	if err != nil {
		return summary, err
	}
	defer func() {
		_ = f.Close()
	}()
	summary.Created = created
	st := newStyles(f)

	if created {
		if err := writeHeaderBlock(f, st, opts); err != nil {
			return summary, err
		}
	}
	if err := writeMetadata(f, opts, w.now()); err != nil {
		return summary, err
	}

	rows, err := f.GetRows(opts.Sheet)
	if err != nil {
		return summary, fmt.Errorf("read ledger rows: %w", err)
	}
	links, err := readLinks(f, opts.Sheet, rows)
	if err != nil {
		return summary, err
	}
	if err := f.InsertCols(opts.Sheet, columnName(colFirstDelivery), 1); err != nil {
		return summary, fmt.Errorf("insert delivery column: %w", err)
	}
	if err := f.SetColWidth(opts.Sheet, columnName(colFirstDelivery), columnName(colFirstDelivery), widthDelivery); err != nil {
		return summary, fmt.Errorf("set column width: %w", err)
	}

	previousLink := w.previousLink(rows, opts.BaseDir)
	priors, nextRow := readPriors(rows, opts.Previous)
	for _, p := range priors {
		if p.value != "" {
			p.link = w.relink(opts.BaseDir, links[linkKey{colFirstDelivery, p.row}], previousLink)
		}
	}
	if created && !opts.Previous.IsEmpty() {
		nextRow, err = reconstruct(f, opts, priors, nextRow)
		if err != nil {
			return summary, err
		}
		summary.Reconstructed = len(priors)
	}

	seen := make(map[string]bool)
	for _, file := range currentHeads(opts.Files) {
		key := file.Key()
		p, ok := priors[key.String()]
		if !ok {
			p = &prior{row: nextRow}
			nextRow++
			base, _, ext := revision.Parse(file.Name)
			if err := f.SetCellStr(opts.Sheet, cellName(colDocument, p.row), base); err != nil {
				return summary, err
			}
			if err := f.SetCellStr(opts.Sheet, cellName(colExtension, p.row), ext); err != nil {
				return summary, err
			}
		}
		status := classify(file, p)
		link := opts.Folder
		if status == StatusUnchanged {
			link = p.link
		}
		if link == "" {
			link = filepath.Dir(file.Path)
		}
		if err := writeCell(f, st, opts.Sheet, p.row, file.Name, status, link); err != nil {
			return summary, err
		}
		seen[key.String()] = true
		summary.Counts[status]++
	}

	for _, key := range sortedKeys(priors) {
		if seen[key] {
			continue
		}
		p := priors[key]
		value := p.value
		if value == "" && p.known {
			value = displayName(revision.ParseKey(key), p.entry.Revision)
		}
		if value == "" {
			continue
		}
		if err := writeCell(f, st, opts.Sheet, p.row, value, StatusUnchanged, p.link); err != nil {
			return summary, err
		}
		summary.CarriedOver++
	}

	headerStyle, err := st.forHeader()
	if err != nil {
		return summary, err
	}
	headerCell := cellName(colFirstDelivery, rowHeader)
	if err := f.SetCellStr(opts.Sheet, headerCell, summary.Header); err != nil {
		return summary, err
	}
	if err := f.SetCellStyle(opts.Sheet, headerCell, headerCell, headerStyle); err != nil {
		return summary, err
	}

	summary.Backfilled, err = w.backfill(f, opts, rows, links)
	if err != nil {
		return summary, err
	}
	summary.Rows = nextRow - rowFirstData

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return summary, fmt.Errorf("create ledger directory: %w", err)
	}
	if err := f.SaveAs(opts.Path); err != nil {
		return summary, fmt.Errorf("save ledger %s: %w", opts.Path, err)
	}
	w.logger.Info("ledger updated",
		logging.String(logging.FieldEventType, "ledger_updated"),
		logging.String("path", opts.Path),
		logging.String("column", summary.Header),
		logging.Bool("created", summary.Created),
		logging.Int("new", summary.Counts[StatusNew]),
		logging.Int("revised", summary.Counts[StatusRevised]),
		logging.Int("changed", summary.Counts[StatusChanged]),
		logging.Int("unchanged", summary.Counts[StatusUnchanged]),
		logging.Int("carried_over", summary.CarriedOver),
		logging.Int("backfilled", summary.Backfilled),
	)
	return summary, nil
}

func openOrCreate(path, sheet string) (*excelize.File, bool, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("open ledger %s: %w", path, err)
		}
		idx, err := f.GetSheetIndex(sheet)
		if err != nil || idx < 0 {
			_ = f.Close()
			return nil, false, fmt.Errorf("%w: %q in %s", ErrSheetMissing, sheet, path)
		}
		return f, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("stat ledger %s: %w", path, err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, false, fmt.Errorf("name ledger sheet: %w", err)
	}
	return f, true, nil
}

func writeHeaderBlock(f *excelize.File, st *styles, opts Options) error {
	sheet := opts.Sheet
	titleStyle, err := st.forTitle()
	if err != nil {
		return err
	}
	labelStyle, err := st.forLabel()
	if err != nil {
		return err
	}
	headerStyle, err := st.forHeader()
	if err != nil {
		return err
	}

	cells := []struct {
		cell  string
		value string
		style int
	}{
		{cellName(colDocument, rowTitle), opts.Title, titleStyle},
		{cellName(colDocument, rowDescription), opts.Description, 0},
		{cellName(colDocument, rowDirectory), "Diretório", labelStyle},
		{cellName(colDocument, rowIssued), "Emissão", labelStyle},
		{cellName(colDocument, rowLegend), "Legenda", labelStyle},
		{cellName(colDocument, rowHeader), "Documento", headerStyle},
		{cellName(colExtension, rowHeader), "Extensão", headerStyle},
	}
	for _, c := range cells {
		if err := f.SetCellStr(sheet, c.cell, c.value); err != nil {
			return err
		}
		if c.style != 0 {
			if err := f.SetCellStyle(sheet, c.cell, c.cell, c.style); err != nil {
				return err
			}
		}
	}
	for i, status := range legendOrder {
		cell := cellName(colDocument, rowLegend+1+i)
		id, err := st.forStatus(status)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, status.Label()); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
			return err
		}
	}
	for _, row := range []int{rowTitle, rowDescription} {
		if err := f.MergeCell(sheet, cellName(colDocument, row), cellName(colExtension, row)); err != nil {
			return fmt.Errorf("merge header cells: %w", err)
		}
	}
	if err := f.SetColWidth(sheet, columnName(colDocument), columnName(colDocument), widthDocument); err != nil {
		return err
	}
	return f.SetColWidth(sheet, columnName(colExtension), columnName(colExtension), widthExtension)
}

// writeMetadata refreshes the directory and issue date on every run.
func writeMetadata(f *excelize.File, opts Options, now time.Time) error {
	if err := f.SetCellStr(opts.Sheet, cellName(colExtension, rowDirectory), opts.Dir); err != nil {
		return err
	}
	return f.SetCellStr(opts.Sheet, cellName(colExtension, rowIssued), now.Format("02/01/2006"))
}

// readPriors indexes the data rows by lineage key. rows is the sheet as read
// before the new column was inserted, so the previous delivery is column C.
func readPriors(rows [][]string, previous snapshot.State) (map[string]*prior, int) {
	priors := make(map[string]*prior)
	next := rowFirstData
	for r := rowFirstData; r <= len(rows); r++ {
		row := rows[r-1]
		group := cellAt(row, colDocument)
		if group == "" {
			continue
		}
		next = r + 1
		key := revision.Key{Base: strings.ToLower(group), Ext: strings.ToLower(cellAt(row, colExtension))}
		if _, dup := priors[key.String()]; dup {
			continue
		}
		p := &prior{row: r, value: cellAt(row, colFirstDelivery)}
		if entry, ok := previous.Lookup(key); ok {
			p.entry, p.known, p.metrics = entry, true, true
		} else if p.value != "" {
			_, rev, _ := revision.Parse(p.value)
			p.entry, p.known = snapshot.Entry{Revision: rev}, true
		}
		priors[key.String()] = p
	}
	return priors, next
}

// reconstruct lays out rows for a state that outlived its ledger.
func reconstruct(f *excelize.File, opts Options, priors map[string]*prior, next int) (int, error) {
	for _, key := range opts.Previous.Keys() {
		if _, ok := priors[key.String()]; ok {
			continue
		}
		entry, _ := opts.Previous.Lookup(key)
		p := &prior{row: next, entry: entry, known: true, metrics: true}
		next++
		if err := f.SetCellStr(opts.Sheet, cellName(colDocument, p.row), key.Base); err != nil {
			return next, err
		}
		if err := f.SetCellStr(opts.Sheet, cellName(colExtension, p.row), key.Ext); err != nil {
			return next, err
		}
		priors[key.String()] = p
	}
	return next, nil
}

// classify compares a current file with what the previous delivery held.
// Drift only counts when the prior metrics came from the persisted state.
func classify(file scan.FileRecord, p *prior) Status {
	if !p.known {
		return StatusNew
	}
	switch c := revision.Compare(file.Revision, p.entry.Revision); {
	case c > 0:
		return StatusRevised
	case c == 0 && p.metrics && p.entry.Drifted(file.Size, file.Timestamp()):
		return StatusChanged
	default:
		return StatusUnchanged
	}
}

// currentHeads keeps the highest revision of each lineage, ordered by key.
func currentHeads(files []scan.FileRecord) []scan.FileRecord {
	best := make(map[string]scan.FileRecord)
	for _, file := range files {
		key := file.Key().String()
		cur, ok := best[key]
		if !ok || file.RevisionNumber() > cur.RevisionNumber() ||
			(file.RevisionNumber() == cur.RevisionNumber() && file.ModTime.After(cur.ModTime)) {
			best[key] = file
		}
	}
	out := make([]scan.FileRecord, 0, len(best))
	for _, file := range best {
		out = append(out, file)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

func writeCell(f *excelize.File, st *styles, sheet string, row int, value string, status Status, link string) error {
	cell := cellName(colFirstDelivery, row)
	if err := f.SetCellStr(sheet, cell, value); err != nil {
		return err
	}
	id, err := st.forStatus(status)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
		return err
	}
	if link == "" {
		return nil
	}
	if err := f.SetCellHyperLink(sheet, cell, FolderURI(link), "External"); err != nil {
		return fmt.Errorf("link %s: %w", cell, err)
	}
	return nil
}

// previousLink resolves the folder of the delivery that was in column C
// before the insert.
func (w *Writer) previousLink(rows [][]string, baseDir string) string {
	if w.resolver == nil || len(rows) < rowHeader {
		return ""
	}
	t, n, ok := parseHeader(cellAt(rows[rowHeader-1], colFirstDelivery))
	if !ok {
		return ""
	}
	return w.resolver.ResolveFolder(baseDir, t, n)
}

type linkKey struct{ col, row int }

// readLinks collects the hyperlinks of every historical delivery cell, keyed
// by their position before the new column is inserted.
func readLinks(f *excelize.File, sheet string, rows [][]string) (map[linkKey]string, error) {
	links := make(map[linkKey]string)
	if len(rows) < rowHeader {
		return links, nil
	}
	header := rows[rowHeader-1]
	for col := colFirstDelivery; col <= len(header); col++ {
		if _, _, ok := parseHeader(cellAt(header, col)); !ok {
			continue
		}
		for r := rowFirstData; r <= len(rows); r++ {
			if cellAt(rows[r-1], col) == "" {
				continue
			}
			ok, target, err := f.GetCellHyperLink(sheet, cellName(col, r))
			if err != nil {
				return nil, fmt.Errorf("read link %s: %w", cellName(col, r), err)
			}
			if ok {
				links[linkKey{col, r}] = target
			}
		}
	}
	return links, nil
}

// relink returns the folder a historical cell should point at now. A link
// naming a delivery folder follows that delivery through rotations; a link
// to any other local folder is kept; a cell without a usable link falls back
// to its column's folder.
func (w *Writer) relink(baseDir, target, fallback string) string {
	dir, ok := FolderFromURI(target)
	if !ok {
		return fallback
	}
	if w.resolver != nil && baseDir != "" {
		if t, n, ok := w.resolver.Identify(dir); ok {
			return w.resolver.ResolveFolder(baseDir, t, n)
		}
	}
	return dir
}

// backfill repoints every historical cell at the current location of the
// folder its link names, which moves when a later delivery rotates it.
func (w *Writer) backfill(f *excelize.File, opts Options, rows [][]string, links map[linkKey]string) (int, error) {
	if w.resolver == nil || opts.BaseDir == "" || len(rows) < rowHeader {
		return 0, nil
	}
	header := rows[rowHeader-1]
	count := 0
	for col := colFirstDelivery; col <= len(header); col++ {
		t, n, ok := parseHeader(cellAt(header, col))
		if !ok {
			continue
		}
		columnFolder := w.resolver.ResolveFolder(opts.BaseDir, t, n)
		shifted := col + 1
		for r := rowFirstData; r <= len(rows); r++ {
			if cellAt(rows[r-1], col) == "" {
				continue
			}
			link := FolderURI(w.relink(opts.BaseDir, links[linkKey{col, r}], columnFolder))
			if err := f.SetCellHyperLink(opts.Sheet, cellName(shifted, r), link, "External"); err != nil {
				return count, fmt.Errorf("backfill %s: %w", cellName(shifted, r), err)
			}
			count++
		}
	}
	return count, nil
}

func parseHeader(value string) (folders.Type, int, bool) {
	m := deliveryHeader.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return folders.Type(m[1]), n, true
}

func displayName(key revision.Key, rev string) string {
	if rev == revision.None {
		return key.Base + key.Ext
	}
	return key.Base + "-" + rev + key.Ext
}

func sortedKeys(priors map[string]*prior) []string {
	keys := make([]string, 0, len(priors))
	for k := range priors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cellAt returns the 1-based column of a row read by GetRows.
func cellAt(row []string, col int) string {
	if col-1 < len(row) {
		return strings.TrimSpace(row[col-1])
	}
	return ""
}
