package ledger

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Cell is one delivery entry of a row.
type Cell struct {
	Value  string `json:"value"`
	Status Status `json:"status"`
	Link   string `json:"link,omitempty"`
}

// Row is one lineage.
type Row struct {
	Document  string `json:"document"`
	Extension string `json:"extension"`
	// Cells are aligned with View.Headers, newest first.
	Cells []Cell `json:"cells"`
}

// View is a read-only rendering of a ledger.
type View struct {
	Directory string   `json:"directory"`
	Issued    string   `json:"issued"`
	Headers   []string `json:"headers"`
	Rows      []Row    `json:"rows"`
}

// Read loads a ledger for display.
func Read(path, sheet string) (View, error) {
	if sheet == "" {
		sheet = "GRD"
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return View{}, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return View{}, fmt.Errorf("%w: %q in %s", ErrSheetMissing, sheet, path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return View{}, fmt.Errorf("read ledger rows: %w", err)
	}
	var view View
	if len(rows) >= rowIssued {
		view.Directory = cellAt(rows[rowDirectory-1], colExtension)
		view.Issued = cellAt(rows[rowIssued-1], colExtension)
	}
	if len(rows) < rowHeader {
		return view, nil
	}
	header := rows[rowHeader-1]
	for col := colFirstDelivery; col <= len(header); col++ {
		view.Headers = append(view.Headers, cellAt(header, col))
	}

	for r := rowFirstData; r <= len(rows); r++ {
		row := Row{
			Document:  cellAt(rows[r-1], colDocument),
			Extension: cellAt(rows[r-1], colExtension),
		}
		if row.Document == "" {
			continue
		}
		for i := range view.Headers {
			col := colFirstDelivery + i
			cell := Cell{Value: cellAt(rows[r-1], col), Status: StatusUnknown}
			if cell.Value != "" {
				ref := cellName(col, r)
				cell.Status = cellStatus(f, sheet, ref)
				if ok, target, err := f.GetCellHyperLink(sheet, ref); err == nil && ok {
					cell.Link = target
				}
			}
			row.Cells = append(row.Cells, cell)
		}
		view.Rows = append(view.Rows, row)
	}
	return view, nil
}

func cellStatus(f *excelize.File, sheet, ref string) Status {
	id, err := f.GetCellStyle(sheet, ref)
	if err != nil || id == 0 {
		return StatusUnknown
	}
	style, err := f.GetStyle(id)
	if err != nil || style == nil || len(style.Fill.Color) == 0 {
		return StatusUnknown
	}
	return statusFromColor(style.Fill.Color[0])
}

// Find returns the row of a lineage, matching case-insensitively.
func (v View) Find(document, extension string) (Row, bool) {
	for _, row := range v.Rows {
		if strings.EqualFold(row.Document, document) && strings.EqualFold(row.Extension, extension) {
			return row, true
		}
	}
	return Row{}, false
}
