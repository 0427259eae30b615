package ledger

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet geometry. The metadata block only uses columns A and B so inserting
// a delivery column at C never disturbs it.
const (
	rowTitle       = 1
	rowDescription = 2
	rowDirectory   = 3
	rowIssued      = 4
	rowLegend      = 5
	rowHeader      = 11
	rowFirstData   = 12

	colDocument      = 1
	colExtension     = 2
	colFirstDelivery = 3

	widthDocument  = 40
	widthExtension = 12
	widthDelivery  = 28

	headerFill = "D9E1F2"
)

// styles caches style ids for one open workbook.
type styles struct {
	f      *excelize.File
	status map[Status]int
	header int
	title  int
	label  int
}

func newStyles(f *excelize.File) *styles {
	return &styles{f: f, status: make(map[Status]int), header: -1, title: -1, label: -1}
}

func (s *styles) forStatus(st Status) (int, error) {
	if id, ok := s.status[st]; ok {
		return id, nil
	}
	id, err := s.f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#" + st.Color()}},
		Border: thinBorder(),
	})
	if err != nil {
		return 0, fmt.Errorf("create %s style: %w", st, err)
	}
	s.status[st] = id
	return id, nil
}

func (s *styles) forHeader() (int, error) {
	if s.header >= 0 {
		return s.header, nil
	}
	id, err := s.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#" + headerFill}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	})
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}
	s.header = id
	return id, nil
}

func (s *styles) forTitle() (int, error) {
	if s.title >= 0 {
		return s.title, nil
	}
	id, err := s.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("create title style: %w", err)
	}
	s.title = id
	return id, nil
}

func (s *styles) forLabel() (int, error) {
	if s.label >= 0 {
		return s.label, nil
	}
	id, err := s.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("create label style: %w", err)
	}
	s.label = id
	return id, nil
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "BFBFBF", Style: 1},
		{Type: "right", Color: "BFBFBF", Style: 1},
		{Type: "top", Color: "BFBFBF", Style: 1},
		{Type: "bottom", Color: "BFBFBF", Style: 1},
	}
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		// Coordinates are always positive here.
		panic(err)
	}
	return name
}

func columnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		panic(err)
	}
	return name
}
