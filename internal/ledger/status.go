package ledger

import "strings"

// Status classifies a lineage within one delivery.
type Status int

const (
	StatusUnknown Status = iota - 1
	StatusUnchanged
	StatusNew
	StatusRevised
	StatusChanged
)

// legendOrder is the order of the header legend.
var legendOrder = []Status{StatusRevised, StatusNew, StatusChanged, StatusUnchanged}

func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusNew:
		return "new"
	case StatusRevised:
		return "revised"
	case StatusChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// MarshalText renders the status name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Label is the legend text written into the ledger.
func (s Status) Label() string {
	switch s {
	case StatusUnchanged:
		return "Sem alteração"
	case StatusNew:
		return "Novo"
	case StatusRevised:
		return "Revisado"
	case StatusChanged:
		return "Alterado sem revisão"
	default:
		return ""
	}
}

// Color is the cell fill of the status, RGB hex without '#'.
func (s Status) Color() string {
	switch s {
	case StatusNew:
		return "92D050"
	case StatusRevised:
		return "FFD966"
	case StatusChanged:
		return "FF7C80"
	default:
		return "FFFFFF"
	}
}

// statusFromColor maps a fill color back to its status. Colors may carry a
// leading '#' or an alpha byte.
func statusFromColor(color string) Status {
	c := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(color), "#"))
	if len(c) == 8 {
		c = c[2:]
	}
	for _, s := range legendOrder {
		if s.Color() == c {
			return s
		}
	}
	return StatusUnknown
}
