package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"grd/internal/ledger"
)

// statusKind grades a status line; it picks the bracketed tag and the
// terminal color.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var statusKinds = [...]struct {
	tag   string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) tag() string {
	if k < 0 || int(k) >= len(statusKinds) {
		return statusKinds[statusInfo].tag
	}
	return statusKinds[k].tag
}

func (k statusKind) color() string {
	if k < 0 || int(k) >= len(statusKinds) {
		return ""
	}
	return statusKinds[k].color
}

// renderStatusLine renders "  Label:   [TAG] message" with the label padded
// so the tags of a section line up.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %-20s [%s]", label+":", kind.tag())
	if message != "" {
		b.WriteString(" ")
		b.WriteString(message)
	}
	if colorize && kind.color() != "" {
		return kind.color() + b.String() + ansiReset
	}
	return b.String()
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// changeLabel renders a ledger status for tables, colored like the ledger
// legend when the output is a terminal.
func changeLabel(status ledger.Status, colorize bool) string {
	label := status.String()
	if !colorize {
		return label
	}
	switch status {
	case ledger.StatusNew:
		return ansiGreen + label + ansiReset
	case ledger.StatusRevised:
		return ansiYellow + label + ansiReset
	case ledger.StatusChanged:
		return ansiRed + label + ansiReset
	default:
		return label
	}
}

func humanSize(size int64) string {
	if size < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(size))
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
