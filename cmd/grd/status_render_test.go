package main

import (
	"io"
	"strings"
	"testing"

	"grd/internal/ledger"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Snapshot", statusOK, "3 lineages", false)
	if !strings.Contains(line, "Snapshot:") || !strings.Contains(line, "[OK] 3 lineages") {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("Snapshot", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored line, got %q", colored)
	}
}

func TestChangeLabel(t *testing.T) {
	if got := changeLabel(ledger.StatusRevised, false); got != "revised" {
		t.Fatalf("changeLabel = %q", got)
	}
	if got := changeLabel(ledger.StatusNew, true); got != ansiGreen+"new"+ansiReset {
		t.Fatalf("changeLabel colored = %q", got)
	}
}

func TestShouldColorizeNonTerminal(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected io.Discard not to be colorized")
	}
}

func TestHumanSize(t *testing.T) {
	if got := humanSize(2048); got != "2.0 kB" {
		t.Fatalf("humanSize = %q", got)
	}
}
