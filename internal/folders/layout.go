package folders

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"grd/internal/config"
)

// Type is a delivery type.
type Type string

const (
	// AP is the preliminary design delivery.
	AP Type = "AP"
	// PE is the executive design delivery.
	PE Type = "PE"
)

// Types lists every delivery type.
var Types = []Type{AP, PE}

// ParseType accepts "ap"/"pe" in any case.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case AP, PE:
		return t, nil
	default:
		return "", fmt.Errorf("unknown delivery type %q (use AP or PE)", s)
	}
}

// Layout holds the naming conventions of a delivery directory.
type Layout struct {
	DeliveriesDir     string
	APPrefix          string
	PEPrefix          string
	ObsoleteSuffix    string
	SnapshotFile      string
	LedgerFilePattern string
	ManifestFile      string
	LockFile          string
}

// LayoutFromConfig copies the delivery section of cfg.
func LayoutFromConfig(cfg *config.Config) Layout {
	d := cfg.Delivery
	return Layout{
		DeliveriesDir:     d.DeliveriesDir,
		APPrefix:          d.APPrefix,
		PEPrefix:          d.PEPrefix,
		ObsoleteSuffix:    d.ObsoleteSuffix,
		SnapshotFile:      d.SnapshotFile,
		LedgerFilePattern: d.LedgerFilePattern,
		ManifestFile:      d.ManifestFile,
		LockFile:          d.LockFile,
	}
}

// DefaultLayout returns the layout of the default configuration.
func DefaultLayout() Layout {
	cfg := config.Default()
	return LayoutFromConfig(&cfg)
}

// Prefix returns the folder name prefix of a type.
func (l Layout) Prefix(t Type) string {
	if t == PE {
		return l.PEPrefix
	}
	return l.APPrefix
}

// BaseDir returns the deliveries root inside a discipline directory.
func (l Layout) BaseDir(dir string) string {
	return filepath.Join(dir, l.DeliveriesDir)
}

// LedgerFile returns the ledger file name of a type.
func (l Layout) LedgerFile(t Type) string {
	return fmt.Sprintf(l.LedgerFilePattern, string(t))
}

// LedgerPath returns the ledger location inside a discipline directory.
func (l Layout) LedgerPath(dir string, t Type) string {
	return filepath.Join(dir, l.LedgerFile(t))
}

// SnapshotPath returns the snapshot location inside a discipline directory.
func (l Layout) SnapshotPath(dir string) string {
	return filepath.Join(dir, l.SnapshotFile)
}

// Reserved lists the file names grd owns inside a discipline directory; scans
// must skip them.
func (l Layout) Reserved() []string {
	return []string{l.SnapshotFile, l.LedgerFile(AP), l.LedgerFile(PE), l.LockFile}
}

// folderPattern matches "<prefix><N>" with an optional obsolete suffix and
// disambiguator.
func (l Layout) folderPattern(t Type) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(l.Prefix(t)) + `(\d+)(` + regexp.QuoteMeta(l.ObsoleteSuffix) + `(\d*))?$`)
}

// FolderName returns the active folder name of delivery n.
func (l Layout) FolderName(t Type, n int) string {
	return fmt.Sprintf("%s%d", l.Prefix(t), n)
}
