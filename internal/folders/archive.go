package folders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"

	"grd/internal/fileutil"
	"grd/internal/logging"
	"grd/internal/scan"
)

// archivedStatus replaces the leading status letter of archived files.
const archivedStatus = "A"

var statusPrefix = regexp.MustCompile(`^[A-Za-z][-_]`)

// Archive describes the folder created for the obsoletes of a delivery.
type Archive struct {
	Path       string
	Manifest   string
	LedgerCopy string
}

// ArchiveName returns "Entrega_<n>-Obsoletos-<YYYY-MM-DD>".
func ArchiveName(previous int, day string) string {
	return fmt.Sprintf("Entrega_%d-Obsoletos-%s", previous, day)
}

// ArchivedName renames a file's leading status letter ("E-Doc-R00.dwg") to
// the archived status ("A-Doc-R00.dwg"). Names without a status prefix are
// returned unchanged.
func ArchivedName(name string) string {
	if !statusPrefix.MatchString(name) {
		return name
	}
	return archivedStatus + name[1:]
}

// ArchivePreviousDelivery moves the obsolete files of dir into a dated
// archive folder for delivery current-1. The folder also receives a frozen
// copy of the type's ledger as it stood before this delivery and a manifest
// listing the obsolete file names. Vanished files are skipped; move failures
// that survive the retry policy are reported and the batch continues.
func (m *Manager) ArchivePreviousDelivery(ctx context.Context, obsoletes []scan.FileRecord, dir string, t Type, current int) (Archive, Report, error) {
	var report Report
	previous := current - 1
	if previous < 0 {
		previous = 0
	}

	archive := Archive{Path: filepath.Join(dir, ArchiveName(previous, m.now().Format("2006-01-02")))}
	if err := os.MkdirAll(archive.Path, 0o755); err != nil {
		return archive, report, fmt.Errorf("create archive folder: %w", err)
	}

	if previous >= 1 {
		ledger := m.layout.LedgerPath(dir, t)
		dst := filepath.Join(archive.Path, filepath.Base(ledger))
		switch err := fileutil.CopyFile(ledger, dst); {
		case err == nil:
			archive.LedgerCopy = dst
		case errors.Is(err, fs.ErrNotExist):
		default:
			return archive, report, fmt.Errorf("archive ledger: %w", err)
		}
	}

	archive.Manifest = filepath.Join(archive.Path, m.layout.ManifestFile)
	if err := atomic.WriteFile(archive.Manifest, strings.NewReader(joinLines(sortedNames(obsoletes)))); err != nil {
		return archive, report, fmt.Errorf("write obsolete manifest: %w", err)
	}

	for _, r := range obsoletes {
		if err := ctx.Err(); err != nil {
			return archive, report, err
		}
		dst := fileutil.UniquePath(filepath.Join(archive.Path, ArchivedName(r.Name)), "_dup")
		err := fileutil.MoveWithRetry(ctx, m.retry, r.Path, dst)
		switch {
		case err == nil:
			report.Done = append(report.Done, r.Path)
		case errors.Is(err, fs.ErrNotExist):
			report.Skipped = append(report.Skipped, r.Path)
			logging.WarnWithContext(m.logger, "obsolete file vanished before archiving", "archive_skipped",
				logging.String("file", r.Path),
				logging.String(logging.FieldImpact, "file listed in the manifest but not archived"),
			)
		default:
			report.Failed = append(report.Failed, FileError{Path: r.Path, Err: err})
			logging.WarnWithContext(m.logger, "obsolete file could not be archived", "archive_failed",
				logging.String("file", r.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "obsolete revision left in the delivery directory"),
				logging.String(logging.FieldErrorHint, "close the file in other applications and deliver again"),
			)
		}
	}

	m.logger.Info("obsolete revisions archived",
		logging.String("archive", archive.Path),
		logging.DeliveryType(string(t)),
		logging.DeliveryNumber(current),
		logging.Int("moved", len(report.Done)),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("failed", len(report.Failed)),
		logging.String(logging.FieldEventType, "obsoletes_archived"),
	)
	return archive, report, nil
}
