package folders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"grd/internal/fileutil"
	"grd/internal/logging"
	"grd/internal/scan"
)

// Folder is one delivery folder on disk.
type Folder struct {
	Type     Type
	Number   int
	Name     string
	Path     string
	Obsolete bool
	// Rotation orders the rotated copies of one delivery: 0 when active,
	// 1 for the plain obsolete suffix, k for the suffix followed by k.
	Rotation int
}

// FileError pairs a file with the error that stopped it.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Report summarizes per-file outcomes of a batch operation. Skipped files
// vanished before they could be handled; Failed files hit an error that
// survived the retry policy.
type Report struct {
	Done    []string
	Skipped []string
	Failed  []FileError
}

// Merge appends other into r.
func (r *Report) Merge(other Report) {
	r.Done = append(r.Done, other.Done...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Failed = append(r.Failed, other.Failed...)
}

// Manager creates, rotates and archives delivery folders.
type Manager struct {
	layout Layout
	retry  fileutil.RetryPolicy
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRetryPolicy overrides the move retry policy.
func WithRetryPolicy(p fileutil.RetryPolicy) Option {
	return func(m *Manager) { m.retry = p }
}

// WithClock overrides the time source used for archive names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager constructs a Manager for the given layout.
func NewManager(layout Layout, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		layout: layout,
		retry:  fileutil.DefaultRetryPolicy,
		logger: logging.NewComponentLogger(logger, "folders"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Layout returns the manager's naming conventions.
func (m *Manager) Layout() Layout { return m.layout }

// List returns every delivery folder of a type under baseDir, active and
// obsolete, ordered by number then name. A missing type directory yields no
// folders.
func (m *Manager) List(baseDir string, t Type) ([]Folder, error) {
	typeDir := filepath.Join(baseDir, string(t))
	entries, err := os.ReadDir(typeDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", typeDir, err)
	}
	pattern := m.layout.folderPattern(t)
	var out []Folder
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		f, ok := parseFolder(pattern, t, typeDir, entry.Name())
		if ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func parseFolder(pattern *regexp.Regexp, t Type, typeDir, name string) (Folder, bool) {
	m := pattern.FindStringSubmatch(name)
	if m == nil {
		return Folder{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Folder{}, false
	}
	f := Folder{
		Type:     t,
		Number:   n,
		Name:     name,
		Path:     filepath.Join(typeDir, name),
		Obsolete: m[2] != "",
	}
	switch {
	case !f.Obsolete:
	case m[3] == "":
		f.Rotation = 1
	default:
		if f.Rotation, err = strconv.Atoi(m[3]); err != nil {
			return Folder{}, false
		}
	}
	return f, true
}

// Identify reports which delivery a folder path belongs to, judging by its
// name and the type directory it sits in. The folder need not exist.
func (m *Manager) Identify(path string) (Type, int, bool) {
	path = filepath.Clean(path)
	t, err := ParseType(filepath.Base(filepath.Dir(path)))
	if err != nil {
		return "", 0, false
	}
	f, ok := parseFolder(m.layout.folderPattern(t), t, filepath.Dir(path), filepath.Base(path))
	if !ok {
		return "", 0, false
	}
	return t, f.Number, true
}

// Active returns the active folders of a type, ordered by number.
func (m *Manager) Active(baseDir string, t Type) ([]Folder, error) {
	all, err := m.List(baseDir, t)
	if err != nil {
		return nil, err
	}
	var active []Folder
	for _, f := range all {
		if !f.Obsolete {
			active = append(active, f)
		}
	}
	return active, nil
}

// NextNumber returns one past the highest delivery number of a type. Rotated
// folders count too, keeping delivery numbers strictly increasing even when
// no active folder is left.
func (m *Manager) NextNumber(baseDir string, t Type) (int, error) {
	all, err := m.List(baseDir, t)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, f := range all {
		if f.Number > highest {
			highest = f.Number
		}
	}
	return highest + 1, nil
}

// ResolveFolder returns the current path of delivery n: the active folder
// when it exists, otherwise its latest rotation, otherwise the path the
// active folder would have.
func (m *Manager) ResolveFolder(baseDir string, t Type, n int) string {
	typeDir := filepath.Join(baseDir, string(t))
	active := filepath.Join(typeDir, m.layout.FolderName(t, n))
	if isDir(active) {
		return active
	}
	all, err := m.List(baseDir, t)
	if err != nil {
		return active
	}
	latest := -1
	resolved := active
	for _, f := range all {
		if f.Number == n && f.Rotation > latest {
			latest, resolved = f.Rotation, f.Path
		}
	}
	return resolved
}

// rotate renames an active folder to the first free obsolete name.
func (m *Manager) rotate(f Folder) (string, error) {
	dir := filepath.Dir(f.Path)
	base := f.Name + m.layout.ObsoleteSuffix
	target := filepath.Join(dir, base)
	for k := 2; fileutil.Exists(target); k++ {
		target = filepath.Join(dir, base+strconv.Itoa(k))
	}
	if err := os.Rename(f.Path, target); err != nil {
		return "", fmt.Errorf("rotate %s: %w", f.Name, err)
	}
	return target, nil
}

// CreateDeliveryFolder rotates the active folder of the type and creates the
// next one, copying files into it by name. Sources that no longer exist are
// skipped; other copy failures are reported without aborting the batch.
func (m *Manager) CreateDeliveryFolder(ctx context.Context, baseDir string, t Type, files []string) (Folder, Report, error) {
	var report Report
	next, err := m.NextNumber(baseDir, t)
	if err != nil {
		return Folder{}, report, err
	}

	active, err := m.Active(baseDir, t)
	if err != nil {
		return Folder{}, report, err
	}
	for _, f := range active {
		target, err := m.rotate(f)
		if err != nil {
			return Folder{}, report, err
		}
		m.logger.Info("delivery folder rotated",
			logging.String("from", f.Name),
			logging.String("to", filepath.Base(target)),
			logging.DeliveryType(string(t)),
			logging.String(logging.FieldEventType, "folder_rotated"),
		)
	}

	name := m.layout.FolderName(t, next)
	folder := Folder{Type: t, Number: next, Name: name, Path: filepath.Join(baseDir, string(t), name)}
	if err := os.MkdirAll(folder.Path, 0o755); err != nil {
		return Folder{}, report, fmt.Errorf("create delivery folder: %w", err)
	}

	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return folder, report, err
		}
		dst := filepath.Join(folder.Path, filepath.Base(src))
		err := fileutil.Retry(ctx, m.retry, func() error { return fileutil.CopyFile(src, dst) })
		switch {
		case err == nil:
			report.Done = append(report.Done, src)
		case errors.Is(err, fs.ErrNotExist):
			report.Skipped = append(report.Skipped, src)
			logging.WarnWithContext(m.logger, "delivery file vanished before copy", "copy_skipped",
				logging.String("file", src),
				logging.String(logging.FieldImpact, "file not included in the delivery folder"),
				logging.String(logging.FieldErrorHint, "check whether the file was moved or renamed"),
			)
		default:
			report.Failed = append(report.Failed, FileError{Path: src, Err: err})
			logging.WarnWithContext(m.logger, "delivery file copy failed", "copy_failed",
				logging.String("file", src),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file not included in the delivery folder"),
				logging.String(logging.FieldErrorHint, "close the file in other applications and deliver again"),
			)
		}
	}

	m.logger.Info("delivery folder created",
		logging.String("folder", folder.Path),
		logging.DeliveryType(string(t)),
		logging.DeliveryNumber(next),
		logging.Int("copied", len(report.Done)),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("failed", len(report.Failed)),
		logging.String(logging.FieldEventType, "folder_created"),
	)
	return folder, report, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// RecordPaths extracts the paths of scan records.
func RecordPaths(records []scan.FileRecord) []string {
	paths := make([]string, len(records))
	for i, r := range records {
		paths[i] = r.Path
	}
	return paths
}

// sortedNames returns the base names of records, sorted.
func sortedNames(records []scan.FileRecord) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
