// Package scan lists the document files of a delivery directory.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"grd/internal/revision"
)

// FileRecord is an immutable view of one file at scan time.
type FileRecord struct {
	Revision string
	Name     string
	Size     int64
	Path     string
	ModTime  time.Time
}

// Key returns the lineage key of the record.
func (r FileRecord) Key() revision.Key {
	return revision.KeyOf(r.Name)
}

// RevisionNumber returns the numeric revision, -1 when absent.
func (r FileRecord) RevisionNumber() int {
	return revision.Number(r.Revision)
}

// Timestamp returns the modification time as fractional Unix seconds, the
// unit persisted in the snapshot file.
func (r FileRecord) Timestamp() float64 {
	return float64(r.ModTime.Unix()) + float64(r.ModTime.Nanosecond())/1e9
}

// Stat builds a record for a single file.
func Stat(path string) (FileRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileRecord{}, err
	}
	if info.IsDir() {
		return FileRecord{}, fmt.Errorf("%s is a directory", path)
	}
	return newRecord(path, info), nil
}

func newRecord(path string, info os.FileInfo) FileRecord {
	_, rev, _ := revision.Parse(info.Name())
	return FileRecord{
		Revision: rev,
		Name:     info.Name(),
		Size:     info.Size(),
		Path:     path,
		ModTime:  info.ModTime(),
	}
}

// Directory lists the regular files directly inside dir, sorted by name.
// Subdirectories, hidden files, office lock files ("~$...") and the names
// listed in exclude (case-insensitive) are skipped.
func Directory(dir string, exclude ...string) ([]FileRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[strings.ToLower(name)] = struct{}{}
	}

	records := make([]FileRecord, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if _, ok := skip[strings.ToLower(name)]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		records = append(records, newRecord(filepath.Join(dir, name), info))
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// Names returns the file names of records in order.
func Names(records []FileRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names
}
