package delivery

import (
	"context"
	"fmt"
	"strings"

	"grd/internal/diff"
	"grd/internal/logging"
	"grd/internal/scan"
	"grd/internal/snapshot"
)

// Plan is a side-effect free preview of the next delivery.
type Plan struct {
	Dir      string
	Load     snapshot.LoadResult
	Previous snapshot.State
	First    bool
	Files    []scan.FileRecord
	Changes  diff.Result
	Obsolete []scan.FileRecord
}

// HasChanges reports whether a delivery would contain anything. Obsolete
// revisions alone do not make a delivery.
func (p Plan) HasChanges() bool {
	return !p.Changes.Empty()
}

// Plan scans dir and classifies it against its snapshot. A corrupt snapshot
// is logged and treated as a first delivery.
func (s *Session) Plan(ctx context.Context, dir string) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}
	files, err := scan.Directory(dir, s.layout.Reserved()...)
	if err != nil {
		return Plan{}, fmt.Errorf("scan %s: %w", dir, err)
	}

	load := snapshot.Load(s.layout.SnapshotPath(dir))
	if load.Status == snapshot.StatusCorrupt {
		logging.WarnWithContext(s.logger, "snapshot unreadable; treating as first delivery", "snapshot_corrupt",
			logging.String("path", load.Path),
			logging.Error(load.Err),
			logging.String(logging.FieldImpact, "every file is classified as new"),
			logging.String(logging.FieldErrorHint, "restore the snapshot from the last archive folder if available"),
		)
	}
	if len(load.Skipped) > 0 {
		logging.WarnWithContext(s.logger, "snapshot has keys that are not lineage entries; ignoring them", "snapshot_keys_skipped",
			logging.String("path", load.Path),
			logging.String("keys", strings.Join(load.Skipped, ", ")),
			logging.String(logging.FieldImpact, "documents under those keys are classified without history"),
			logging.String(logging.FieldErrorHint, "remove the keys from the snapshot or restore it from the last archive folder"),
		)
	}
	previous := load.StateOrEmpty()

	plan := Plan{
		Dir:      dir,
		Load:     load,
		Previous: previous,
		First:    previous.IsEmpty() && previous.OfficialDeliveries == 0,
		Files:    files,
		Changes:  diff.Diff(files, previous),
		Obsolete: diff.IdentifyObsolete(files),
	}
	s.logger.Debug("delivery planned",
		logging.String(logging.FieldDirectory, dir),
		logging.Bool("first", plan.First),
		logging.Int("files", len(files)),
		logging.Int("new", len(plan.Changes.New)),
		logging.Int("revised", len(plan.Changes.Revised)),
		logging.Int("changed", len(plan.Changes.Changed)),
		logging.Int("obsolete", len(plan.Obsolete)),
	)
	return plan, nil
}
