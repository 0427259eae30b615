package delivery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"grd/internal/diff"
	"grd/internal/fileutil"
	"grd/internal/folders"
	"grd/internal/history"
	"grd/internal/ledger"
	"grd/internal/logging"
	"grd/internal/scan"
	"grd/internal/snapshot"
)

// Request is the input of a post-processing run.
type Request struct {
	First    bool
	Dir      string
	Previous snapshot.State
	New      []scan.FileRecord
	Revised  []scan.FileRecord
	Changed  []scan.FileRecord
	Obsolete []scan.FileRecord
	Type     folders.Type
	// Number of the delivery; zero picks the highest existing folder of the
	// type, or the next official delivery when none exists.
	Number int
	// Folder the ledger links the new column to; empty resolves it from
	// Number.
	Folder string
}

// Outcome reports what a post-processing run did.
type Outcome struct {
	RunID   string
	Type    folders.Type
	Number  int
	Folder  string
	Archive folders.Archive
	// Archived lists the obsolete moves; empty on a first delivery.
	Archived  folders.Report
	Ledger    ledger.Summary
	State     snapshot.State
	StatePath string
	// SaveErr is set when the snapshot could not be written. The ledger is
	// already updated at that point, so the run is not failed.
	SaveErr error
}

// PostProcess archives obsoletes, updates the ledger and rewrites the
// snapshot of req.Dir under the directory lock.
func (s *Session) PostProcess(ctx context.Context, req Request) (Outcome, error) {
	unlock, err := s.lock(req.Dir)
	if err != nil {
		return Outcome{}, err
	}
	defer unlock()
	return s.postProcess(ctx, req)
}

func (s *Session) postProcess(ctx context.Context, req Request) (out Outcome, err error) {
	if req.Type == "" {
		return Outcome{}, errors.New("delivery type is required")
	}
	base := s.layout.BaseDir(req.Dir)
	out.Type = req.Type
	out.Number = req.Number
	if out.Number <= 0 {
		out.Number, err = s.currentNumber(base, req.Type, req.Previous)
		if err != nil {
			return out, err
		}
	}
	out.Folder = req.Folder
	if out.Folder == "" {
		if resolved := s.folders.ResolveFolder(base, req.Type, out.Number); fileutil.Exists(resolved) {
			out.Folder = resolved
		}
	}

	logger := s.logger.With(
		logging.String(logging.FieldDirectory, req.Dir),
		logging.DeliveryType(string(req.Type)),
		logging.DeliveryNumber(out.Number),
	)
	runID := s.beginRun(ctx, req, out.Number)
	if runID != "" {
		out.RunID = runID
		logger = logger.With(logging.String(logging.FieldRunID, runID))
		defer func() {
			s.finishRun(ctx, runID, req, out, err)
		}()
	}

	if !req.First {
		out.Archive, out.Archived, err = s.folders.ArchivePreviousDelivery(ctx, req.Obsolete, req.Dir, req.Type, out.Number)
		if err != nil {
			return out, fmt.Errorf("archive previous delivery: %w", err)
		}
	}

	var files []scan.FileRecord
	if req.First {
		files = append(files, req.New...)
		files = append(files, req.Revised...)
		files = append(files, req.Changed...)
		if len(files) == 0 {
			return out, ErrNothingToDeliver
		}
	} else {
		files, err = scan.Directory(req.Dir, s.layout.Reserved()...)
		if err != nil {
			return out, fmt.Errorf("rescan before ledger: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	out.Ledger, err = s.ledger.Update(ledger.Options{
		Path:        s.layout.LedgerPath(req.Dir, req.Type),
		Sheet:       s.cfg.Ledger.Sheet,
		Title:       s.cfg.Ledger.Title,
		Description: s.cfg.Ledger.Description,
		Type:        req.Type,
		Number:      out.Number,
		Dir:         req.Dir,
		BaseDir:     base,
		Folder:      out.Folder,
		Files:       files,
		Previous:    req.Previous,
	})
	if err != nil {
		return out, fmt.Errorf("update ledger: %w", err)
	}

	final, err := scan.Directory(req.Dir, s.layout.Reserved()...)
	if err != nil {
		return out, fmt.Errorf("rescan after ledger: %w", err)
	}
	out.State = snapshot.FromHeads(diff.Heads(final), req.Previous.OfficialDeliveries+1, s.now())
	out.StatePath = s.layout.SnapshotPath(req.Dir)
	if saveErr := snapshot.Save(out.StatePath, out.State); saveErr != nil {
		out.SaveErr = saveErr
		logging.WarnWithContext(logger, "snapshot not saved", "snapshot_save_failed",
			logging.String("path", out.StatePath),
			logging.Error(saveErr),
			logging.String(logging.FieldImpact, "next run re-derives changes from the ledger"),
			logging.String(logging.FieldErrorHint, "check write permissions on the delivery directory"),
		)
	}

	logger.Info("delivery post-processed",
		logging.String(logging.FieldEventType, "delivery_completed"),
		logging.Bool("first", req.First),
		logging.String("ledger", out.Ledger.Path),
		logging.Int("lineages", len(out.State.Entries)),
		logging.Int("archived", len(out.Archived.Done)),
		logging.Int("archive_failures", len(out.Archived.Failed)),
		logging.Int("official_deliveries", out.State.OfficialDeliveries),
	)
	return out, nil
}

// currentNumber picks the delivery a post-processing run belongs to.
func (s *Session) currentNumber(base string, t folders.Type, previous snapshot.State) (int, error) {
	all, err := s.folders.List(base, t)
	if err != nil {
		return 0, fmt.Errorf("list delivery folders: %w", err)
	}
	highest := 0
	for _, f := range all {
		if f.Number > highest {
			highest = f.Number
		}
	}
	if highest > 0 {
		return highest, nil
	}
	return previous.OfficialDeliveries + 1, nil
}

func (s *Session) beginRun(ctx context.Context, req Request, number int) string {
	if s.journal == nil {
		return ""
	}
	dir, err := filepath.Abs(req.Dir)
	if err != nil {
		dir = req.Dir
	}
	run, err := s.journal.Begin(ctx, dir, string(req.Type), number, req.First)
	if err != nil {
		logging.WarnWithContext(s.logger, "run not journaled", "journal_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from grd history"),
		)
		return ""
	}
	return run.ID
}

func (s *Session) finishRun(ctx context.Context, id string, req Request, out Outcome, runErr error) {
	counts := history.Counts{
		New:      len(req.New),
		Revised:  len(req.Revised),
		Changed:  len(req.Changed),
		Obsolete: len(req.Obsolete),
		Archived: len(out.Archived.Done),
		Failed:   len(out.Archived.Failed),
	}
	// The run context may already be cancelled; the journal entry still
	// needs closing.
	if err := s.journal.Finish(context.WithoutCancel(ctx), id, counts, runErr); err != nil {
		s.logger.Warn("failed to finish journal entry", logging.String(logging.FieldRunID, id), logging.Error(err))
	}
}
