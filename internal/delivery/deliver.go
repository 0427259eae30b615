package delivery

import (
	"context"
	"fmt"

	"grd/internal/folders"
	"grd/internal/logging"
)

// Delivery is the outcome of Deliver.
type Delivery struct {
	Plan   Plan
	Folder folders.Folder
	// Copied reports the copies into the new delivery folder.
	Copied  folders.Report
	Outcome Outcome
}

// Deliver runs the whole flow for dir: plan, create the next delivery folder
// of type t with the changed files, then post-process it.
func (s *Session) Deliver(ctx context.Context, dir string, t folders.Type) (Delivery, error) {
	unlock, err := s.lock(dir)
	if err != nil {
		return Delivery{}, err
	}
	defer unlock()

	plan, err := s.Plan(ctx, dir)
	if err != nil {
		return Delivery{}, err
	}
	result := Delivery{Plan: plan}
	if !plan.HasChanges() {
		s.logger.Info("nothing to deliver",
			logging.String(logging.FieldDirectory, dir),
			logging.Int("obsolete", len(plan.Obsolete)),
		)
		return result, ErrNothingToDeliver
	}

	files := plan.Changes.All()
	result.Folder, result.Copied, err = s.folders.CreateDeliveryFolder(ctx, s.layout.BaseDir(dir), t, folders.RecordPaths(files))
	if err != nil {
		return result, fmt.Errorf("create delivery folder: %w", err)
	}

	result.Outcome, err = s.postProcess(ctx, Request{
		First:    plan.First,
		Dir:      dir,
		Previous: plan.Previous,
		New:      plan.Changes.New,
		Revised:  plan.Changes.Revised,
		Changed:  plan.Changes.Changed,
		Obsolete: plan.Obsolete,
		Type:     t,
		Number:   result.Folder.Number,
		Folder:   result.Folder.Path,
	})
	return result, err
}
