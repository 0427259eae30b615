package preflight

import (
	"context"

	"grd/internal/config"
	"grd/internal/folders"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunAll executes every check for a delivery into dir.
func RunAll(ctx context.Context, cfg *config.Config, layout folders.Layout, dir string) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Delivery directory", dir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckLockFree(dir, layout.LockFile),
	}
	for _, t := range folders.Types {
		if ctx.Err() != nil {
			break
		}
		results = append(results, CheckLedgerClosed("Ledger "+string(t), layout.LedgerPath(dir, t)))
	}
	return results
}
