// Package preflight checks that a discipline directory is ready for a
// delivery: writable directories, no spreadsheet application holding the
// ledgers open, no other grd run in progress.
//
// Checks only report; apart from creating the lock file they leave the
// directory untouched. Callers decide whether a failed check blocks the
// run.
package preflight
