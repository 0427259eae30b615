// Package history journals delivery runs in a SQLite database.
//
// Every post-processing run records which directory it touched, the delivery
// it produced and how many files it classified, archived or failed to move.
// The journal is informational: the snapshot file and the ledger remain the
// source of truth for change detection.
package history
