// Package snapshot persists the last-known revision, size and modification
// time of every document lineage in a delivery directory.
//
// The snapshot is a labeling aid, not a source of truth: each orchestrator
// run rebuilds it wholesale from a fresh directory scan. An empty snapshot
// marks a directory that has never been delivered.
package snapshot
