// Package delivery runs the delivery pipeline of a discipline directory.
//
// A Session bundles the configuration, folder manager, ledger writer and run
// journal so every step receives its context explicitly. Plan previews what
// changed since the last delivery; Deliver creates the delivery folder and
// post-processes it; PostProcess archives obsoletes, updates the ledger and
// rewrites the snapshot, in that order.
//
// Mutating runs hold an advisory lock on the directory for their whole
// duration. A second run against the same directory fails with ErrLocked
// instead of interleaving folder rotations and ledger writes.
package delivery
