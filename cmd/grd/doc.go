// Package main hosts the grd CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into delivery
// pipeline runs: previewing what changed in a discipline directory, creating
// and post-processing deliveries, and inspecting ledgers, snapshots and the
// run journal. It centralizes configuration resolution, directory lookup in
// the project registry and logging setup so subcommands only deal with
// presentation.
//
// Keep this package lean: new behavior belongs in the internal packages and
// is surfaced here through dedicated commands or flags.
package main
