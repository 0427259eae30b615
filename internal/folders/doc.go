// Package folders manages the versioned delivery folders of a discipline
// directory and archives obsolete revisions.
//
// Deliveries live under <dir>/<deliveries_dir>/<AP|PE>/<prefix><N>. Only
// one folder per type is active; creating delivery N+1 renames the active
// folder with the obsolete suffix ("-OBSOLETO", then "-OBSOLETO2", ...).
package folders
