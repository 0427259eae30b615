// Package config loads, normalizes, and validates grd configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes the delivery
// layout conventions (folder prefixes, obsolete suffix, snapshot and ledger
// file names), the ledger header text, the move retry policy, logging, and the
// project registry used to resolve discipline directories.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
