// Package file provides the TOML-backed ConfigStore adapter.
//
// Settings are persisted as dot-notation keys within sections, e.g.
//
//	[scheduler]
//	interval_minutes = 60
//
//	[etl]
//	chunk_size = 1000
//
// The store is safe for concurrent use; every Set is persisted
// immediately.
package file
