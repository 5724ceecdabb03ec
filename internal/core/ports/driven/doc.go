// Package driven defines the interfaces that core calls OUT to
// infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal
// architecture. Core services depend on these interfaces, and
// infrastructure adapters implement them.
//
// # Required Interfaces
//
//   - ChunkExtractor: fetches bounded, ordered batches from the source
//   - SourceRefresher: rebuilds the source view before scheduled syncs
//   - CacheStore: idempotent keyed upsert of normalised rows
//   - CursorStore: durable extraction position
//   - TaskLedger: durable run-status records
//   - SnapshotWriter: flat export of the full cache
//   - SchedulerStore: persisted scheduler state
//   - ConfigStore: application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: any adapter package
package driven
