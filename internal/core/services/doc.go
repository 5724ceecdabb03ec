// Package services contains the core application services: the sync
// orchestrator, the scheduler, and settings management. Services
// depend only on domain types and port interfaces; adapters are
// injected at startup.
package services
