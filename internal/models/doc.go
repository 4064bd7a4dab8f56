// Package models defines domain entities and persistence interfaces for the migration history store.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: Database-backed models with full lifecycle management
//   - [MigrationRun] : One migration job with state and match tallies
//   - [CachedMatch] : A resolved source-to-target pairing reused across runs
//
// 2. Row types: Lightweight structs written alongside an entity
//   - [OutcomeRow] : Per-track resolution result attached to a run
//
// Persistent entities implement the Model interface providing identity, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
