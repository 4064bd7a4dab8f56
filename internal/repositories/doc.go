// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] for a specific entity type over
// the sqlite history database. HistoryRecorder adapts the repositories to the
// migration engine's recording and caching interfaces.
package repositories
