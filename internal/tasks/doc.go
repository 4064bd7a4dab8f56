// Package tasks orchestrates playlist migrations from NetEase Cloud
// Music to Spotify.
//
// The Engine drives each job through its lifecycle: fetch the source
// playlist, resolve every track against the target catalog, then
// build the target playlist in batches. Jobs run sequentially and a
// run only halts early when authorization expires; any other failure
// is recorded on the job's report and the run continues.
//
// Progress is reported through a non-blocking ProgressUpdate channel
// so slow consumers never stall a migration.
package tasks
