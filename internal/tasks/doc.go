// Package tasks holds the engine behind every long-running pictune operation.
//
// # Core Operations
//
// [Engine] exposes three operations:
//
//  1. [Engine.Generate] : photo parameters → track list
//     - Searches the catalog for playlists matching the parameters' query
//     - Fetches up to three playlists concurrently and deduplicates their tracks
//     - Drops tracks whose title contradicts the target mood, then scores tempo, duration and rank
//
//  2. [Engine.MatchTracks] : track list → destination ids
//     - One search per track, in input order, optionally paced and cached
//     - A 429 is waited out once; per-track failures become not-found results
//
//  3. [Engine.CreateAndPopulate] : destination ids → playlist
//     - Creates the playlist, then adds tracks in batches of at most 100
//     - A failed batch stops the run and returns the partial result with [shared.ErrPartialAssembly]
//
// # Progress Reporting
//
// All operations accept an optional channel of [Event] values: started, matched, unmatched,
// completed and failed. Sends use select with default, so a slow reader drops events rather
// than stalling the engine.
//
// # Match Cache
//
// The optional [MatchCache] interface (repositories.MatchCache) remembers found matches by
// normalized title and artist. Cache failures are logged and otherwise ignored.
package tasks
