// Package repositories implements SQLite persistence for pictune's run history.
//
// Key Implementations:
//   - [RunRepository] : analyzed photos with their description, parameters and generated tracks
//   - [ExportRepository] : every attempt to push a run to Spotify, including partial ones
//   - [MatchCache] : found Spotify matches keyed by normalized title and artist
//
// [RunRepository] and [ExportRepository] implement [models.Repository]. Structured fields
// (description, parameters, tracks) are stored as JSON text columns.
//
// Schema lives in the embedded migrations of the shared package; callers open the database
// with [shared.OpenDatabase], which applies them.
package repositories
