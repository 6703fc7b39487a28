// Package models defines the typed records passed between pictune's layers.
//
// Authorization flow:
//   - [Credentials] : validated OAuth app registration
//   - [AuthorizationRequest] : one pending consent attempt and its state token
//   - [CapturedRedirect] : the code or error sent to the redirect endpoint
//   - [TokenPair] : access/refresh tokens with absolute expiry
//
// Matching and assembly:
//   - [SourceTrack], [MatchResult] (found iff a destination id is present)
//   - [Playlist], [AssemblyResult] (created vs. confirmed counts)
//
// Generation and history:
//   - [SceneDescription], [MusicParams], [GeneratedTrack]
//   - [Run], [Export] persisted through [Repository] implementations
package models
