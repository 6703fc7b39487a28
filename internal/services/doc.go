// Package services implements the remote providers pictune talks to.
//
// # Spotify
//
// [SpotifyService] runs the OAuth authorization-code flow through [golang.org/x/oauth2]:
// it builds the authorization URL, exchanges a captured code and refreshes tokens.
// Token endpoint failures are classified as [shared.ErrInvalidCredentials] (4xx)
// or [shared.ErrProviderUnavailable] (anything else).
//
// [SpotifyClient] implements [Destination] for a given [AccessTokenSource]. Reads go
// through a retrying client; playlist creation and add-items calls are sent once so a
// transport failure never duplicates tracks. Non-2xx responses surface as [*APIError],
// which unwraps to the shared error taxonomy and carries Retry-After on 429.
//
// [LibraryService] reads the user's saved tracks with the zmb3 Spotify SDK.
//
// # Deezer
//
// [DeezerService] implements [Source] over the public catalog API. Deezer reports quota
// errors inside 200 responses; those become [shared.ErrRateLimited].
//
// # Models
//
// [VisionService] and [ParamsService] call an OpenAI chat model or a local Ollama server
// through its OpenAI-compatible endpoint. Replies are expected to hold one JSON object,
// which is extracted even when wrapped in prose or code fences.
package services
