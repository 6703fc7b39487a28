// Package auth drives one Spotify authorization at a time and owns the resulting tokens.
//
// An [Authorizer] binds the redirect listener, hands out the authorization URL and
// waits for the browser to come back:
//
//	req, err := a.Begin(ctx)       // listener is bound, req.URL is ready to open
//	session, err := a.Await(ctx, 0) // blocks for the redirect, then exchanges the code
//
// The redirect's state must echo the one issued by Begin; anything else is rejected
// and its code is never sent to the token endpoint.
//
// A [Session] holds the token pair and refreshes it lazily when the access token is
// within the refresh margin of expiring. It satisfies [services.AccessTokenSource] and
// exposes an [oauth2.TokenSource] for SDK clients.
package auth
