// Package server provides HTTP routing, middleware, and the OAuth redirect capture server.
//
// # Router Infrastructure
//
// [BasicRouter] mounts the callback handler behind [LoggingMiddleware]. It uses [http.ServeMux]
// internally with method filtering. [Middleware] wraps handlers in reverse order (last added executes first).
//
// # Redirect Capture
//
// [Listen] binds the redirect URI's host and port before the authorization URL is handed to the user
// and fails with [shared.ErrPortUnavailable] rather than searching for another port, since the
// redirect URI must match the one registered with the provider.
//
// [CallbackHandler] accepts exactly one redirect. A matching state with a code is a success; an
// error parameter or a state mismatch is recorded as [shared.ErrAuthorizationDenied]. Every request
// after the first receives a generic page and is otherwise ignored.
//
// [CaptureServer.Await] blocks for the result with an upper bound and always releases the port
// before returning, so a retry can bind it again immediately.
package server
