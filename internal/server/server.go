package server

import "net/http"

// Middleware decorates the handler registered behind it.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that owns a fixed set of paths, such as the redirect path of
// a [CallbackHandler].
type Handler interface {
	http.Handler
	Routes() []string
}

// Router mounts [Handler] values behind a shared middleware stack. [CaptureServer] serves one.
type Router interface {
	http.Handler
	Use(middleware ...Middleware)
	Handler(handler Handler)
}

var _ Router = (*BasicRouter)(nil)
