package socket

// Middleware intercepts socket traffic. Interceptors run in registration
// order on every emit and every delivered inbound event.
type Middleware interface {
	// Handle is called before an outbound emit. Returning false vetoes
	// the emit; later interceptors do not run and nothing is written.
	Handle(event string, data any) bool

	// Forward observes an inbound event before its handler runs. It
	// cannot veto delivery.
	Forward(event string, data any)
}
