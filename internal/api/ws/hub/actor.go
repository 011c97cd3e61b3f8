package hub

import "context"

// Actor reacts to socket events for one hub. The hub may drop its actor when
// idle and build a new one through the Factory on the next event, so an actor
// must be able to rebuild everything it needs from durable storage and socket
// attachments.
type Actor interface {
	WebSocketMessage(ctx context.Context, ws *Socket, message []byte)
	WebSocketClose(ctx context.Context, ws *Socket, code int, reason string, wasClean bool)
	WebSocketError(ctx context.Context, ws *Socket, err error)
}

// Factory builds an actor when the hub wakes.
type Factory func(state State) Actor

// State is the part of the hub an actor may use.
type State interface {
	Name() string
	// GetWebSockets returns every socket that has not yet had its close or
	// error event delivered.
	GetWebSockets() []*Socket
	Socket(id string) (*Socket, bool)
}
