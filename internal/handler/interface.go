package handler

import (
	"context"

	"github.com/gofiber/contrib/websocket"
)

type Request any
type Response any

// BasicHandler returns the response, the HTTP status to use on error, and the
// error itself.
type BasicHandler[R Request, Res Response] interface {
	Handle(ctx context.Context, req *R) (*Res, int, error)
}
type FiberWSHandler[R Request] interface {
	HandleWS(c *websocket.Conn, ctx context.Context, req *R)
}
