package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/easycheck/easycheck/internal/fanout"
)

// WSHandler upgrades GET /v1/sessions/:id/ws to a WebSocket that streams
// the session's change events.  The stream carries wake-up signals only;
// clients re-fetch state over HTTP when one arrives.
type WSHandler struct {
	Hub *fanout.Hub
}

// NewWSHandler constructs a WSHandler.
func NewWSHandler(hub *fanout.Hub) *WSHandler {
	if hub == nil {
		panic("nil hub passed to NewWSHandler")
	}
	return &WSHandler{Hub: hub}
}

// Subscribe attaches the caller to their session's event stream.  The
// token travels in the "token" query parameter because browsers cannot
// set headers on WebSocket dials.
func (h *WSHandler) Subscribe(c echo.Context) error {
	id, err := requireSession(c)
	if err != nil {
		return err
	}
	return h.Hub.Serve(c.Response(), c.Request(), id)
}
