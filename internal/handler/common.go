// Package handler exposes the HTTP surface of the service: public catalog
// browsing, session join and state, orders, payments and the WebSocket
// event stream.  Handlers translate between JSON and the coordinator; all
// decisions about session state live below this layer.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/easycheck/easycheck/internal/ledger"
)

// identity reads the diner and session injected by the SessionAuth
// middleware.  A missing value means the route was registered without the
// middleware, which is a wiring bug, but it is reported as 401 rather
// than a panic.
func identity(c echo.Context) (dinerID, sessionID string, err error) {
	d, _ := c.Get("diner_id").(string)
	s, _ := c.Get("session_id").(string)
	if d == "" || s == "" {
		return "", "", echo.ErrUnauthorized
	}
	return d, s, nil
}

// ledgerError maps ledger sentinels onto HTTP responses.  Unknown errors
// become an opaque 500; their detail stays in the server log.
func ledgerError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, ledger.ErrClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session closed"})
	case errors.Is(err, ledger.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "order already settled"})
	case errors.Is(err, ledger.ErrDuplicateOpenSession):
		return c.JSON(http.StatusConflict, echo.Map{"error": "table already has an open session"})
	case errors.Is(err, ledger.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("ledger error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
