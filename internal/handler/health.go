package handler

import (
	"net/http" // status codes

	"github.com/labstack/echo/v4" // web framework used for this project
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
