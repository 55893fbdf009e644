// This file defines handlers for the public browsing API.  These routes let
// guests see restaurants, menus and tables before joining a session, so no
// token is required.  They sit behind the response cache middleware; the
// catalog changes rarely.
package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/labstack/echo/v4"

	"github.com/easycheck/easycheck/internal/repository"
)

// PublicHandler aggregates repositories needed for unauthenticated
// browsing plus the client base URL embedded in table QR codes.
type PublicHandler struct {
	RestaurantRepo *repository.RestaurantRepo
	MenuRepo       *repository.MenuRepo
	ClientURL      string
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(restaurantRepo *repository.RestaurantRepo, menuRepo *repository.MenuRepo, clientURL string) *PublicHandler {
	if restaurantRepo == nil || menuRepo == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{RestaurantRepo: restaurantRepo, MenuRepo: menuRepo, ClientURL: clientURL}
}

// GetRestaurants handles GET /v1/restaurants.
func (h *PublicHandler) GetRestaurants(c echo.Context) error {
	list, err := h.RestaurantRepo.List(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list restaurants: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, list)
}

// GetRestaurantBySlug handles GET /v1/restaurants/:slug.
func (h *PublicHandler) GetRestaurantBySlug(c echo.Context) error {
	rest, err := h.RestaurantRepo.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, rest)
}

// GetMenu handles GET /v1/restaurants/:id/menu.  The response groups
// available items under their categories in display order.
func (h *PublicHandler) GetMenu(c echo.Context) error {
	menu, err := h.MenuRepo.Menu(c.Request().Context(), c.Param("id"))
	if err != nil {
		c.Logger().Errorf("load menu: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, menu)
}

// GetTables handles GET /v1/restaurants/:id/tables.
func (h *PublicHandler) GetTables(c echo.Context) error {
	tables, err := h.RestaurantRepo.ListTables(c.Request().Context(), c.Param("id"))
	if err != nil {
		c.Logger().Errorf("list tables: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, tables)
}

// GetTableQR handles GET /v1/tables/:id/qr.  It returns the join URL for
// the table together with a QR image of that URL as a PNG data URL, ready
// for an <img> tag or a printout.
func (h *PublicHandler) GetTableQR(c echo.Context) error {
	table, _, err := h.RestaurantRepo.GetTableWithSlug(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	url := fmt.Sprintf("%s/mesa/%s", h.ClientURL, table.ID)
	png, err := qrcode.Encode(url, qrcode.Medium, 400)
	if err != nil {
		c.Logger().Errorf("encode qr: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render qr"})
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	return c.JSON(http.StatusOK, echo.Map{
		"url":   url,
		"qr":    dataURL,
		"table": table,
	})
}
