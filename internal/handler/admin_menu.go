package handler

import (
	"errors"
	"net/http"

	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"

	"github.com/easycheck/easycheck/internal/model"
	"github.com/easycheck/easycheck/internal/repository"
)

// AdminHandler serves menu administration.  These routes live under
// /v1/admin and are expected to sit behind the operator's network
// boundary; there is no staff account system.
type AdminHandler struct {
	MenuRepo *repository.MenuRepo
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(menuRepo *repository.MenuRepo) *AdminHandler {
	if menuRepo == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{MenuRepo: menuRepo}
}

type menuItemBody struct {
	RestaurantID string `json:"restaurant_id"`
	CategoryID   string `json:"category_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceCents   int64  `json:"price"`
	Emoji        string `json:"emoji"`
	Available    *bool  `json:"available"`
}

// CreateMenuItem handles POST /v1/admin/menu-items.
func (h *AdminHandler) CreateMenuItem(c echo.Context) error {
	var body menuItemBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.RestaurantID == "" || body.Name == "" || body.PriceCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant_id, name and a positive price are required"})
	}
	item, err := h.MenuRepo.Create(c.Request().Context(), &model.MenuItem{
		RestaurantID: body.RestaurantID,
		CategoryID:   body.CategoryID,
		Name:         body.Name,
		Description:  body.Description,
		PriceCents:   body.PriceCents,
		Emoji:        body.Emoji,
	})
	if err != nil {
		c.Logger().Errorf("create menu item: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateMenuItem handles PUT /v1/admin/menu-items/:id.  A price change
// applies to unpaid orders on the next read; amounts inside recorded
// payments stay as written.
func (h *AdminHandler) UpdateMenuItem(c echo.Context) error {
	var body menuItemBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Name == "" || body.PriceCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and a positive price are required"})
	}
	available := true
	if body.Available != nil {
		available = *body.Available
	}
	item, err := h.MenuRepo.Update(c.Request().Context(), &model.MenuItem{
		ID:          c.Param("id"),
		CategoryID:  body.CategoryID,
		Name:        body.Name,
		Description: body.Description,
		PriceCents:  body.PriceCents,
		Emoji:       body.Emoji,
		Available:   available,
	})
	if err != nil {
		if errors.Is(err, repository.ErrMenuItemNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "menu item not found"})
		}
		c.Logger().Errorf("update menu item: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteMenuItem handles DELETE /v1/admin/menu-items/:id.  An item that
// orders already reference cannot be removed; mark it unavailable instead.
func (h *AdminHandler) DeleteMenuItem(c echo.Context) error {
	err := h.MenuRepo.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrMenuItemNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "menu item not found"})
		}
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1451 { // foreign key restricts delete
			return c.JSON(http.StatusConflict, echo.Map{"error": "menu item is referenced by orders"})
		}
		c.Logger().Errorf("delete menu item: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// ListCategories handles GET /v1/admin/categories/:restaurantId.
func (h *AdminHandler) ListCategories(c echo.Context) error {
	cats, err := h.MenuRepo.ListCategories(c.Request().Context(), c.Param("restaurantId"))
	if err != nil {
		c.Logger().Errorf("list categories: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, cats)
}

// CreateCategory handles POST /v1/admin/categories.  The new category is
// appended after the restaurant's last sort position.
func (h *AdminHandler) CreateCategory(c echo.Context) error {
	var body struct {
		RestaurantID string `json:"restaurant_id"`
		Name         string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.RestaurantID == "" || body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant_id and name are required"})
	}
	cat, err := h.MenuRepo.CreateCategory(c.Request().Context(), body.RestaurantID, body.Name)
	if err != nil {
		c.Logger().Errorf("create category: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, cat)
}
