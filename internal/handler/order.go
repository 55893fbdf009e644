package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/easycheck/easycheck/internal/session"
)

// OrderHandler serves order placement.  The diner and session come from
// the token, never from the body, so a diner cannot order into someone
// else's session.
type OrderHandler struct {
	Coord *session.Coordinator
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(coord *session.Coordinator) *OrderHandler {
	if coord == nil {
		panic("nil coordinator passed to NewOrderHandler")
	}
	return &OrderHandler{Coord: coord}
}

// Place handles POST /v1/orders.  The body carries a batch of items; the
// whole batch is inserted atomically and the response echoes the created
// orders with names and current prices resolved.
func (h *OrderHandler) Place(c echo.Context) error {
	dinerID, sessionID, err := identity(c)
	if err != nil {
		return err
	}
	var body struct {
		Items []struct {
			MenuItemID string  `json:"menu_item_id"`
			Quantity   *uint32 `json:"quantity"`
			Notes      string  `json:"notes"`
		} `json:"items"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items is required"})
	}

	items := make([]session.OrderItem, 0, len(body.Items))
	for _, it := range body.Items {
		// An omitted quantity means one; an explicit zero is rejected
		// downstream like any other invalid quantity.
		qty := uint32(1)
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		items = append(items, session.OrderItem{
			MenuItemID: it.MenuItemID,
			Quantity:   qty,
			Notes:      it.Notes,
		})
	}
	orders, err := h.Coord.PlaceOrder(c.Request().Context(), sessionID, dinerID, items)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusCreated, orders)
}
