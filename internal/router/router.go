// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4" // Echo web framework handles routing

	"github.com/easycheck/easycheck/internal/handler"
	"github.com/easycheck/easycheck/internal/middleware"
)

// RegisterRoutes registers routes that need no dependencies.  Currently
// that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated catalog routes.  The
// optional cache middleware fronts all of them; pass nil to disable.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	// Browse restaurants and their menus before joining a session.
	g.GET("/restaurants", p.GetRestaurants)
	g.GET("/restaurants/:slug", p.GetRestaurantBySlug)
	g.GET("/restaurants/:id/menu", p.GetMenu)
	g.GET("/restaurants/:id/tables", p.GetTables)
	// QR payload for printing on the table.
	g.GET("/tables/:id/qr", p.GetTableQR)
}

// RegisterSessions registers the session lifecycle.  The two join routes
// are open because they are how a diner obtains a token in the first
// place; everything else requires the session token minted at join.  The
// rate limiter guards the open routes against invite-code guessing.
func RegisterSessions(e *echo.Echo, s *handler.SessionHandler, o *handler.OrderHandler, p *handler.PaymentHandler, ws *handler.WSHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	join := e.Group("/v1/sessions")
	if limit != nil {
		join.Use(limit)
	}
	join.POST("", s.JoinByTable)
	join.POST("/join", s.JoinByCode)

	auth := e.Group("/v1", middleware.SessionAuth(jwtSecret))
	auth.GET("/sessions/:id", s.GetState)
	auth.GET("/sessions/:id/paid-orders", s.PaidOrders)
	auth.GET("/sessions/:id/split-quote", s.SplitQuote)
	auth.POST("/sessions/:id/close", s.Close)
	auth.GET("/sessions/:id/ws", ws.Subscribe)
	auth.POST("/orders", o.Place)
	auth.POST("/payments", p.Create)
}

// RegisterAdmin registers menu administration under /v1/admin.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler) {
	g := e.Group("/v1/admin")
	g.POST("/menu-items", a.CreateMenuItem)
	g.PUT("/menu-items/:id", a.UpdateMenuItem)
	g.DELETE("/menu-items/:id", a.DeleteMenuItem)
	g.GET("/categories/:restaurantId", a.ListCategories)
	g.POST("/categories", a.CreateCategory)
}
