package router // router defines how HTTP routes are registered for the API

import (
	"github.com/stygo/stygo-backend/internal/handler"    // seller and product handlers
	"github.com/stygo/stygo-backend/internal/middleware" // JWT middleware
	"github.com/labstack/echo/v4"
)

// RegisterSeller registers seller-scoped endpoints under /v1.
// All routes require a valid JWT; ownership of shops and products is
// enforced inside the handlers.
func RegisterSeller(e *echo.Echo, s *handler.SellerHandler, p *handler.ProductHandler, jwtSecret string) {
	// Attach the middleware at group construction time for clarity.
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
	)

	// ---- Shops ----
	g.POST("/sellers/create-shop", s.CreateShop)
	g.GET("/sellers/dashboard", s.Dashboard)
	g.PUT("/sellers/shop", s.UpdateShop)
	g.PATCH("/sellers/shop", s.UpdateShop) // allow partial updates via PATCH as well

	// ---- Products ----
	g.POST("/products", p.Create)
	g.GET("/products/my", p.My)
	// Product updates are full rewrites (every text field is rebound), so
	// only PUT is offered here.
	g.PUT("/products/:id", p.Update)
	g.DELETE("/products/:id", p.Delete)
	// NOTE: Product detail is handled by the public browse API at
	// GET /v1/products/:id, so no owner-scoped read endpoint is registered
	// here to avoid route conflicts.
}
