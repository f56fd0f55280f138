package router

import (
	"github.com/labstack/echo/v4"

	"github.com/stygo/stygo-backend/internal/handler"
	"github.com/stygo/stygo-backend/internal/middleware"
)

// RegisterPublic registers unauthenticated browse endpoints on the provided
// Echo instance.  The PublicHandler exposes sanitized shop and product data
// for guests; no JWT middleware is applied.  The optional cache middleware
// is attached per route so that only catalog reads are served from Redis;
// pass nil to disable caching.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, prod *handler.ProductHandler, cache echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{}
	if cache != nil {
		mw = append(mw, cache)
	}
	// Full catalog across every shop.
	e.GET("/v1/products/all", p.AllProducts, mw...)
	// The eight most recently added products for the landing page.
	e.GET("/v1/products/latest", p.LatestProducts, mw...)
	// Budget rail: products priced under 599.
	e.GET("/v1/products/under-599", p.BudgetProducts, mw...)
	// Single product detail by id.
	e.GET("/v1/products/:id", prod.Detail, mw...)
	// Storefront by slug, without the seller's contact number.
	e.GET("/v1/shops/:slug", p.ShopBySlug, mw...)
	// All products belonging to one shop.
	e.GET("/v1/shops/:slug/products", p.ShopProducts, mw...)
}

// RegisterEngagement registers the subscriber and suggestion endpoints.
// Submitting is open to guests; reading the suggestion list requires a
// valid access token.
func RegisterEngagement(e *echo.Echo, sub *handler.SubscriberHandler, sug *handler.SuggestionHandler, jwtSecret string) {
	e.POST("/v1/subscribers/subscribe", sub.Subscribe)
	e.POST("/v1/suggestions", sug.Create)
	e.GET("/v1/suggestions", sug.List, middleware.JWTAuth(jwtSecret))
}
