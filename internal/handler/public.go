// This file defines handlers for the public storefront API. These routes
// let unauthenticated buyers browse shops and products. Seller contact
// details and owner ids are filtered from responses.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stygo/stygo-backend/internal/repository"
)

// budgetPriceLimit backs the "under 599" storefront rail.
const budgetPriceLimit = 599

// PublicHandler aggregates repositories needed for unauthenticated
// browsing.
type PublicHandler struct {
	Sellers  *repository.SellerRepo
	Products *repository.ProductRepo
}

func NewPublicHandler(s *repository.SellerRepo, p *repository.ProductRepo) *PublicHandler {
	return &PublicHandler{Sellers: s, Products: p}
}

// publicShop is a shop stripped to the fields safe for guests.
type publicShop struct {
	ShopName string `json:"shop_name"`
	Slug     string `json:"slug"`
	Location string `json:"location"`
	Category string `json:"category"`
}

func toPublicShop(p repository.SellerProfile) publicShop {
	return publicShop{ShopName: p.ShopName, Slug: p.Slug, Location: p.Location, Category: p.Category}
}

// AllProducts returns the whole catalog, newest first.
func (h *PublicHandler) AllProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	products, err := h.Products.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProductResps(products, baseURL(c)))
}

// LatestProducts returns the newest listings for the storefront rail.
func (h *PublicHandler) LatestProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	products, err := h.Products.ListLatest(ctx, 8)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProductResps(products, baseURL(c)))
}

// BudgetProducts returns listings priced under the budget rail limit.
func (h *PublicHandler) BudgetProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	products, err := h.Products.ListUnderPrice(ctx, budgetPriceLimit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProductResps(products, baseURL(c)))
}

// ShopBySlug returns one shop's public profile.
func (h *PublicHandler) ShopBySlug(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	shop, err := h.Sellers.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		if err == repository.ErrShopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toPublicShop(shop))
}

// ShopProducts returns one shop's listings for guests.
func (h *PublicHandler) ShopProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	shop, err := h.Sellers.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		if err == repository.ErrShopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	products, err := h.Products.ListBySeller(ctx, shop.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"shop":     toPublicShop(shop),
		"products": toProductResps(products, baseURL(c)),
	})
}
