package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stygo/stygo-backend/internal/repository"
	"github.com/stygo/stygo-backend/internal/utils"
)

// validCategories are the shop categories the storefront understands.
var validCategories = map[string]bool{
	"men":         true,
	"women":       true,
	"kids":        true,
	"accessories": true,
	"beauty":      true,
}

// ShopStore is the slice of seller persistence the shop and listing
// endpoints need.
type ShopStore interface {
	Create(ctx context.Context, p *repository.SellerProfile) error
	ExistsByUser(ctx context.Context, userID uint64) (bool, error)
	GetByUserID(ctx context.Context, userID uint64) (repository.SellerProfile, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, p *repository.SellerProfile) error
}

// SellerHandler bundles dependencies for shop owners.
type SellerHandler struct {
	Users    UserStore
	Sellers  ShopStore
	Products ProductStore
}

func NewSellerHandler(u UserStore, s ShopStore, p ProductStore) *SellerHandler {
	return &SellerHandler{Users: u, Sellers: s, Products: p}
}

type createShopReq struct {
	ShopName string `json:"shop_name"`
	Location string `json:"location"`
	Category string `json:"category"`
}

type shopResp struct {
	ID          uint64 `json:"id"`
	ShopName    string `json:"shop_name"`
	Slug        string `json:"slug"`
	Location    string `json:"location"`
	PhoneNumber string `json:"phone_number"`
	Category    string `json:"category"`
}

func toShopResp(p repository.SellerProfile) shopResp {
	return shopResp{
		ID:          p.ID,
		ShopName:    p.ShopName,
		Slug:        p.Slug,
		Location:    p.Location,
		PhoneNumber: p.PhoneNumber,
		Category:    p.Category,
	}
}

// CreateShop registers the authenticated user's one shop.
func (h *SellerHandler) CreateShop(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createShopReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(req.ShopName)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"shop_name": "shop name is required"}})
	}
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		category = "men"
	}
	if !validCategories[category] {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"category": "unknown category"}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	if exists, err := h.Sellers.ExistsByUser(ctx, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if exists {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "shop already exists"})
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	slug, err := h.uniqueSlug(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	profile := &repository.SellerProfile{
		UserID:      userID,
		ShopName:    name,
		Slug:        slug,
		Location:    strings.TrimSpace(req.Location),
		PhoneNumber: u.Phone,
		Category:    category,
	}
	if err := h.Sellers.Create(ctx, profile); err != nil {
		if err == repository.ErrShopExists {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "shop already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create shop failed"})
	}
	return c.JSON(http.StatusCreated, toShopResp(*profile))
}

// Dashboard returns the seller's shop and listings in one response.
func (h *SellerHandler) Dashboard(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	profile, err := h.Sellers.GetByUserID(ctx, userID)
	if err != nil {
		if err == repository.ErrShopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	products, err := h.Products.ListBySeller(ctx, profile.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"shop":     toShopResp(profile),
		"products": toProductResps(products, baseURL(c)),
	})
}

// UpdateShop rewrites the shop's mutable fields. The slug stays stable so
// existing storefront links keep resolving.
func (h *SellerHandler) UpdateShop(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createShopReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	profile, err := h.Sellers.GetByUserID(ctx, userID)
	if err != nil {
		if err == repository.ErrShopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if name := strings.TrimSpace(req.ShopName); name != "" {
		profile.ShopName = name
	}
	if loc := strings.TrimSpace(req.Location); loc != "" {
		profile.Location = loc
	}
	if cat := strings.ToLower(strings.TrimSpace(req.Category)); cat != "" {
		if !validCategories[cat] {
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"category": "unknown category"}})
		}
		profile.Category = cat
	}

	if err := h.Sellers.Update(ctx, &profile); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toShopResp(profile))
}

// uniqueSlug derives a slug from the shop name, suffixing a counter until
// it is free.
func (h *SellerHandler) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "shop"
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := h.Sellers.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
