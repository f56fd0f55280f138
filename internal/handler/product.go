package handler

import (
	"context"
	"database/sql"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stygo/stygo-backend/internal/repository"
)

// maxProductsPerShop caps how many listings one shop can hold.
const maxProductsPerShop = 9

// ProductStore is the slice of listing persistence the product endpoints
// need.
type ProductStore interface {
	Create(ctx context.Context, p *repository.Product) error
	CountBySeller(ctx context.Context, sellerID uint64) (int, error)
	GetByID(ctx context.Context, id uint64) (repository.Product, error)
	ListBySeller(ctx context.Context, sellerID uint64) ([]repository.Product, error)
	Update(ctx context.Context, p *repository.Product) error
	Delete(ctx context.Context, id, sellerID uint64) error
}

// ImageStore persists uploaded product images on disk.
type ImageStore interface {
	SaveProduct(fh *multipart.FileHeader) (string, error)
	Remove(rel string) error
}

// ProductHandler bundles dependencies for listing management. Images go
// through Store; the stores own the rows.
type ProductHandler struct {
	Sellers  ShopStore
	Products ProductStore
	Store    ImageStore
}

func NewProductHandler(s ShopStore, p ProductStore, store ImageStore) *ProductHandler {
	return &ProductHandler{Sellers: s, Products: p, Store: store}
}

type productResp struct {
	ID            uint64   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price"`
	Size          string   `json:"size"`
	Category      string   `json:"category,omitempty"`
	Description   string   `json:"description,omitempty"`
	ImageURL      string   `json:"image_url"`
	CreatedAt     string   `json:"created_at"`
}

func toProductResp(p repository.Product, base string) productResp {
	resp := productResp{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Size:      p.Size,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.OriginalPrice.Valid {
		v := p.OriginalPrice.Float64
		resp.OriginalPrice = &v
	}
	if p.Category.Valid {
		resp.Category = p.Category.String
	}
	if p.Description.Valid {
		resp.Description = p.Description.String
	}
	if p.ImagePath != "" {
		resp.ImageURL = base + "/media/" + p.ImagePath
	}
	return resp
}

func toProductResps(ps []repository.Product, base string) []productResp {
	out := make([]productResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResp(p, base))
	}
	return out
}

// Create adds a listing from a multipart form: text fields plus an "image"
// file part.
func (h *ProductHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	seller, err := h.Sellers.GetByUserID(ctx, userID)
	if err != nil {
		if err == repository.ErrShopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	count, err := h.Products.CountBySeller(ctx, seller.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if count >= maxProductsPerShop {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product limit reached (max 9 products)"})
	}

	p, fieldErrs := bindProductForm(c)
	fh, ferr := c.FormFile("image")
	if ferr != nil {
		fieldErrs["image"] = "an image file is required"
	}
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fieldErrs})
	}

	imagePath, err := h.Store.SaveProduct(fh)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"image": err.Error()}})
	}

	p.SellerID = seller.ID
	p.ImagePath = imagePath
	if err := h.Products.Create(ctx, &p); err != nil {
		_ = h.Store.Remove(imagePath)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create product failed"})
	}
	return c.JSON(http.StatusCreated, toProductResp(p, baseURL(c)))
}

// My lists the authenticated seller's products.
func (h *ProductHandler) My(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	seller, err := h.Sellers.GetByUserID(ctx, userID)
	if err != nil {
		if err == repository.ErrShopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	products, err := h.Products.ListBySeller(ctx, seller.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProductResps(products, baseURL(c)))
}

// Detail returns one product; it is public so buyers can deep-link.
func (h *ProductHandler) Detail(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProductResp(p, baseURL(c)))
}

// Update rewrites a listing's fields; a replacement image is optional.
func (h *ProductHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	seller, err := h.Sellers.GetByUserID(ctx, userID)
	if err != nil {
		if err == repository.ErrShopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	existing, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if existing.SellerID != seller.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	p, fieldErrs := bindProductForm(c)
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fieldErrs})
	}
	p.ID = existing.ID
	p.SellerID = seller.ID
	p.ImagePath = existing.ImagePath
	p.CreatedAt = existing.CreatedAt

	newImage := ""
	if fh, ferr := c.FormFile("image"); ferr == nil {
		imagePath, serr := h.Store.SaveProduct(fh)
		if serr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"image": serr.Error()}})
		}
		newImage = imagePath
		p.ImagePath = imagePath
	}

	if err := h.Products.Update(ctx, &p); err != nil {
		// Only a file this request wrote may be cleaned up; the row still
		// references the existing image.
		if newImage != "" {
			_ = h.Store.Remove(newImage)
		}
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if newImage != "" && existing.ImagePath != newImage {
		_ = h.Store.Remove(existing.ImagePath)
	}
	return c.JSON(http.StatusOK, toProductResp(p, baseURL(c)))
}

// Delete removes a listing and its stored image.
func (h *ProductHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	seller, err := h.Sellers.GetByUserID(ctx, userID)
	if err != nil {
		if err == repository.ErrShopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	existing, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Products.Delete(ctx, id, seller.ID); err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	_ = h.Store.Remove(existing.ImagePath)
	return c.NoContent(http.StatusNoContent)
}

// bindProductForm pulls the text fields of a listing from the multipart
// form, collecting per-field validation errors.
func bindProductForm(c echo.Context) (repository.Product, echo.Map) {
	fieldErrs := echo.Map{}
	p := repository.Product{
		Name: strings.TrimSpace(c.FormValue("name")),
		Size: strings.TrimSpace(c.FormValue("size")),
	}
	if p.Name == "" {
		fieldErrs["name"] = "name is required"
	}
	if p.Size == "" {
		fieldErrs["size"] = "size is required"
	}

	priceStr := strings.TrimSpace(c.FormValue("price"))
	price, err := strconv.ParseFloat(priceStr, 64)
	if priceStr == "" || err != nil || price <= 0 {
		fieldErrs["price"] = "a positive price is required"
	}
	p.Price = price

	if s := strings.TrimSpace(c.FormValue("original_price")); s != "" {
		orig, err := strconv.ParseFloat(s, 64)
		if err != nil || orig <= 0 {
			fieldErrs["original_price"] = "original price must be a positive number"
		} else {
			p.OriginalPrice = sql.NullFloat64{Float64: orig, Valid: true}
		}
	}
	if s := strings.TrimSpace(c.FormValue("category")); s != "" {
		p.Category = sql.NullString{String: strings.ToLower(s), Valid: true}
	}
	if s := strings.TrimSpace(c.FormValue("description")); s != "" {
		p.Description = sql.NullString{String: s, Valid: true}
	}
	return p, fieldErrs
}
