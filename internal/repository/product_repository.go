package repository

import (
	"context"
	"database/sql"
	"time"
)

// Product mirrors the 'products' table. ImagePath stores the file name
// relative to the media directory; handlers turn it into an absolute URL.
type Product struct {
	ID            uint64
	SellerID      uint64
	Name          string
	Price         float64
	OriginalPrice sql.NullFloat64
	Size          string
	Category      sql.NullString
	ImagePath     string
	Description   sql.NullString
	CreatedAt     time.Time
}

type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productCols = "id, seller_id, name, price, original_price, size, category, image_path, description, created_at"

// Create inserts a product and fills in its ID.
func (r *ProductRepo) Create(ctx context.Context, p *Product) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO products (seller_id, name, price, original_price, size, category, image_path, description) "+
			"VALUES (?,?,?,?,?,?,?,?)",
		p.SellerID, p.Name, p.Price, p.OriginalPrice, p.Size, p.Category, p.ImagePath, p.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// CountBySeller returns how many products a shop currently lists. Used to
// enforce the per-shop listing cap.
func (r *ProductRepo) CountBySeller(ctx context.Context, sellerID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE seller_id=?", sellerID).Scan(&n)
	return n, err
}

// GetByID fetches a single product.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (Product, error) {
	var p Product
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.OriginalPrice, &p.Size, &p.Category, &p.ImagePath, &p.Description, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

// ListBySeller returns all products of one shop, newest first.
func (r *ProductRepo) ListBySeller(ctx context.Context, sellerID uint64) ([]Product, error) {
	return r.list(ctx,
		"SELECT "+productCols+" FROM products WHERE seller_id=? ORDER BY id DESC", sellerID)
}

// ListAll returns the whole public catalog, newest first.
func (r *ProductRepo) ListAll(ctx context.Context) ([]Product, error) {
	return r.list(ctx, "SELECT "+productCols+" FROM products ORDER BY id DESC")
}

// ListLatest returns the most recent listings capped at limit.
func (r *ProductRepo) ListLatest(ctx context.Context, limit int) ([]Product, error) {
	return r.list(ctx,
		"SELECT "+productCols+" FROM products ORDER BY id DESC LIMIT ?", limit)
}

// ListUnderPrice returns listings priced strictly below the threshold,
// cheapest first.
func (r *ProductRepo) ListUnderPrice(ctx context.Context, price float64) ([]Product, error) {
	return r.list(ctx,
		"SELECT "+productCols+" FROM products WHERE price < ? ORDER BY price ASC", price)
}

func (r *ProductRepo) list(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.OriginalPrice, &p.Size, &p.Category, &p.ImagePath, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields of a product. The seller_id filter
// keeps one seller from editing another's listing; a filtered-out row comes
// back as ErrProductNotFound.
func (r *ProductRepo) Update(ctx context.Context, p *Product) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE products SET name=?, price=?, original_price=?, size=?, category=?, image_path=?, description=? "+
			"WHERE id=? AND seller_id=?",
		p.Name, p.Price, p.OriginalPrice, p.Size, p.Category, p.ImagePath, p.Description, p.ID, p.SellerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, gerr := r.getOwned(ctx, p.ID, p.SellerID); gerr != nil {
			return ErrProductNotFound
		}
	}
	return nil
}

// Delete removes a seller's product. Deleting someone else's product or a
// missing id reports ErrProductNotFound.
func (r *ProductRepo) Delete(ctx context.Context, id, sellerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM products WHERE id=? AND seller_id=?", id, sellerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *ProductRepo) getOwned(ctx context.Context, id, sellerID uint64) (Product, error) {
	var p Product
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id=? AND seller_id=? LIMIT 1", id, sellerID).
		Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.OriginalPrice, &p.Size, &p.Category, &p.ImagePath, &p.Description, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return Product{}, ErrProductNotFound
	}
	return p, err
}
