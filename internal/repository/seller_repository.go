package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// SellerProfile mirrors the 'seller_profiles' table. Each user owns at most
// one shop; the slug is the public handle used in catalog URLs.
type SellerProfile struct {
	ID          uint64
	UserID      uint64
	ShopName    string
	Slug        string
	Location    string
	PhoneNumber string
	Category    string
	CreatedAt   time.Time
}

type SellerRepo struct{ DB *sql.DB }

func NewSellerRepo(db *sql.DB) *SellerRepo { return &SellerRepo{DB: db} }

// Create inserts a seller profile and fills in its ID. Duplicate user_id or
// slug rows map to ErrShopExists.
func (r *SellerRepo) Create(ctx context.Context, p *SellerProfile) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO seller_profiles (user_id, shop_name, slug, location, phone_number, category) VALUES (?,?,?,?,?,?)",
		p.UserID, p.ShopName, p.Slug, p.Location, p.PhoneNumber, p.Category)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrShopExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ExistsByUser reports whether the user already registered a shop. The auth
// endpoints use this for the has_shop flag.
func (r *SellerRepo) ExistsByUser(ctx context.Context, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM seller_profiles WHERE user_id=? LIMIT 1", userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByUserID fetches the shop owned by a user.
func (r *SellerRepo) GetByUserID(ctx context.Context, userID uint64) (SellerProfile, error) {
	return r.getWhere(ctx, "user_id=?", userID)
}

// GetBySlug fetches a shop by its public slug.
func (r *SellerRepo) GetBySlug(ctx context.Context, slug string) (SellerProfile, error) {
	return r.getWhere(ctx, "slug=?", slug)
}

func (r *SellerRepo) getWhere(ctx context.Context, cond string, arg any) (SellerProfile, error) {
	var p SellerProfile
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, shop_name, slug, location, phone_number, category, created_at "+
			"FROM seller_profiles WHERE "+cond+" LIMIT 1",
		arg).Scan(&p.ID, &p.UserID, &p.ShopName, &p.Slug, &p.Location, &p.PhoneNumber, &p.Category, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return SellerProfile{}, ErrShopNotFound
	}
	return p, err
}

// SlugExists reports whether a slug is already taken.
func (r *SellerRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM seller_profiles WHERE slug=? LIMIT 1", slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update rewrites the mutable shop fields. The slug deliberately stays
// stable so existing catalog links keep working.
func (r *SellerRepo) Update(ctx context.Context, p *SellerProfile) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE seller_profiles SET shop_name=?, location=?, category=? WHERE id=? AND user_id=?",
		p.ShopName, p.Location, p.Category, p.ID, p.UserID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		// Zero rows also happens when the values did not change; confirm
		// the shop is really there before reporting it missing.
		if _, gerr := r.GetByUserID(ctx, p.UserID); gerr != nil {
			return ErrShopNotFound
		}
	}
	return err
}
