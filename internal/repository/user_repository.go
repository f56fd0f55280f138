package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/stygo/stygo-backend/internal/utils"
)

// User mirrors the 'users' table. Phone is the durable username: it is
// stored normalized (country code + digits) and unique across all users.
// Email is optional but also unique when present. PasswordHash is NULL for
// accounts created through the OTP flow until they set a password.
type User struct {
	ID           uint64
	Phone        string
	Email        sql.NullString
	PasswordHash sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrPhoneExists = errors.New("phone already exists")
	ErrEmailExists = errors.New("email already exists")
)

// Create inserts a user with a hashed password and returns its ID. The
// phone and email must already be normalized by the caller.
func (r *UserRepo) Create(ctx context.Context, phone, email, password string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (phone, email, password_hash) VALUES (?,?,?)",
		phone, email, hash)
	if err != nil {
		return 0, dupUserErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetOrCreateByPhone resolves a user by phone, creating a password-less
// account when none exists yet. A concurrent insert losing the race on the
// unique phone key falls back to re-reading the winner's row, so callers
// always see exactly one user per phone.
func (r *UserRepo) GetOrCreateByPhone(ctx context.Context, phone string) (User, error) {
	u, err := r.GetByPhone(ctx, phone)
	if err == nil {
		return u, nil
	}
	if err != sql.ErrNoRows {
		return User{}, err
	}
	res, err := r.DB.ExecContext(ctx, "INSERT INTO users (phone) VALUES (?)", phone)
	if err != nil {
		if dupUserErr(err) == ErrPhoneExists {
			return r.GetByPhone(ctx, phone)
		}
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByPhone fetches a user by normalized phone.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (User, error) {
	return r.getWhere(ctx, "phone=?", phone)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getWhere(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return r.getWhere(ctx, "id=?", id)
}

func (r *UserRepo) getWhere(ctx context.Context, cond string, arg any) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,phone,email,password_hash,created_at,updated_at FROM users WHERE "+cond+" LIMIT 1",
		arg).Scan(&u.ID, &u.Phone, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// PhoneExists reports whether any user already holds the phone.
func (r *UserRepo) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "phone=?", phone)
}

// EmailExists reports whether any user already holds the email.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) exists(ctx context.Context, cond string, arg any) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE "+cond+" LIMIT 1", arg).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, userID)
	return err
}

// dupUserErr maps a MySQL duplicate-key error (1062) onto the sentinel for
// whichever unique column collided.
func dupUserErr(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	if strings.Contains(msg, "email") {
		return ErrEmailExists
	}
	return ErrPhoneExists
}
