package repository

import (
	"context"
	"database/sql"
	"time"
)

// PasswordReset mirrors the 'password_resets' table: the single live reset
// code per user. A new request overwrites the row and clears the used flag;
// a confirmed code is marked used and never validates again.
type PasswordReset struct {
	ID        uint64
	UserID    uint64
	Code      string
	Used      bool
	CreatedAt time.Time
}

// ResetRepo owns the password reset ledger; the auth handler is its only
// caller.
type ResetRepo struct{ DB *sql.DB }

func NewResetRepo(db *sql.DB) *ResetRepo { return &ResetRepo{DB: db} }

// Upsert writes the live reset code for a user. The unique key on user_id
// keeps the overwrite a single atomic row update.
func (r *ResetRepo) Upsert(ctx context.Context, userID uint64, code string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_resets (user_id, code, used, created_at) VALUES (?,?,0,UTC_TIMESTAMP()) "+
			"ON DUPLICATE KEY UPDATE code=VALUES(code), used=0, created_at=UTC_TIMESTAMP()",
		userID, code)
	return err
}

// FindLive returns the newest unused row matching user and code created at
// or after the cutoff; sql.ErrNoRows covers wrong, used, superseded and
// expired codes alike.
func (r *ResetRepo) FindLive(ctx context.Context, userID uint64, code string, cutoff time.Time) (PasswordReset, error) {
	var p PasswordReset
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, code, used, created_at FROM password_resets "+
			"WHERE user_id=? AND code=? AND used=0 AND created_at>=? ORDER BY created_at DESC LIMIT 1",
		userID, code, cutoff).Scan(&p.ID, &p.UserID, &p.Code, &p.Used, &p.CreatedAt)
	return p, err
}

// MarkUsed burns a reset code so replays with the same code are rejected.
// The used=0 filter makes the burn an atomic claim: of two concurrent
// confirms only one updates the row, the other gets sql.ErrNoRows.
func (r *ResetRepo) MarkUsed(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE password_resets SET used=1 WHERE id=? AND used=0", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
