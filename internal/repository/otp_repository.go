package repository

import (
	"context"
	"database/sql"
	"time"
)

// OTPCode mirrors the 'otp_codes' table: the single live one-time code for
// a phone number. Reissuing a code overwrites the row in place, so a phone
// never accumulates more than one live code.
type OTPCode struct {
	ID        uint64
	Phone     string
	Code      string
	CreatedAt time.Time
}

// OTPRepo owns the OTP ledger; the auth handler is its only caller.
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// Upsert writes the live code for a phone, creating the row on first
// request. The unique key on phone makes a concurrent reissue a single
// atomic row update: whichever request commits last owns the live code.
func (r *OTPRepo) Upsert(ctx context.Context, phone, code string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO otp_codes (phone, code, created_at) VALUES (?,?,UTC_TIMESTAMP()) "+
			"ON DUPLICATE KEY UPDATE code=VALUES(code), created_at=UTC_TIMESTAMP()",
		phone, code)
	return err
}

// FindValid returns the newest row matching phone and code created at or
// after the cutoff; sql.ErrNoRows means the code is wrong, superseded or
// expired. Ordering newest-first keeps the latest code authoritative even
// if a write race ever produced duplicates.
func (r *OTPRepo) FindValid(ctx context.Context, phone, code string, cutoff time.Time) (OTPCode, error) {
	var o OTPCode
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, phone, code, created_at FROM otp_codes "+
			"WHERE phone=? AND code=? AND created_at>=? ORDER BY created_at DESC LIMIT 1",
		phone, code, cutoff).Scan(&o.ID, &o.Phone, &o.Code, &o.CreatedAt)
	return o, err
}
