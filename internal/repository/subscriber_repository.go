package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Subscriber mirrors the 'whatsapp_subscribers' table: phones that opted in
// to broadcast updates. Phone numbers here keep the raw "+<country><digits>"
// form the client submitted, unlike user identities.
type Subscriber struct {
	ID           uint64
	PhoneNumber  string
	Name         string
	Consent      bool
	IsActive     bool
	SubscribedAt time.Time
}

type SubscriberRepo struct{ DB *sql.DB }

func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{DB: db} }

// Create inserts a subscriber; a duplicate phone maps to
// ErrSubscriberExists.
func (r *SubscriberRepo) Create(ctx context.Context, s *Subscriber) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO whatsapp_subscribers (phone_number, name, consent, is_active) VALUES (?,?,?,1)",
		s.PhoneNumber, s.Name, s.Consent)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrSubscriberExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}
