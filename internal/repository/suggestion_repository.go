package repository

import (
	"context"
	"database/sql"
	"time"
)

// Suggestion mirrors the 'suggestions' table holding visitor feedback.
type Suggestion struct {
	ID        uint64
	Name      string
	Email     string
	Language  string
	Message   string
	PagePath  string
	CreatedAt time.Time
}

type SuggestionRepo struct{ DB *sql.DB }

func NewSuggestionRepo(db *sql.DB) *SuggestionRepo { return &SuggestionRepo{DB: db} }

// Create inserts a suggestion and fills in its ID and timestamp.
func (r *SuggestionRepo) Create(ctx context.Context, s *Suggestion) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO suggestions (name, email, language, message, page_path) VALUES (?,?,?,?,?)",
		s.Name, s.Email, s.Language, s.Message, s.PagePath)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CreatedAt = time.Now().UTC()
	return nil
}

// ListAll returns every suggestion, newest first.
func (r *SuggestionRepo) ListAll(ctx context.Context) ([]Suggestion, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, email, language, message, page_path, created_at FROM suggestions ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Suggestion{}
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Language, &s.Message, &s.PagePath, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
