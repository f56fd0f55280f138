package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stygo/stygo-backend/internal/repository"
)

// SuggestionHandler takes visitor feedback. Submission is open to guests;
// reading the list requires authentication.
type SuggestionHandler struct {
	Suggestions *repository.SuggestionRepo
}

func NewSuggestionHandler(r *repository.SuggestionRepo) *SuggestionHandler {
	return &SuggestionHandler{Suggestions: r}
}

type suggestionReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Language string `json:"language"`
	Message  string `json:"message"`
	PagePath string `json:"page_path"`
}

type suggestionResp struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Language  string `json:"language"`
	Message   string `json:"message"`
	PagePath  string `json:"page_path"`
	CreatedAt string `json:"created_at"`
}

func toSuggestionResp(s repository.Suggestion) suggestionResp {
	return suggestionResp{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Language:  s.Language,
		Message:   s.Message,
		PagePath:  s.PagePath,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create stores one feedback message.
func (h *SuggestionHandler) Create(c echo.Context) error {
	var req suggestionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	msg := strings.TrimSpace(req.Message)
	if len(msg) < 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"message": "message is too short"}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	s := &repository.Suggestion{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Language: strings.TrimSpace(req.Language),
		Message:  msg,
		PagePath: strings.TrimSpace(req.PagePath),
	}
	if err := h.Suggestions.Create(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusCreated, toSuggestionResp(*s))
}

// List returns all feedback, newest first.
func (h *SuggestionHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	items, err := h.Suggestions.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]suggestionResp, 0, len(items))
	for _, s := range items {
		out = append(out, toSuggestionResp(s))
	}
	return c.JSON(http.StatusOK, out)
}
