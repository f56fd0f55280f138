package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stygo/stygo-backend/internal/repository"
)

// SubscriberHandler manages the WhatsApp broadcast opt-in list.
type SubscriberHandler struct {
	Subscribers *repository.SubscriberRepo
}

func NewSubscriberHandler(r *repository.SubscriberRepo) *SubscriberHandler {
	return &SubscriberHandler{Subscribers: r}
}

type subscribeReq struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	Consent     bool   `json:"consent"`
}

// Subscribe adds a phone number to the broadcast list. Numbers must carry
// an explicit "+<country code>" prefix because the list spans markets.
func (h *SubscriberHandler) Subscribe(c echo.Context) error {
	var req subscribeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if !strings.HasPrefix(phone, "+") || len(phone) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{
			"phone_number": "phone number must start with + and include country code",
		}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	sub := &repository.Subscriber{
		PhoneNumber: phone,
		Name:        strings.TrimSpace(req.Name),
		Consent:     req.Consent,
	}
	if err := h.Subscribers.Create(ctx, sub); err != nil {
		if err == repository.ErrSubscriberExists {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "This phone number is already subscribed."})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "subscribe failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Subscribed successfully!"})
}
