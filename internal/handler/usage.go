package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tyler2w2/social-media-ai/internal/repository"
	"github.com/tyler2w2/social-media-ai/internal/session"
)

// UsageHandler exposes the daily generation counter.
type UsageHandler struct {
	Users    *repository.UserRepo
	Sessions *session.Manager
}

func NewUsageHandler(u *repository.UserRepo, s *session.Manager) *UsageHandler {
	return &UsageHandler{Users: u, Sessions: s}
}

// Get reports today's usage for the caller's tier. Day boundaries are
// derived from the current date at read time, so the first call after
// midnight already sees a fresh counter.
func (h *UsageHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, sess, err := resumeSession(ctx, c, h.Users, h.Sessions)
	if err != nil {
		return sessionError(c, err)
	}

	used, err := sess.UsedToday(ctx)
	if err != nil {
		return sessionError(c, err)
	}
	remaining, err := sess.RemainingQuota(ctx)
	if err != nil {
		return sessionError(c, err)
	}
	info := user.Tier.Info()
	return c.JSON(http.StatusOK, echo.Map{
		"tier":      user.Tier,
		"tier_name": info.DisplayName,
		"used":      used,
		"limit":     info.DailyLimit,
		"remaining": remaining,
		"unlimited": user.Tier.Unlimited(),
	})
}
