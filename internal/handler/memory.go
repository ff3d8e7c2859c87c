package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/repository"
	"github.com/tyler2w2/social-media-ai/internal/session"
)

// MemoryHandler exposes the bounded activity log and the data export.
type MemoryHandler struct {
	Users    *repository.UserRepo
	Sessions *session.Manager
}

func NewMemoryHandler(u *repository.UserRepo, s *session.Manager) *MemoryHandler {
	return &MemoryHandler{Users: u, Sessions: s}
}

// Recent returns the n most recent memory entries, newest first.
// Defaults to 10.
func (h *MemoryHandler) Recent(c echo.Context) error {
	n := 10
	if raw := c.QueryParam("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "n must be a non-negative integer"})
		}
		n = v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, sess, err := resumeSession(ctx, c, h.Users, h.Sessions)
	if err != nil {
		return sessionError(c, err)
	}
	entries, err := sess.RecentMemory(n)
	if err != nil {
		return sessionError(c, err)
	}
	if entries == nil {
		entries = []model.MemoryEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

type copiedReq struct {
	Title string `json:"title"`
}

// Copied records that the user copied a generated idea to the
// clipboard. The client fires this on every copy button press.
func (h *MemoryHandler) Copied(c echo.Context) error {
	var req copiedReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, sess, err := resumeSession(ctx, c, h.Users, h.Sessions)
	if err != nil {
		return sessionError(c, err)
	}
	content := "User copied content: " + strings.TrimSpace(req.Title)
	if err := sess.RecordMemory(ctx, content, model.MemoryContentCopy); err != nil {
		return sessionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Export returns the full account snapshot as a JSON download.
func (h *MemoryHandler) Export(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, sess, err := resumeSession(ctx, c, h.Users, h.Sessions)
	if err != nil {
		return sessionError(c, err)
	}
	payload, err := sess.Export(ctx)
	if err != nil {
		return sessionError(c, err)
	}
	filename := fmt.Sprintf("socialai-export-%s.json", user.ID)
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.JSON(http.StatusOK, payload)
}
