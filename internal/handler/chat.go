package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tyler2w2/social-media-ai/internal/generator"
	"github.com/tyler2w2/social-media-ai/internal/middleware"
	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/queue"
	"github.com/tyler2w2/social-media-ai/internal/repository"
	"github.com/tyler2w2/social-media-ai/internal/session"
	queue_publisher "github.com/tyler2w2/social-media-ai/internal/service"
)

// memoryContextWindow is how many past generation summaries the
// generator sees per request.
const memoryContextWindow = 5

// ChatHandler serves the conversation endpoints: send a message and
// receive generated content ideas, or restore the saved transcript.
type ChatHandler struct {
	Users    *repository.UserRepo
	Sessions *session.Manager
	Gen      *generator.Generator
}

func NewChatHandler(u *repository.UserRepo, s *session.Manager, g *generator.Generator) *ChatHandler {
	return &ChatHandler{Users: u, Sessions: s, Gen: g}
}

type chatReq struct {
	Message string `json:"message"`
}

type usagePart struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

type chatResp struct {
	Reply string           `json:"reply"`
	Ideas []generator.Idea `json:"ideas"`
	Usage usagePart        `json:"usage"`
}

// Post handles an incoming chat message: quota check, idea
// generation, transcript and memory updates, then the usage counter.
// The order matters; the counter only moves after the reply is
// recorded.
func (h *ChatHandler) Post(c echo.Context) error {
	var req chatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, sess, err := resumeSession(ctx, c, h.Users, h.Sessions)
	if err != nil {
		return sessionError(c, err)
	}

	ok, err := sess.CanGenerate(ctx)
	if err != nil {
		return sessionError(c, err)
	}
	if !ok {
		info := user.Tier.Info()
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":       fmt.Sprintf("You've reached your daily limit of %d generations.", info.DailyLimit),
			"upgrade":     "Upgrade your plan for more daily generations.",
			"daily_limit": info.DailyLimit,
		})
	}

	if err := sess.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: msg}); err != nil {
		return sessionError(c, err)
	}
	if err := sess.RecordMemory(ctx, "User asked: "+msg, model.MemoryUserQuery); err != nil {
		return sessionError(c, err)
	}

	intent := generator.ParseIntent(msg)
	recent, err := sess.MemoryByKind(model.MemoryContentGeneration)
	if err != nil {
		return sessionError(c, err)
	}
	if len(recent) > memoryContextWindow {
		recent = recent[len(recent)-memoryContextWindow:]
	}
	ideas := h.Gen.Generate(msg, intent, recent)
	reply := generator.FormatResponse(ideas, intent)

	if err := sess.AppendMessage(ctx, model.Message{Role: model.RoleAssistant, Content: reply}); err != nil {
		return sessionError(c, err)
	}
	if err := sess.RecordGeneration(ctx); err != nil {
		if errors.Is(err, session.ErrQuotaExceeded) {
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "daily limit reached"})
		}
		return sessionError(c, err)
	}
	if err := sess.RecordMemory(ctx,
		fmt.Sprintf("Generated %d content ideas for: %s", len(ideas), msg),
		model.MemoryContentGeneration); err != nil {
		return sessionError(c, err)
	}

	// Best effort; the reply is already committed.
	_ = queue_publisher.PublishIdeaGenerated(ctx, queue.IdeaGeneratedEvent{
		UserID:      user.ID,
		Tier:        string(user.Tier),
		Topic:       intent.Topic,
		Platform:    intent.Platform,
		IdeaCount:   len(ideas),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})

	usage, err := usageSnapshot(ctx, sess, user)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, chatResp{Reply: reply, Ideas: ideas, Usage: usage})
}

// List returns the saved transcript in chronological order.
func (h *ChatHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, sess, err := resumeSession(ctx, c, h.Users, h.Sessions)
	if err != nil {
		return sessionError(c, err)
	}
	msgs, err := sess.Restore()
	if err != nil {
		return sessionError(c, err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

func usageSnapshot(ctx context.Context, sess *session.UserSession, user model.User) (usagePart, error) {
	used, err := sess.UsedToday(ctx)
	if err != nil {
		return usagePart{}, err
	}
	remaining, err := sess.RemainingQuota(ctx)
	if err != nil {
		return usagePart{}, err
	}
	return usagePart{
		Used:      used,
		Limit:     user.Tier.Info().DailyLimit,
		Remaining: remaining,
		Unlimited: user.Tier.Unlimited(),
	}, nil
}

// resumeSession loads the account for the token subject and returns a
// session handle bound to that user. Every operation in the request
// goes through the handle, so concurrent requests for other subjects
// cannot redirect this one's reads or writes. The DB row is the source
// of truth for the tier, so webhook upgrades take effect on the next
// request.
func resumeSession(ctx context.Context, c echo.Context, users *repository.UserRepo, sessions *session.Manager) (model.User, *session.UserSession, error) {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		return model.User{}, nil, session.ErrNotAuthenticated
	}
	row, err := users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, nil, session.ErrNotAuthenticated
		}
		return model.User{}, nil, err
	}
	u, err := row.ToModel()
	if err != nil {
		return model.User{}, nil, err
	}
	sess, err := sessions.Resume(ctx, u)
	if err != nil {
		return model.User{}, nil, err
	}
	return u, sess, nil
}

// sessionError maps session failures onto HTTP statuses.
func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, session.ErrQuotaExceeded):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "daily limit reached"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
