package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tyler2w2/social-media-ai/internal/config"
	"github.com/tyler2w2/social-media-ai/internal/middleware"
	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/repository"
	"github.com/tyler2w2/social-media-ai/internal/session"
	"github.com/tyler2w2/social-media-ai/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Sessions *session.Manager
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, s *session.Manager) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Sessions: s}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type oauthReq struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name,omitempty"`
	Tier  model.Tier `json:"tier"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register: create an email/password user on the free tier and return
// tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		// Default display name: the mailbox part of the address.
		name, _, _ = strings.Cut(req.Email, "@")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := fmt.Sprintf("email_%d", time.Now().UnixMilli())
	if err := h.Users.Create(ctx, id, req.Email, name, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	row, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return h.startSession(c, ctx, row, http.StatusCreated)
}

// Login: verify credentials and start a fresh session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	row, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !row.PasswordHash.Valid || !utils.VerifyPassword(row.PasswordHash.String, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.startSession(c, ctx, row, http.StatusOK)
}

// OAuth simulates a provider sign-in. No real OAuth handshake happens;
// a demo user record is minted (or loaded) for the named provider.
func (h *AuthHandler) OAuth(c echo.Context) error {
	provider, err := model.ParseProvider(c.Param("provider"))
	if err != nil || provider == model.ProviderEmail {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown provider"})
	}

	var req oauthReq
	_ = c.Bind(&req) // optional body
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		email = fmt.Sprintf("user@%s.com", provider)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.ToUpper(string(provider)[:1]) + string(provider)[1:] + " User"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := fmt.Sprintf("%s_%d", provider, time.Now().UnixMilli())
	if err := h.Users.CreateOAuth(ctx, id, email, name, provider); err != nil {
		if !errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
		// Returning visitor: reuse the existing account.
	}
	row, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return h.startSession(c, ctx, row, http.StatusOK)
}

// Refresh: validate by hash, revoke old, issue new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	row, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return h.issueTokens(c, ctx, row, http.StatusOK)
}

// Logout revokes the caller's refresh tokens and signs the session
// out. The client asks the user for confirmation before calling; the
// server treats the request itself as the confirmation.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	if current, ok := h.Sessions.Current(); ok && current.ID == uid {
		if err := h.Sessions.SignOut(ctx); err != nil && !errors.Is(err, session.ErrNotAuthenticated) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's account record.
func (h *AuthHandler) Me(c echo.Context) error {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	row, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	u, err := row.ToModel()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	info := u.Tier.Info()
	return c.JSON(http.StatusOK, echo.Map{
		"user":        userPart{ID: u.ID, Email: u.Email, Name: u.Name, Tier: u.Tier},
		"tier_name":   info.DisplayName,
		"daily_limit": info.DailyLimit,
		"has_billing": u.StripeCustomerID != "" && u.Tier != model.TierFree,
	})
}

// Session restores the persisted session on client startup. 401 tells
// the client to show the login prompt.
func (h *AuthHandler) Session(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Sessions.RestoreSession(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "restore failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user": userPart{ID: u.ID, Email: u.Email, Name: u.Name, Tier: u.Tier},
	})
}

// startSession issues a token pair and begins a fresh session for the
// user: the session manager resets in-memory state and persists the
// user record.
func (h *AuthHandler) startSession(c echo.Context, ctx context.Context, row repository.User, status int) error {
	u, err := row.ToModel()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if err := h.Sessions.Authenticate(ctx, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start session failed"})
	}
	return h.issueTokens(c, ctx, row, status)
}

func (h *AuthHandler) issueTokens(c echo.Context, ctx context.Context, row repository.User, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, row.ID, row.Tier, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, row.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}
	return c.JSON(status, authResp{
		User:    userPart{ID: row.ID, Email: row.Email, Name: row.Name, Tier: model.Tier(row.Tier)},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}
