package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tyler2w2/social-media-ai/internal/billing"
	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/repository"
	"github.com/tyler2w2/social-media-ai/internal/session"
)

// BillingHandler fronts the Stripe integration. Billing failures never
// touch session state; they are logged and answered with a generic
// message.
type BillingHandler struct {
	Users    *repository.UserRepo
	Sessions *session.Manager
	Billing  *billing.Service
}

func NewBillingHandler(u *repository.UserRepo, s *session.Manager, b *billing.Service) *BillingHandler {
	return &BillingHandler{Users: u, Sessions: s, Billing: b}
}

type checkoutReq struct {
	Tier   string `json:"tier"`
	Yearly bool   `json:"yearly"`
}

// Tiers lists the pricing table. Public, no auth.
func (h *BillingHandler) Tiers(c echo.Context) error {
	type tierOut struct {
		Tier       model.Tier `json:"tier"`
		Name       string     `json:"name"`
		DailyLimit int        `json:"daily_limit"`
		PriceCents int64      `json:"monthly_price_cents"`
		Unlimited  bool       `json:"unlimited"`
	}
	out := make([]tierOut, 0, 4)
	for _, t := range []model.Tier{model.TierFree, model.TierCreator, model.TierBusiness, model.TierEnterprise} {
		info := t.Info()
		out = append(out, tierOut{
			Tier:       t,
			Name:       info.DisplayName,
			DailyLimit: info.DailyLimit,
			PriceCents: info.MonthlyPriceCents,
			Unlimited:  t.Unlimited(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"tiers": out})
}

// Checkout starts a subscription checkout for a paid tier and returns
// the Stripe redirect URL.
func (h *BillingHandler) Checkout(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	tier, err := model.ParseTier(strings.TrimSpace(req.Tier))
	if err != nil || tier == model.TierFree {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tier must be a paid plan"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	user, _, err := resumeSession(ctx, c, h.Users, h.Sessions)
	if err != nil {
		return sessionError(c, err)
	}

	url, err := h.Billing.CreateCheckoutSession(ctx, user, tier, req.Yearly)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// Portal opens the Stripe billing portal for an existing customer.
func (h *BillingHandler) Portal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	user, _, err := resumeSession(ctx, c, h.Users, h.Sessions)
	if err != nil {
		return sessionError(c, err)
	}
	if user.StripeCustomerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no billing account yet"})
	}

	url, err := h.Billing.CreatePortalSession(ctx, user.StripeCustomerID)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// Subscription reports the caller's current subscription as Stripe
// sees it.
func (h *BillingHandler) Subscription(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	user, _, err := resumeSession(ctx, c, h.Users, h.Sessions)
	if err != nil {
		return sessionError(c, err)
	}

	status, err := h.Billing.FetchSubscriptionStatus(ctx, user)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func billingError(c echo.Context, err error) error {
	if errors.Is(err, billing.ErrNotConfigured) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "billing is not available"})
	}
	log.Printf("billing: %v", err)
	return c.JSON(http.StatusBadGateway, echo.Map{"error": "billing is temporarily unavailable"})
}
