package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/tyler2w2/social-media-ai/internal/billing"
	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/repository"
)

// maxWebhookBody caps how much of a webhook payload is read.
const maxWebhookBody = 64 * 1024

// WebhookHandler receives Stripe events and keeps account tiers in
// sync with the live subscription. Unsigned or malformed payloads are
// rejected; unhandled event types are acknowledged and dropped.
type WebhookHandler struct {
	Users   *repository.UserRepo
	Billing *billing.Service
}

func NewWebhookHandler(u *repository.UserRepo, b *billing.Service) *WebhookHandler {
	return &WebhookHandler{Users: u, Billing: b}
}

func (h *WebhookHandler) Handle(c echo.Context) error {
	secret := h.Billing.WebhookSecret()
	if secret == "" {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "webhook not configured"})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "read body failed"})
	}
	event, err := webhook.ConstructEvent(body, c.Request().Header.Get("Stripe-Signature"), secret)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event"})
		}
		h.applySubscription(ctx, sub)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event"})
		}
		h.downgrade(ctx, sub)
	default:
		// Acknowledge so Stripe stops retrying.
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// applySubscription maps the subscription price to a tier and writes
// it to the account row. The session picks the new tier up on the
// user's next request.
func (h *WebhookHandler) applySubscription(ctx context.Context, sub stripe.Subscription) {
	if sub.Customer == nil {
		return
	}
	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
	default:
		return
	}
	if len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return
	}
	tier, ok := h.Billing.TierForPrice(sub.Items.Data[0].Price.ID)
	if !ok {
		log.Printf("webhook: unknown price %s on subscription %s", sub.Items.Data[0].Price.ID, sub.ID)
		return
	}

	row, err := h.Users.GetByStripeCustomer(ctx, sub.Customer.ID)
	if err != nil {
		log.Printf("webhook: no account for customer %s: %v", sub.Customer.ID, err)
		return
	}
	if err := h.Users.UpdateTier(ctx, row.ID, tier); err != nil {
		log.Printf("webhook: update tier for %s failed: %v", row.ID, err)
		return
	}
	log.Printf("webhook: user %s moved to tier %s", row.ID, tier)
}

func (h *WebhookHandler) downgrade(ctx context.Context, sub stripe.Subscription) {
	if sub.Customer == nil {
		return
	}
	row, err := h.Users.GetByStripeCustomer(ctx, sub.Customer.ID)
	if err != nil {
		log.Printf("webhook: no account for customer %s: %v", sub.Customer.ID, err)
		return
	}
	if err := h.Users.UpdateTier(ctx, row.ID, model.TierFree); err != nil {
		log.Printf("webhook: downgrade for %s failed: %v", row.ID, err)
		return
	}
	log.Printf("webhook: user %s downgraded to free", row.ID)
}
