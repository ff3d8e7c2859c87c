// Package billing wraps the Stripe API for checkout, the billing
// portal and subscription lookups. Failures here are non-fatal to the
// session: handlers log them and answer with a generic message, and
// session state is never rolled back on a billing error.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"

	"github.com/tyler2w2/social-media-ai/internal/config"
	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/repository"
)

// trialDays is the free trial offered on every paid tier.
const trialDays = 7

// ErrNotConfigured is returned when Stripe keys are absent from the
// environment. The rest of the service runs fine without billing.
var ErrNotConfigured = errors.New("billing not configured")

// SubscriptionStatus is the summary handed back to the client.
type SubscriptionStatus struct {
	Tier       model.Tier `json:"tier"`
	Status     string     `json:"status"`
	CustomerID string     `json:"customer_id,omitempty"`
}

type Service struct {
	cfg   config.StripeConfig
	users *repository.UserRepo
}

// New wires the Stripe API key and returns the billing service.
func New(cfg config.StripeConfig, users *repository.UserRepo) *Service {
	stripe.Key = cfg.SecretKey
	return &Service{cfg: cfg, users: users}
}

// Enabled reports whether a Stripe secret key was configured.
func (s *Service) Enabled() bool { return s.cfg.SecretKey != "" }

// CreateCheckoutSession starts a subscription checkout for a paid tier
// and returns the redirect URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, user model.User, tier model.Tier, yearly bool) (string, error) {
	if !s.Enabled() {
		return "", ErrNotConfigured
	}
	priceID := s.priceFor(tier, yearly)
	if priceID == "" {
		return "", fmt.Errorf("no price configured for tier %s", tier)
	}
	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	frontendURL := strings.TrimRight(s.cfg.FrontendURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(trialDays),
		},
		SuccessURL: stripe.String(frontendURL + "/billing/success"),
		CancelURL:  stripe.String(frontendURL + "/billing/cancel"),
	}
	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession opens the Stripe billing portal for an existing
// customer and returns the redirect URL.
func (s *Service) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	if !s.Enabled() {
		return "", ErrNotConfigured
	}
	if customerID == "" {
		return "", errors.New("missing stripe customer id")
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(strings.TrimRight(s.cfg.FrontendURL, "/")),
	}
	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// FetchSubscriptionStatus looks up the user's active subscription and
// maps its price back to a tier. Users without a customer id or an
// active subscription report the free tier.
func (s *Service) FetchSubscriptionStatus(ctx context.Context, user model.User) (SubscriptionStatus, error) {
	if !s.Enabled() {
		return SubscriptionStatus{}, ErrNotConfigured
	}
	if user.StripeCustomerID == "" {
		return SubscriptionStatus{Tier: model.TierFree, Status: "none"}, nil
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(user.StripeCustomerID),
		Status:   stripe.String("active"),
	}
	params.Limit = stripe.Int64(1)
	iter := subscription.List(params)
	for iter.Next() {
		sub := iter.Subscription()
		tier := model.TierFree
		if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			if t, ok := s.cfg.TierForPrice(sub.Items.Data[0].Price.ID); ok {
				tier = t
			}
		}
		return SubscriptionStatus{
			Tier:       tier,
			Status:     string(sub.Status),
			CustomerID: user.StripeCustomerID,
		}, nil
	}
	if err := iter.Err(); err != nil {
		return SubscriptionStatus{}, fmt.Errorf("list subscriptions: %w", err)
	}
	return SubscriptionStatus{Tier: model.TierFree, Status: "none", CustomerID: user.StripeCustomerID}, nil
}

// TierForPrice exposes the price-to-tier mapping to the webhook
// handler.
func (s *Service) TierForPrice(priceID string) (model.Tier, bool) {
	return s.cfg.TierForPrice(priceID)
}

// WebhookSecret is the endpoint secret used to verify event
// signatures.
func (s *Service) WebhookSecret() string { return s.cfg.WebhookSecret }

// ensureCustomer finds or creates the Stripe customer for a user and
// stores the id on the account record.
func (s *Service) ensureCustomer(ctx context.Context, user model.User) (string, error) {
	if user.ID == "" {
		return "", errors.New("missing user id")
	}
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Metadata: map[string]string{
			"user_id": user.ID,
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.users.SetStripeCustomer(ctx, user.ID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (s *Service) priceFor(tier model.Tier, yearly bool) string {
	ref, ok := s.cfg.Prices[tier]
	if !ok {
		return ""
	}
	if yearly && ref.Yearly != "" {
		return ref.Yearly
	}
	return ref.Monthly
}
