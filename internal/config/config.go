// Package config loads application configuration from environment
// variables. A .env file is picked up automatically in development.
package config

import (
	"log"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"

	"github.com/tyler2w2/social-media-ai/internal/model"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable: strings for identifiers and secrets, ints
// for durations and costs.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	Stripe         StripeConfig
}

// StripeConfig carries the billing collaborator's settings. Price refs
// map paid tiers to the Stripe Price IDs configured in the dashboard;
// the free tier has none.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	FrontendURL   string // success/cancel redirect base
	Prices        map[model.Tier]PriceRef
}

// PriceRef is the pair of Stripe Price IDs for one tier. Yearly is
// optional; checkout falls back to monthly when it is unset.
type PriceRef struct {
	Monthly string
	Yearly  string
}

// Load reads configuration from environment variables. Required
// variables are enforced by must() and missing values cause the
// program to exit with a fatal log message. Stripe variables are
// optional so the service can run with billing disabled.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			FrontendURL:   os.Getenv("FRONTEND_URL"),
			Prices: map[model.Tier]PriceRef{
				model.TierCreator: {
					Monthly: os.Getenv("STRIPE_PRICE_CREATOR_MONTHLY"),
					Yearly:  os.Getenv("STRIPE_PRICE_CREATOR_YEARLY"),
				},
				model.TierBusiness: {
					Monthly: os.Getenv("STRIPE_PRICE_BUSINESS_MONTHLY"),
					Yearly:  os.Getenv("STRIPE_PRICE_BUSINESS_YEARLY"),
				},
				model.TierEnterprise: {
					Monthly: os.Getenv("STRIPE_PRICE_ENTERPRISE_MONTHLY"),
					Yearly:  os.Getenv("STRIPE_PRICE_ENTERPRISE_YEARLY"),
				},
			},
		},
	}
}

// TierForPrice reverses the price table: given a Stripe Price ID from
// a webhook event, it returns the tier it purchases.
func (s StripeConfig) TierForPrice(priceID string) (model.Tier, bool) {
	if priceID == "" {
		return "", false
	}
	for tier, ref := range s.Prices {
		if ref.Monthly == priceID || ref.Yearly == priceID {
			return tier, true
		}
	}
	return "", false
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an
// integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
