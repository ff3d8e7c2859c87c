package model

import (
	"fmt"
	"time"
)

// Provider identifies how a user authenticated. The oauth values are
// served by the demo simulators; "email" is the password flow.
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// ParseProvider validates a provider value read from a request or from
// the persisted store. Unknown values are rejected so that a corrupted
// record cannot smuggle in an unrecognized provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderEmail, ProviderGoogle, ProviderGitHub:
		return Provider(s), nil
	}
	return "", fmt.Errorf("unknown auth provider %q", s)
}

// User is the session-facing user record. The identity store owns it
// exclusively; every other component reads it through the session
// manager. StripeCustomerID is empty until billing creates a customer.
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	Email            string    `json:"email,omitempty"`
	Provider         Provider  `json:"provider"`
	Tier             Tier      `json:"tier"`
	CreatedAt        time.Time `json:"created_at"`
	StripeCustomerID string    `json:"stripe_customer_id,omitempty"`
}

// Validate checks the enumerated fields after a decode from the store.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user record missing id")
	}
	if _, err := ParseProvider(string(u.Provider)); err != nil {
		return err
	}
	if _, err := ParseTier(string(u.Tier)); err != nil {
		return err
	}
	return nil
}
