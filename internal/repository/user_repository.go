package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/utils"
)

// User mirrors the 'users' table. PasswordHash is empty for accounts
// created through the OAuth simulators.
type User struct {
	ID               string
	Email            string
	Name             string
	PasswordHash     sql.NullString
	Provider         string
	Tier             string
	StripeCustomerID sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ToModel converts a row into the session-facing user record,
// validating the enumerated fields on the way out.
func (u User) ToModel() (model.User, error) {
	provider, err := model.ParseProvider(u.Provider)
	if err != nil {
		return model.User{}, err
	}
	tier, err := model.ParseTier(u.Tier)
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Provider:         provider,
		Tier:             tier,
		CreatedAt:        u.CreatedAt,
		StripeCustomerID: u.StripeCustomerID.String,
	}, nil
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,password_hash,provider,tier,stripe_customer_id,created_at,updated_at"

// Create inserts an email/password user on the free tier.
func (r *UserRepo) Create(ctx context.Context, id, email, name, password string, cost int) error {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, name, password_hash, provider, tier) VALUES (?,?,?,?,?,?)",
		id, email, name, hash, string(model.ProviderEmail), string(model.TierFree))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// CreateOAuth inserts a passwordless user for an OAuth provider. The
// simulators call it on first sign-in; a duplicate email means the
// account already exists and the caller should load it instead.
func (r *UserRepo) CreateOAuth(ctx context.Context, id, email, name string, provider model.Provider) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, name, provider, tier) VALUES (?,?,?,?,?)",
		id, email, name, string(provider), string(model.TierFree))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (User, error) {
	return r.scanOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByStripeCustomer fetches the user owning a Stripe customer id;
// the webhook uses it to map events back to an account.
func (r *UserRepo) GetByStripeCustomer(ctx context.Context, customerID string) (User, error) {
	return r.scanOne(ctx, "SELECT "+userColumns+" FROM users WHERE stripe_customer_id=? LIMIT 1", customerID)
}

// UpdateTier moves a user to a new subscription tier.
func (r *UserRepo) UpdateTier(ctx context.Context, id string, tier model.Tier) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET tier=? WHERE id=?", string(tier), id)
	return err
}

// SetStripeCustomer stores the Stripe customer id created for a user.
func (r *UserRepo) SetStripeCustomer(ctx context.Context, id, customerID string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET stripe_customer_id=? WHERE id=?", customerID, id)
	return err
}

func (r *UserRepo) scanOne(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Provider, &u.Tier,
		&u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}
