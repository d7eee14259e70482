package iam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/cache"
	"github.com/workstack/workstack/internal/db/models"
	"github.com/workstack/workstack/internal/repository"
)

// RegisterInput carries a local registration request.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Accounts implements local account registration and password login.
// Federated accounts are handled by the Provisioner instead.
type Accounts struct {
	users repository.UserRepository
	cache *cache.Coordinator
}

// NewAccounts creates the local account service.
func NewAccounts(users repository.UserRepository) *Accounts {
	return &Accounts{users: users}
}

// WithCache makes the service invalidate user-related cache regions after
// registrations.
func (a *Accounts) WithCache(coordinator *cache.Coordinator) *Accounts {
	a.cache = coordinator
	return a
}

// Register creates a local account with a bcrypt password hash. New local
// accounts start unapproved and wait for an administrator. Duplicate
// username or email surfaces as repository.ErrDuplicate.
func (a *Accounts) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return nil, fmt.Errorf("username, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: &hashStr,
		Provider:     models.ProviderLocal,
		Roles:        models.RoleList{models.RoleContractor},
		Active:       true,
		Approved:     false,
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}
	invalidateUserViews(a.cache)
	log.Printf("iam: registered local account %s", user.Username)
	return user, nil
}

// Login verifies a username (or email) and password pair. Any failure maps
// to auth.ErrBadCredentials; the caller learns nothing about which part was
// wrong.
func (a *Accounts) Login(ctx context.Context, usernameOrEmail, password string) (*models.User, error) {
	user, err := a.users.GetByUsername(ctx, usernameOrEmail)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = a.users.GetByEmail(ctx, usernameOrEmail)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ErrBadCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if !user.Active || user.PasswordHash == nil {
		return nil, auth.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, auth.ErrBadCredentials
	}
	return user, nil
}

// GetByID returns the account for an authenticated principal id.
func (a *Accounts) GetByID(ctx context.Context, id string) (*models.User, error) {
	return a.users.GetByID(ctx, id)
}
