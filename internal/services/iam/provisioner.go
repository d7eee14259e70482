package iam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/workstack/workstack/internal/cache"
	"github.com/workstack/workstack/internal/db/models"
	"github.com/workstack/workstack/internal/repository"
)

// invalidateUserViews clears the cache regions that could hold a view of a
// user after an account mutation. Nil coordinator is a no-op for callers
// that run without caching (tests, CLI tools).
func invalidateUserViews(coordinator *cache.Coordinator) {
	if coordinator == nil {
		return
	}
	for _, region := range []string{cache.RegionUsers, cache.RegionAdminDashboard} {
		if err := coordinator.Invalidate(region); err != nil {
			log.Printf("iam: invalidate region %s: %v", region, err)
		}
	}
}

// ExternalIdentity is the identity material extracted from a federated
// login callback's verified ID token claims.
type ExternalIdentity struct {
	Provider    string
	ExternalID  string
	Email       string
	DisplayName string
}

// Provisioner reconciles federated login callbacks with the local account
// store. Each callback either creates a new account, updates the existing
// one, or is rejected; see Provision.
type Provisioner struct {
	users repository.UserRepository
	cache *cache.Coordinator
}

// NewProvisioner creates a provisioner backed by the given user repository.
func NewProvisioner(users repository.UserRepository) *Provisioner {
	return &Provisioner{users: users}
}

// WithCache makes the provisioner invalidate user-related cache regions
// after account mutations.
func (p *Provisioner) WithCache(coordinator *cache.Coordinator) *Provisioner {
	p.cache = coordinator
	return p
}

// Provision resolves an external identity to exactly one local account.
//
// No account with the email yet: a new federated account is created with the
// fixed contractor role, active and approved. An account registered through
// the same provider is updated in place. An account registered through a
// different provider (local registration included) is rejected with
// ErrProviderConflict.
//
// Two concurrent callbacks for the same new email may both take the create
// path; the storage uniqueness constraint decides the winner and the loser
// falls back to the update path, so exactly one account results either way.
func (p *Provisioner) Provision(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmailFormat, email)
	}
	identity.Email = email

	existing, err := p.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return p.updateExisting(ctx, existing, identity)
	case errors.Is(err, repository.ErrNotFound):
		return p.createNew(ctx, identity)
	default:
		return nil, fmt.Errorf("lookup account by email: %w", err)
	}
}

func (p *Provisioner) updateExisting(ctx context.Context, user *models.User, identity ExternalIdentity) (*models.User, error) {
	if user.Provider != identity.Provider {
		return nil, fmt.Errorf("%w: registered via %s", ErrProviderConflict, user.Provider)
	}

	changed := false
	if name := strings.TrimSpace(identity.DisplayName); name != "" && name != user.Username {
		username, err := p.uniqueUsername(ctx, name)
		if err != nil {
			return nil, err
		}
		user.Username = username
		changed = true
	}
	if identity.ExternalID != "" && (user.ProviderID == nil || *user.ProviderID != identity.ExternalID) {
		user.ProviderID = &identity.ExternalID
		changed = true
	}
	if !changed {
		return user, nil
	}

	if err := p.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update federated account: %w", err)
	}
	invalidateUserViews(p.cache)
	log.Printf("iam: updated federated account %s (%s)", user.Username, user.Provider)
	return user, nil
}

func (p *Provisioner) createNew(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	base := strings.TrimSpace(identity.DisplayName)
	if base == "" {
		base = identity.Email[:strings.Index(identity.Email, "@")]
	}

	// A concurrent callback can win either uniqueness race: the email
	// constraint (fall back to update) or the username constraint (pick the
	// next free suffix and try again).
	for attempt := 0; attempt < 3; attempt++ {
		username, err := p.uniqueUsername(ctx, base)
		if err != nil {
			return nil, err
		}

		user := &models.User{
			Username:   username,
			Email:      identity.Email,
			Provider:   identity.Provider,
			ProviderID: &identity.ExternalID,
			Roles:      models.RoleList{models.RoleContractor},
			Active:     true,
			Approved:   true,
		}

		err = p.users.Create(ctx, user)
		if err == nil {
			invalidateUserViews(p.cache)
			log.Printf("iam: provisioned new federated account %s (%s)", user.Username, user.Provider)
			return user, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create federated account: %w", err)
		}

		existing, lookupErr := p.users.GetByEmail(ctx, identity.Email)
		if lookupErr == nil {
			return p.updateExisting(ctx, existing, identity)
		}
		if !errors.Is(lookupErr, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup account after create conflict: %w", lookupErr)
		}
		// Email is still free, so the collision was on the username.
	}
	return nil, fmt.Errorf("create federated account: username contention for %q", base)
}

// uniqueUsername returns base unchanged if free, otherwise base with the
// smallest unused positive integer suffix appended (base_1, base_2, ...).
func (p *Provisioner) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		taken, err := p.users.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}
