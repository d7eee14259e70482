package iam

import (
	"context"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/repository"
)

// OwnerFunc resolves a resource id to its owner's principal id. It returns
// repository.ErrNotFound when the resource does not exist and ("", nil) when
// the resource exists but has no owner.
type OwnerFunc func(ctx context.Context, id string) (string, error)

// Authorizer decides whether a principal may perform an action on an object.
// Role policy lives in the enforcer; ownership-scoped policy rows additionally
// require the resource's owner id to match the acting principal, resolved
// through a minimal owner-id projection rather than a full entity load.
type Authorizer struct {
	enforcer casbin.IEnforcer
	owners   map[string]OwnerFunc
}

// NewAuthorizer creates an authorizer over the policy enforcer and one owner
// lookup per ownership-scoped object type.
func NewAuthorizer(enforcer casbin.IEnforcer, owners map[string]OwnerFunc) *Authorizer {
	if owners == nil {
		owners = map[string]OwnerFunc{}
	}
	return &Authorizer{enforcer: enforcer, owners: owners}
}

// Evaluate returns nil when the principal may perform action on the object,
// ErrInsufficientRole or ErrNotOwner when denied. A missing resource is a
// deny, never an error; the caller surfaces absence as not-found after
// authorization in whatever way fits its transport.
func (a *Authorizer) Evaluate(ctx context.Context, principal *auth.Principal, object, action, resourceID string) error {
	if principal == nil || len(principal.Roles) == 0 {
		return ErrInsufficientRole
	}

	for _, role := range principal.Roles {
		ok, err := a.enforcer.Enforce(role, object, action)
		if err != nil {
			return fmt.Errorf("enforce %s/%s/%s: %w", role, object, action, err)
		}
		if ok {
			return nil
		}
	}

	if resourceID == "" {
		return ErrInsufficientRole
	}

	scoped := false
	for _, role := range principal.Roles {
		ok, err := a.enforcer.Enforce(role, object, action+auth.OwnSuffix)
		if err != nil {
			return fmt.Errorf("enforce %s/%s/%s: %w", role, object, action+auth.OwnSuffix, err)
		}
		if ok {
			scoped = true
			break
		}
	}
	if !scoped {
		return ErrInsufficientRole
	}

	lookup, ok := a.owners[object]
	if !ok {
		return ErrInsufficientRole
	}
	ownerID, err := lookup(ctx, resourceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotOwner
		}
		return fmt.Errorf("resolve owner of %s %s: %w", object, resourceID, err)
	}
	if ownerID == "" || ownerID != principal.ID {
		return ErrNotOwner
	}
	return nil
}
