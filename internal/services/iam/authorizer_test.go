package iam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/repository"
)

func newTestAuthorizer(t *testing.T, owners map[string]OwnerFunc) *Authorizer {
	t.Helper()
	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)
	return NewAuthorizer(enforcer, owners)
}

func principalWith(id string, roles ...string) *auth.Principal {
	return &auth.Principal{ID: id, Username: "u-" + id, Roles: roles}
}

func staticOwners(owners map[string]string) OwnerFunc {
	return func(ctx context.Context, id string) (string, error) {
		owner, ok := owners[id]
		if !ok {
			return "", repository.ErrNotFound
		}
		return owner, nil
	}
}

func TestAdminAndManagerAllowAllEntityActions(t *testing.T) {
	a := newTestAuthorizer(t, nil)
	ctx := context.Background()

	actions := []string{
		auth.ActionCreate, auth.ActionRead, auth.ActionList,
		auth.ActionUpdate, auth.ActionDelete, auth.ActionAssign,
	}
	for _, role := range []string{"admin", "manager"} {
		p := principalWith("p1", role)
		for _, object := range []string{auth.ObjectProject, auth.ObjectTask} {
			for _, action := range actions {
				assert.NoError(t, a.Evaluate(ctx, p, object, action, ""),
					"%s should allow %s on %s", role, action, object)
			}
		}
	}
}

func TestOnlyAdminManagesUsers(t *testing.T) {
	a := newTestAuthorizer(t, nil)
	ctx := context.Background()

	assert.NoError(t, a.Evaluate(ctx, principalWith("p1", "admin"), auth.ObjectUser, auth.ActionManage, ""))
	for _, role := range []string{"manager", "developer", "contractor"} {
		err := a.Evaluate(ctx, principalWith("p1", role), auth.ObjectUser, auth.ActionManage, "")
		assert.ErrorIs(t, err, ErrInsufficientRole, "role %s", role)
	}
}

func TestDeveloperOwnershipScope(t *testing.T) {
	a := newTestAuthorizer(t, map[string]OwnerFunc{
		auth.ObjectTask: staticOwners(map[string]string{
			"t-mine":       "dev-1",
			"t-theirs":     "dev-2",
			"t-unassigned": "",
		}),
	})
	ctx := context.Background()
	dev := principalWith("dev-1", "developer")

	assert.NoError(t, a.Evaluate(ctx, dev, auth.ObjectTask, auth.ActionList, ""))
	assert.NoError(t, a.Evaluate(ctx, dev, auth.ObjectProject, auth.ActionRead, ""))

	assert.NoError(t, a.Evaluate(ctx, dev, auth.ObjectTask, auth.ActionRead, "t-mine"))
	assert.NoError(t, a.Evaluate(ctx, dev, auth.ObjectTask, auth.ActionUpdate, "t-mine"))

	assert.ErrorIs(t, a.Evaluate(ctx, dev, auth.ObjectTask, auth.ActionRead, "t-theirs"), ErrNotOwner)
	assert.ErrorIs(t, a.Evaluate(ctx, dev, auth.ObjectTask, auth.ActionUpdate, "t-theirs"), ErrNotOwner)
	assert.ErrorIs(t, a.Evaluate(ctx, dev, auth.ObjectTask, auth.ActionUpdate, "t-unassigned"), ErrNotOwner)

	assert.ErrorIs(t, a.Evaluate(ctx, dev, auth.ObjectTask, auth.ActionCreate, ""), ErrInsufficientRole)
	assert.ErrorIs(t, a.Evaluate(ctx, dev, auth.ObjectTask, auth.ActionDelete, "t-mine"), ErrInsufficientRole)
	assert.ErrorIs(t, a.Evaluate(ctx, dev, auth.ObjectProject, auth.ActionUpdate, "p-1"), ErrInsufficientRole)
}

func TestAbsentResourceIsDenyNotError(t *testing.T) {
	a := newTestAuthorizer(t, map[string]OwnerFunc{
		auth.ObjectTask: staticOwners(map[string]string{}),
	})
	dev := principalWith("dev-1", "developer")

	err := a.Evaluate(context.Background(), dev, auth.ObjectTask, auth.ActionUpdate, "t-gone")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestContractorListingOnly(t *testing.T) {
	a := newTestAuthorizer(t, map[string]OwnerFunc{
		auth.ObjectTask: staticOwners(map[string]string{"t-1": "con-1"}),
	})
	ctx := context.Background()
	con := principalWith("con-1", "contractor")

	assert.NoError(t, a.Evaluate(ctx, con, auth.ObjectProject, auth.ActionList, ""))
	assert.NoError(t, a.Evaluate(ctx, con, auth.ObjectTask, auth.ActionList, ""))

	assert.ErrorIs(t, a.Evaluate(ctx, con, auth.ObjectTask, auth.ActionRead, "t-1"), ErrInsufficientRole)
	assert.ErrorIs(t, a.Evaluate(ctx, con, auth.ObjectTask, auth.ActionUpdate, "t-1"), ErrInsufficientRole)
	assert.ErrorIs(t, a.Evaluate(ctx, con, auth.ObjectProject, auth.ActionCreate, ""), ErrInsufficientRole)
}

func TestAnonymousOrRolelessDenied(t *testing.T) {
	a := newTestAuthorizer(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, a.Evaluate(ctx, nil, auth.ObjectTask, auth.ActionList, ""), ErrInsufficientRole)
	assert.ErrorIs(t, a.Evaluate(ctx, principalWith("p1"), auth.ObjectTask, auth.ActionList, ""), ErrInsufficientRole)
}

func TestMultiRolePrincipalUsesStrongestRole(t *testing.T) {
	a := newTestAuthorizer(t, nil)
	p := principalWith("p1", "contractor", "manager")

	assert.NoError(t, a.Evaluate(context.Background(), p, auth.ObjectTask, auth.ActionDelete, "t-1"))
}
