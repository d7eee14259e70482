package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/workstack/workstack/internal/db/models"
)

//go:embed model.conf
var casbinModelContent string

// rolePolicies is the fixed role → permission table. The "*" action grants
// every action on the object; the OwnSuffix variants only apply when the
// resource owner matches the acting principal (enforced by the authorizer).
var rolePolicies = map[string][][2]string{
	models.RoleAdmin: {
		{ObjectProject, "*"},
		{ObjectTask, "*"},
		{ObjectUser, ActionManage},
	},
	models.RoleManager: {
		{ObjectProject, "*"},
		{ObjectTask, "*"},
	},
	models.RoleDeveloper: {
		{ObjectProject, ActionList},
		{ObjectProject, ActionRead},
		{ObjectTask, ActionList},
		{ObjectTask, ActionRead + OwnSuffix},
		{ObjectTask, ActionUpdate + OwnSuffix},
	},
	models.RoleContractor: {
		{ObjectProject, ActionList},
		{ObjectTask, ActionList},
	},
}

// InitEnforcer creates a Casbin enforcer with the embedded model and the
// fixed policy table, then verifies that every enumerated role is covered.
// A role without policies fails startup instead of surprising the first
// request that uses it.
func InitEnforcer() (casbin.IEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	for role, perms := range rolePolicies {
		for _, perm := range perms {
			if _, err := enforcer.AddPolicy(role, perm[0], perm[1]); err != nil {
				return nil, fmt.Errorf("add policy for role %s: %w", role, err)
			}
		}
	}

	if err := verifyRoleCoverage(); err != nil {
		return nil, err
	}

	return enforcer, nil
}

// verifyRoleCoverage ensures the policy table covers the full role set.
func verifyRoleCoverage() error {
	for _, role := range models.AllRoles() {
		if len(rolePolicies[role]) == 0 {
			return fmt.Errorf("role %s has no authorization policies configured", role)
		}
	}
	return nil
}
