package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Role names form a closed set. Authorization policies are registered for each
// of these at startup; an unknown role on a user record is a data error.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleDeveloper  = "developer"
	RoleContractor = "contractor"
)

// AllRoles returns every role the authorization policy set must cover.
func AllRoles() []string {
	return []string{RoleAdmin, RoleManager, RoleDeveloper, RoleContractor}
}

// Account origins. Federated accounts carry the provider name ("google",
// "github", ...); locally registered accounts carry ProviderLocal.
const ProviderLocal = "local"

// RoleList stores a user's role names as a JSON array so the same model works
// on both the PostgreSQL and SQLite dialects.
type RoleList []string

// Scan implements sql.Scanner for reading from database
func (rl *RoleList) Scan(value any) error {
	if value == nil {
		*rl = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan RoleList: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(bytes, rl)
}

// Value implements driver.Valuer for writing to database
func (rl RoleList) Value() (driver.Value, error) {
	if rl == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(rl)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Contains reports whether the list carries the given role name.
func (rl RoleList) Contains(role string) bool {
	for _, r := range rl {
		if r == role {
			return true
		}
	}
	return false
}

// User represents a principal, local or federated.
// Local accounts carry a bcrypt PasswordHash; federated accounts carry the
// provider name and the provider-issued external id instead.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk,type:uuid"`
	Username     string    `bun:"username,notnull,unique"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash *string   `bun:"password_hash"`
	Provider     string    `bun:"provider,notnull,default:'local'"`
	ProviderID   *string   `bun:"provider_id"`
	Roles        RoleList  `bun:"roles,notnull,default:'[]'"`
	Active       bool      `bun:"active,notnull,default:true"`
	Approved     bool      `bun:"approved,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// IsFederated reports whether the account originates from an external identity
// provider rather than local registration.
func (u *User) IsFederated() bool {
	return u != nil && u.Provider != ProviderLocal
}
