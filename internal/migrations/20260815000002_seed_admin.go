package migrations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/workstack/workstack/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20260815000002, down_20260815000002)
}

const defaultAdminUsername = "admin"
const defaultAdminEmail = "admin@workstack.local"

// up_20260815000002 seeds the default administrator account so a fresh
// deployment can be bootstrapped. The password must be changed immediately.
func up_20260815000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding default admin account...")

	exists, err := db.NewSelect().
		Model((*models.User)(nil)).
		Where("username = ?", defaultAdminUsername).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if exists {
		fmt.Println(" already present, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}
	hashStr := string(hash)

	admin := &models.User{
		ID:           uuid.NewString(),
		Username:     defaultAdminUsername,
		Email:        defaultAdminEmail,
		PasswordHash: &hashStr,
		Provider:     models.ProviderLocal,
		Roles:        models.RoleList{models.RoleAdmin},
		Active:       true,
		Approved:     true,
	}
	if _, err := db.NewInsert().Model(admin).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert default admin: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

func down_20260815000002(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDelete().
		Model((*models.User)(nil)).
		Where("username = ? AND email = ?", defaultAdminUsername, defaultAdminEmail).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove default admin: %w", err)
	}
	return nil
}
