package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/workstack/workstack/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20260815000001, down_20260815000001)
}

// up_20260815000001 creates the users, projects, and tasks tables.
func up_20260815000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating users table...")
	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username)`)
	if err != nil {
		return fmt.Errorf("failed to create users username index: %w", err)
	}
	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email)`)
	if err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}
	// One local account per external identity.
	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_provider_identity
		ON users(provider, provider_id) WHERE provider_id IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("failed to create users provider identity index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating projects table...")
	_, err = db.NewCreateTable().
		Model((*models.Project)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create projects table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id)`)
	if err != nil {
		return fmt.Errorf("failed to create projects owner index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status)`)
	if err != nil {
		return fmt.Errorf("failed to create projects status index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating tasks table...")
	_, err = db.NewCreateTable().
		Model((*models.Task)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`)
	if err != nil {
		return fmt.Errorf("failed to create tasks project index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id)`)
	if err != nil {
		return fmt.Errorf("failed to create tasks assignee index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	if err != nil {
		return fmt.Errorf("failed to create tasks status index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260815000001 drops the tables in reverse dependency order.
func down_20260815000001(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{
		(*models.Task)(nil),
		(*models.Project)(nil),
		(*models.User)(nil),
	} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}
