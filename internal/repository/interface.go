package repository

import (
	"context"

	"github.com/workstack/workstack/internal/db/models"
)

// ListParams carries the full parameter signature of a listing query. The
// signature doubles as the collection-cache key, so every field that changes
// the result set must be part of it.
type ListParams struct {
	Page int
	Size int
	Sort string

	// Optional filters; empty values mean "not filtered".
	Status     string
	ProjectID  string
	AssigneeID string
}

// Normalized returns a copy with defaults applied for paging bounds.
func (p ListParams) Normalized() ListParams {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 || p.Size > 100 {
		p.Size = 20
	}
	if p.Sort == "" {
		p.Sort = "created_at DESC"
	}
	return p
}

// UserRepository exposes persistence operations for principals.
// Username, email, and (provider, provider_id) uniqueness are enforced by the
// storage schema; Create surfaces violations as ErrDuplicate.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	UpdateRoles(ctx context.Context, id string, roles models.RoleList) error
	SetApproved(ctx context.Context, id string, approved bool) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, params ListParams) ([]models.User, error)
	ListPendingApproval(ctx context.Context) ([]models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
	Count(ctx context.Context) (int, error)
}

// ProjectRepository exposes persistence operations for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	// GetOwnerID is the minimal owner-id projection used by authorization;
	// it must not load full project state.
	GetOwnerID(ctx context.Context, id string) (string, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]models.Project, int, error)
	Count(ctx context.Context) (int, error)
}

// TaskRepository exposes persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	// GetAssigneeID is the minimal owner-id projection used by authorization.
	// Returns ("", nil) for unassigned tasks, ErrNotFound for missing ones.
	GetAssigneeID(ctx context.Context, id string) (string, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]models.Task, int, error)
	ListOverdue(ctx context.Context, params ListParams) ([]models.Task, int, error)
	CountByStatus(ctx context.Context, projectID string) (map[string]int, error)
	Count(ctx context.Context) (int, error)
}
