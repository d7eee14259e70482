package admin

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/cache"
	"github.com/workstack/workstack/internal/db/models"
	"github.com/workstack/workstack/internal/repository"
	"github.com/workstack/workstack/internal/services/iam"
)

// Dashboard aggregates entity counts for the administration overview.
type Dashboard struct {
	Users           int            `json:"users"`
	PendingApproval int            `json:"pendingApproval"`
	Projects        int            `json:"projects"`
	Tasks           int            `json:"tasks"`
	TasksByStatus   map[string]int `json:"tasksByStatus"`
}

// Service implements administrator-only user management and the dashboard.
type Service struct {
	users      repository.UserRepository
	projects   repository.ProjectRepository
	tasks      repository.TaskRepository
	authorizer *iam.Authorizer
	cache      *cache.Coordinator
}

// NewService creates the admin service.
func NewService(
	users repository.UserRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	authorizer *iam.Authorizer,
	coordinator *cache.Coordinator,
) *Service {
	return &Service{users: users, projects: projects, tasks: tasks, authorizer: authorizer, cache: coordinator}
}

func (s *Service) authorize(ctx context.Context) error {
	principal, _ := auth.PrincipalFromContext(ctx)
	return s.authorizer.Evaluate(ctx, principal, auth.ObjectUser, auth.ActionManage, "")
}

// ListUsers returns accounts for the user management view through the users
// cache region.
func (s *Service) ListUsers(ctx context.Context, params repository.ListParams) ([]models.User, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	params = params.Normalized()
	key := cache.PageKey(strconv.Itoa(params.Page), strconv.Itoa(params.Size), params.Sort)
	v, err := s.cache.GetOrCompute(ctx, cache.RegionUsers, key, func(ctx context.Context) (any, error) {
		return s.users.List(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.User), nil
}

// ListPendingApproval returns local accounts awaiting approval.
func (s *Service) ListPendingApproval(ctx context.Context) ([]models.User, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	return s.users.ListPendingApproval(ctx)
}

// UpdateRoles replaces a user's role set. Role names outside the enumerated
// set are rejected, and the set must not be empty.
func (s *Service) UpdateRoles(ctx context.Context, userID string, roles []string) (*models.User, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}
	for _, role := range roles {
		if !models.RoleList(models.AllRoles()).Contains(role) {
			return nil, fmt.Errorf("unknown role %q", role)
		}
	}
	if err := s.users.UpdateRoles(ctx, userID, models.RoleList(roles)); err != nil {
		return nil, err
	}
	s.invalidate()
	log.Printf("admin: updated roles of user %s to %v", userID, roles)
	return s.users.GetByID(ctx, userID)
}

// Approve marks a pending account as approved.
func (s *Service) Approve(ctx context.Context, userID string) (*models.User, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	if err := s.users.SetApproved(ctx, userID, true); err != nil {
		return nil, err
	}
	s.invalidate()
	return s.users.GetByID(ctx, userID)
}

// SetActive toggles an account's active flag. Inactive accounts cannot log in.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) (*models.User, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}
	s.invalidate()
	return s.users.GetByID(ctx, userID)
}

// GetDashboard returns cached entity counts for the overview page.
func (s *Service) GetDashboard(ctx context.Context) (*Dashboard, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	v, err := s.cache.GetOrCompute(ctx, cache.RegionAdminDashboard, "dashboard", func(ctx context.Context) (any, error) {
		return s.computeDashboard(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dashboard), nil
}

// CacheStats exposes per-region hit/miss counters for the admin API.
func (s *Service) CacheStats(ctx context.Context) (map[string]cache.Stats, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	return s.cache.AllStats(), nil
}

func (s *Service) computeDashboard(ctx context.Context) (*Dashboard, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	pending, err := s.users.ListPendingApproval(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	projects, err := s.projects.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}
	tasks, err := s.tasks.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	byStatus, err := s.tasks.CountByStatus(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	return &Dashboard{
		Users:           users,
		PendingApproval: len(pending),
		Projects:        projects,
		Tasks:           tasks,
		TasksByStatus:   byStatus,
	}, nil
}

func (s *Service) invalidate() {
	for _, region := range []string{cache.RegionUsers, cache.RegionAdminDashboard} {
		if err := s.cache.Invalidate(region); err != nil {
			log.Printf("admin: invalidate region %s: %v", region, err)
		}
	}
}
