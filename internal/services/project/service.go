package project

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/cache"
	"github.com/workstack/workstack/internal/db/models"
	"github.com/workstack/workstack/internal/repository"
	"github.com/workstack/workstack/internal/services/iam"
)

// Page is one page of a project listing together with the total match count.
type Page struct {
	Items []models.Project `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

// CreateInput carries the writable fields for a new project.
type CreateInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Deadline    *time.Time `json:"deadline"`
}

// UpdateInput carries the writable fields for a project update. Nil fields
// are left unchanged.
type UpdateInput struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Deadline    *time.Time `json:"deadline"`
}

// Service implements project operations. Every operation authorizes the
// calling principal before touching storage; reads go through the cache and
// writes invalidate it immediately after the storage write commits.
type Service struct {
	projects   repository.ProjectRepository
	authorizer *iam.Authorizer
	cache      *cache.Coordinator
}

// NewService creates the project service.
func NewService(projects repository.ProjectRepository, authorizer *iam.Authorizer, coordinator *cache.Coordinator) *Service {
	return &Service{projects: projects, authorizer: authorizer, cache: coordinator}
}

func (s *Service) authorize(ctx context.Context, action, resourceID string) error {
	principal, _ := auth.PrincipalFromContext(ctx)
	return s.authorizer.Evaluate(ctx, principal, auth.ObjectProject, action, resourceID)
}

// Create stores a new project owned by the calling principal.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Project, error) {
	if err := s.authorize(ctx, auth.ActionCreate, ""); err != nil {
		return nil, err
	}
	principal, _ := auth.PrincipalFromContext(ctx)

	status := input.Status
	if status == "" {
		status = models.ProjectStatusActive
	}
	project := &models.Project{
		Name:        input.Name,
		Description: input.Description,
		Status:      status,
		OwnerID:     principal.ID,
		Deadline:    input.Deadline,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.invalidateCollections()
	if err := s.cache.Put(cache.RegionProjects, project.ID, project); err != nil {
		log.Printf("project: cache put failed: %v", err)
	}
	return project, nil
}

// Get returns one project through the point cache.
func (s *Service) Get(ctx context.Context, id string) (*models.Project, error) {
	if err := s.authorize(ctx, auth.ActionRead, ""); err != nil {
		return nil, err
	}
	v, err := s.cache.GetOrCompute(ctx, cache.RegionProjects, id, func(ctx context.Context) (any, error) {
		return s.projects.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Project), nil
}

// List returns a page of projects through the collection cache. The full
// parameter signature forms the cache key.
func (s *Service) List(ctx context.Context, params repository.ListParams) (*Page, error) {
	if err := s.authorize(ctx, auth.ActionList, ""); err != nil {
		return nil, err
	}
	params = params.Normalized()
	key := cache.PageKey(strconv.Itoa(params.Page), strconv.Itoa(params.Size), params.Sort, params.Status)
	v, err := s.cache.GetOrCompute(ctx, cache.RegionProjectPages, key, func(ctx context.Context) (any, error) {
		items, total, err := s.projects.List(ctx, params)
		if err != nil {
			return nil, err
		}
		return &Page{Items: items, Total: total, Page: params.Page, Size: params.Size}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

// Update applies the given changes and refreshes the point cache.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*models.Project, error) {
	if err := s.authorize(ctx, auth.ActionUpdate, id); err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		project.Status = *input.Status
	}
	if input.Deadline != nil {
		project.Deadline = input.Deadline
	}
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	s.invalidateCollections()
	if err := s.cache.Put(cache.RegionProjects, project.ID, project); err != nil {
		log.Printf("project: cache put failed: %v", err)
	}
	return project, nil
}

// Delete removes a project and drops it from the cache.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.authorize(ctx, auth.ActionDelete, id); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCollections()
	if err := s.cache.InvalidateKey(cache.RegionProjects, id); err != nil {
		log.Printf("project: cache invalidate failed: %v", err)
	}
	return nil
}

// invalidateCollections clears every region that could hold a view of a
// project. Listing keys are open-ended, so whole regions are cleared rather
// than guessing which keys are affected.
func (s *Service) invalidateCollections() {
	for _, region := range []string{cache.RegionProjectPages, cache.RegionAdminDashboard} {
		if err := s.cache.Invalidate(region); err != nil {
			log.Printf("project: invalidate region %s: %v", region, err)
		}
	}
}
