package task

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

// Page is one page of a task listing together with the total match count.
type Page struct {
	Items []models.Task `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

// CreateInput carries the writable fields for a new task.
type CreateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	ProjectID   string     `json:"projectId"`
	AssigneeID  *string    `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateInput carries the writable fields for a task update. Nil fields are
// left unchanged.
type UpdateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
}

// Service implements task operations with authorization composed around each
// one and read-through caching on lookups and listings. Developers may only
// read and update tasks assigned to them; assignment itself is a manager
// action.
type Service struct {
	tasks      repository.TaskRepository
	projects   repository.ProjectRepository
	authorizer *iam.Authorizer
	cache      *cache.Coordinator
}

// NewService creates the task service.
func NewService(tasks repository.TaskRepository, projects repository.ProjectRepository, authorizer *iam.Authorizer, coordinator *cache.Coordinator) *Service {
	return &Service{tasks: tasks, projects: projects, authorizer: authorizer, cache: coordinator}
}

func (s *Service) authorize(ctx context.Context, action, resourceID string) error {
	principal, _ := auth.PrincipalFromContext(ctx)
	return s.authorizer.Evaluate(ctx, principal, auth.ObjectTask, action, resourceID)
}

// Create stores a new task under an existing project.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Task, error) {
	if err := s.authorize(ctx, auth.ActionCreate, ""); err != nil {
		return nil, err
	}
	if _, err := s.projects.GetByID(ctx, input.ProjectID); err != nil {
		return nil, fmt.Errorf("resolve project %s: %w", input.ProjectID, err)
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		ProjectID:   input.ProjectID,
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.invalidateCollections()
	if err := s.cache.Put(cache.RegionTasks, task.ID, task); err != nil {
		log.Printf("task: cache put failed: %v", err)
	}
	return task, nil
}

// Get returns one task through the point cache. Developers are restricted to
// their own tasks by the ownership-scoped policy.
func (s *Service) Get(ctx context.Context, id string) (*models.Task, error) {
	if err := s.authorize(ctx, auth.ActionRead, id); err != nil {
		return nil, err
	}
	v, err := s.cache.GetOrCompute(ctx, cache.RegionTasks, id, func(ctx context.Context) (any, error) {
		return s.tasks.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Task), nil
}

// List returns a page of tasks through the collection cache.
func (s *Service) List(ctx context.Context, params repository.ListParams) (*Page, error) {
	if err := s.authorize(ctx, auth.ActionList, ""); err != nil {
		return nil, err
	}
	params = params.Normalized()
	key := cache.PageKey(
		strconv.Itoa(params.Page), strconv.Itoa(params.Size), params.Sort,
		params.Status, params.ProjectID, params.AssigneeID,
	)
	v, err := s.cache.GetOrCompute(ctx, cache.RegionTaskPages, key, func(ctx context.Context) (any, error) {
		items, total, err := s.tasks.List(ctx, params)
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

// ListOverdue returns a page of unfinished tasks past their due date.
func (s *Service) ListOverdue(ctx context.Context, params repository.ListParams) (*Page, error) {
	if err := s.authorize(ctx, auth.ActionList, ""); err != nil {
		return nil, err
	}
	params = params.Normalized()
	key := cache.PageKey(strconv.Itoa(params.Page), strconv.Itoa(params.Size), params.Sort)
	v, err := s.cache.GetOrCompute(ctx, cache.RegionOverdueTaskPages, key, func(ctx context.Context) (any, error) {
		items, total, err := s.tasks.ListOverdue(ctx, params)
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

// StatusCounts returns task counts grouped by status, optionally scoped to a
// project, through the counts cache.
func (s *Service) StatusCounts(ctx context.Context, projectID string) (map[string]int, error) {
	if err := s.authorize(ctx, auth.ActionList, ""); err != nil {
		return nil, err
	}
	v, err := s.cache.GetOrCompute(ctx, cache.RegionTaskStatusCounts, projectID, func(ctx context.Context) (any, error) {
		return s.tasks.CountByStatus(ctx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]int), nil
}

// Update applies the given changes and refreshes the point cache.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*models.Task, error) {
	if err := s.authorize(ctx, auth.ActionUpdate, id); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	s.invalidateCollections()
	if err := s.cache.Put(cache.RegionTasks, task.ID, task); err != nil {
		log.Printf("task: cache put failed: %v", err)
	}
	return task, nil
}

// Assign sets or clears the task's assignee. Assignment is not an
// ownership-scoped action, so developers cannot reassign their own tasks.
func (s *Service) Assign(ctx context.Context, id string, assigneeID *string) (*models.Task, error) {
	if err := s.authorize(ctx, auth.ActionAssign, ""); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	task.AssigneeID = assigneeID
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("assign task: %w", err)
	}
	s.invalidateCollections()
	if err := s.cache.Put(cache.RegionTasks, task.ID, task); err != nil {
		log.Printf("task: cache put failed: %v", err)
	}
	return task, nil
}

// Delete removes a task and drops it from the cache.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.authorize(ctx, auth.ActionDelete, ""); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCollections()
	if err := s.cache.InvalidateKey(cache.RegionTasks, id); err != nil {
		log.Printf("task: cache invalidate failed: %v", err)
	}
	return nil
}

// invalidateCollections clears every region that could hold a view of a
// task. Listing keys are open-ended, so whole regions are cleared rather
// than guessing which keys are affected.
func (s *Service) invalidateCollections() {
	regions := []string{
		cache.RegionTaskPages,
		cache.RegionOverdueTaskPages,
		cache.RegionTaskStatusCounts,
		cache.RegionAdminDashboard,
	}
	for _, region := range regions {
		if err := s.cache.Invalidate(region); err != nil {
			log.Printf("task: invalidate region %s: %v", region, err)
		}
	}
}
