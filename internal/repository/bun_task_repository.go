package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/workstack/workstack/internal/db/models"
)

// BunTaskRepository implements TaskRepository using Bun ORM
type BunTaskRepository struct {
	db *bun.DB
}

// NewBunTaskRepository creates a new Bun-based task repository
func NewBunTaskRepository(db *bun.DB) *BunTaskRepository {
	return &BunTaskRepository{db: db}
}

// Create inserts a new task
func (r *BunTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	task.UpdatedAt = task.CreatedAt
	_, err := r.db.NewInsert().
		Model(task).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by its ID
func (r *BunTaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	task := new(models.Task)
	err := r.db.NewSelect().
		Model(task).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get task by ID: %w", err)
	}
	return task, nil
}

// GetAssigneeID loads only the assignee column for authorization checks.
// Unassigned tasks yield an empty string.
func (r *BunTaskRepository) GetAssigneeID(ctx context.Context, id string) (string, error) {
	var assigneeID sql.NullString
	err := r.db.NewSelect().
		Model((*models.Task)(nil)).
		Column("assignee_id").
		Where("id = ?", id).
		Scan(ctx, &assigneeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("get task assignee: %w", err)
	}
	if !assigneeID.Valid {
		return "", nil
	}
	return assigneeID.String, nil
}

// Update updates an existing task
func (r *BunTaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(task).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a task by ID
func (r *BunTaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Task)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// List retrieves tasks matching the given parameter signature, along with the
// total count before paging.
func (r *BunTaskRepository) List(ctx context.Context, params ListParams) ([]models.Task, int, error) {
	params = params.Normalized()
	var tasks []models.Task
	q := r.db.NewSelect().Model(&tasks)
	if params.Status != "" {
		q = q.Where("status = ?", params.Status)
	}
	if params.ProjectID != "" {
		q = q.Where("project_id = ?", params.ProjectID)
	}
	if params.AssigneeID != "" {
		q = q.Where("assignee_id = ?", params.AssigneeID)
	}
	total, err := q.OrderExpr(sanitizeSort(params.Sort, taskSortColumns)).
		Limit(params.Size).
		Offset(params.Page * params.Size).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

// ListOverdue retrieves unfinished tasks whose due date has passed.
func (r *BunTaskRepository) ListOverdue(ctx context.Context, params ListParams) ([]models.Task, int, error) {
	params = params.Normalized()
	var tasks []models.Task
	total, err := r.db.NewSelect().
		Model(&tasks).
		Where("due_date IS NOT NULL").
		Where("due_date < ?", time.Now()).
		Where("status != ?", models.TaskStatusDone).
		OrderExpr(sanitizeSort(params.Sort, taskSortColumns)).
		Limit(params.Size).
		Offset(params.Page * params.Size).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list overdue tasks: %w", err)
	}
	return tasks, total, nil
}

// CountByStatus groups task counts by status. An empty projectID counts
// across all projects.
func (r *BunTaskRepository) CountByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	q := r.db.NewSelect().
		Model((*models.Task)(nil)).
		ColumnExpr("status").
		ColumnExpr("count(*) AS count").
		Group("status")
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Count returns the total number of tasks.
func (r *BunTaskRepository) Count(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.Task)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}
