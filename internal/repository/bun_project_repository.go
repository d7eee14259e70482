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

// BunProjectRepository implements ProjectRepository using Bun ORM
type BunProjectRepository struct {
	db *bun.DB
}

// NewBunProjectRepository creates a new Bun-based project repository
func NewBunProjectRepository(db *bun.DB) *BunProjectRepository {
	return &BunProjectRepository{db: db}
}

// Create inserts a new project
func (r *BunProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	project.UpdatedAt = project.CreatedAt
	_, err := r.db.NewInsert().
		Model(project).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by its ID
func (r *BunProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	project := new(models.Project)
	err := r.db.NewSelect().
		Model(project).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get project by ID: %w", err)
	}
	return project, nil
}

// GetOwnerID loads only the owner column for authorization checks.
func (r *BunProjectRepository) GetOwnerID(ctx context.Context, id string) (string, error) {
	var ownerID string
	err := r.db.NewSelect().
		Model((*models.Project)(nil)).
		Column("owner_id").
		Where("id = ?", id).
		Scan(ctx, &ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("get project owner: %w", err)
	}
	return ownerID, nil
}

// Update updates an existing project
func (r *BunProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(project).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a project by ID
func (r *BunProjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Project)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

// List retrieves projects matching the given parameter signature, along with
// the total count before paging.
func (r *BunProjectRepository) List(ctx context.Context, params ListParams) ([]models.Project, int, error) {
	params = params.Normalized()
	var projects []models.Project
	q := r.db.NewSelect().Model(&projects)
	if params.Status != "" {
		q = q.Where("status = ?", params.Status)
	}
	total, err := q.OrderExpr(sanitizeSort(params.Sort, projectSortColumns)).
		Limit(params.Size).
		Offset(params.Page * params.Size).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return projects, total, nil
}

// Count returns the total number of projects.
func (r *BunProjectRepository) Count(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.Project)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}
