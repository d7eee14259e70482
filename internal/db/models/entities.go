package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Project statuses.
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

// Task statuses.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// Project is a container for tasks, owned by the manager who created it.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:p"`

	ID          string     `bun:"id,pk,type:uuid"`
	Name        string     `bun:"name,notnull"`
	Description string     `bun:"description"`
	Status      string     `bun:"status,notnull,default:'active'"`
	OwnerID     string     `bun:"owner_id,notnull,type:uuid"` // FK to users(id)
	Deadline    *time.Time `bun:"deadline"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// Task is a unit of work inside a project, optionally assigned to a developer.
// AssigneeID is the ownership anchor for developer-scoped authorization.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          string     `bun:"id,pk,type:uuid"`
	Title       string     `bun:"title,notnull"`
	Description string     `bun:"description"`
	Status      string     `bun:"status,notnull,default:'todo'"`
	ProjectID   string     `bun:"project_id,notnull,type:uuid"` // FK to projects(id)
	AssigneeID  *string    `bun:"assignee_id,type:uuid"`        // FK to users(id), nullable
	DueDate     *time.Time `bun:"due_date"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}
