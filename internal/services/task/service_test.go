package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/cache"
	"github.com/workstack/workstack/internal/config"
	"github.com/workstack/workstack/internal/db/bunx"
	"github.com/workstack/workstack/internal/db/models"
	"github.com/workstack/workstack/internal/migrations"
	"github.com/workstack/workstack/internal/repository"
	"github.com/workstack/workstack/internal/services/iam"
)

type fixture struct {
	svc     *Service
	project *models.Project
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := bunx.NewDB(":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	projectRepo := repository.NewBunProjectRepository(db)
	taskRepo := repository.NewBunTaskRepository(db)
	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)
	authorizer := iam.NewAuthorizer(enforcer, map[string]iam.OwnerFunc{
		auth.ObjectProject: projectRepo.GetOwnerID,
		auth.ObjectTask:    taskRepo.GetAssigneeID,
	})
	coordinator := cache.NewCoordinator(config.CacheConfig{MaxEntriesPerRegion: 100, TTL: time.Minute}, cache.Regions())

	project := &models.Project{Name: "apollo", OwnerID: "mgr-1", Status: models.ProjectStatusActive}
	require.NoError(t, projectRepo.Create(ctx, project))

	return &fixture{
		svc:     NewService(taskRepo, projectRepo, authorizer, coordinator),
		project: project,
	}
}

func ctxAs(id string, roles ...string) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{ID: id, Username: "u-" + id, Roles: roles})
}

func (f *fixture) createTask(t *testing.T, ctx context.Context, title string, assigneeID *string) *models.Task {
	t.Helper()
	created, err := f.svc.Create(ctx, CreateInput{
		Title:      title,
		ProjectID:  f.project.ID,
		AssigneeID: assigneeID,
	})
	require.NoError(t, err)
	return created
}

func TestCreateRequiresExistingProject(t *testing.T) {
	f := setupFixture(t)
	mgr := ctxAs("mgr-1", models.RoleManager)

	_, err := f.svc.Create(mgr, CreateInput{Title: "orphan", ProjectID: "00000000-0000-0000-0000-000000000000"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeveloperOwnTaskAccess(t *testing.T) {
	f := setupFixture(t)
	mgr := ctxAs("mgr-1", models.RoleManager)
	dev1 := "dev-1"
	created := f.createTask(t, mgr, "wire auth", &dev1)

	mine := ctxAs("dev-1", models.RoleDeveloper)
	got, err := f.svc.Get(mine, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "wire auth", got.Title)

	status := models.TaskStatusInProgress
	updated, err := f.svc.Update(mine, created.ID, UpdateInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, updated.Status)

	other := ctxAs("dev-2", models.RoleDeveloper)
	_, err = f.svc.Get(other, created.ID)
	assert.ErrorIs(t, err, iam.ErrNotOwner)
	_, err = f.svc.Update(other, created.ID, UpdateInput{Status: &status})
	assert.ErrorIs(t, err, iam.ErrNotOwner)

	// Reassignment is a manager action, even on the developer's own task.
	dev2 := "dev-2"
	_, err = f.svc.Assign(mine, created.ID, &dev2)
	assert.ErrorIs(t, err, iam.ErrInsufficientRole)
	_, err = f.svc.Assign(mgr, created.ID, &dev2)
	assert.NoError(t, err)
}

func TestContractorListingOnly(t *testing.T) {
	f := setupFixture(t)
	mgr := ctxAs("mgr-1", models.RoleManager)
	created := f.createTask(t, mgr, "triage", nil)

	con := ctxAs("con-1", models.RoleContractor)
	_, err := f.svc.List(con, repository.ListParams{})
	assert.NoError(t, err)
	_, err = f.svc.Get(con, created.ID)
	assert.ErrorIs(t, err, iam.ErrInsufficientRole)
	assert.ErrorIs(t, f.svc.Delete(con, created.ID), iam.ErrInsufficientRole)
}

func TestMutationsRefreshCachedViews(t *testing.T) {
	f := setupFixture(t)
	mgr := ctxAs("mgr-1", models.RoleManager)
	created := f.createTask(t, mgr, "triage", nil)

	// Warm the collection caches.
	page, err := f.svc.List(mgr, repository.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	counts, err := f.svc.StatusCounts(mgr, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.TaskStatusTodo: 1}, counts)

	status := models.TaskStatusDone
	_, err = f.svc.Update(mgr, created.ID, UpdateInput{Status: &status})
	require.NoError(t, err)

	got, err := f.svc.Get(mgr, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, got.Status, "point cache must serve the updated value")

	page, err = f.svc.List(mgr, repository.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.TaskStatusDone, page.Items[0].Status)

	counts, err = f.svc.StatusCounts(mgr, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.TaskStatusDone: 1}, counts, "status counts must be recomputed after update")
}

func TestOverdueListing(t *testing.T) {
	f := setupFixture(t)
	mgr := ctxAs("mgr-1", models.RoleManager)

	yesterday := time.Now().Add(-24 * time.Hour)
	_, err := f.svc.Create(mgr, CreateInput{Title: "late", ProjectID: f.project.ID, DueDate: &yesterday})
	require.NoError(t, err)

	page, err := f.svc.ListOverdue(mgr, repository.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// Finishing the task removes it from the overdue view.
	status := models.TaskStatusDone
	_, err = f.svc.Update(mgr, page.Items[0].ID, UpdateInput{Status: &status})
	require.NoError(t, err)

	page, err = f.svc.ListOverdue(mgr, repository.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestDeleteDropsCachedTask(t *testing.T) {
	f := setupFixture(t)
	mgr := ctxAs("mgr-1", models.RoleManager)
	created := f.createTask(t, mgr, "triage", nil)

	_, err := f.svc.Get(mgr, created.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(mgr, created.ID))
	_, err = f.svc.Get(mgr, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
