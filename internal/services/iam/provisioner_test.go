package iam

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workstack/workstack/internal/db/models"
	"github.com/workstack/workstack/internal/repository"
)

// fakeUserRepo is an in-memory UserRepository that enforces username and
// email uniqueness the way the storage schema does.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int

	// beforeCreate runs inside Create before the uniqueness check, used to
	// simulate a concurrent callback winning the create race.
	beforeCreate func(r *fakeUserRepo)
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (r *fakeUserRepo) insertLocked(user *models.User) error {
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		r.seq++
		user.ID = fmt.Sprintf("user-%d", r.seq)
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beforeCreate != nil {
		hook := r.beforeCreate
		r.beforeCreate = nil
		hook(r)
	}
	return r.insertLocked(user)
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) UpdateRoles(ctx context.Context, id string, roles models.RoleList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Roles = roles
	return nil
}

func (r *fakeUserRepo) SetApproved(ctx context.Context, id string, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Approved = approved
	return nil
}

func (r *fakeUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = active
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, params repository.ListParams) ([]models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) ListPendingApproval(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func seedUser(t *testing.T, repo *fakeUserRepo, user models.User) {
	t.Helper()
	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.NoError(t, repo.insertLocked(&user))
}

func googleIdentity() ExternalIdentity {
	return ExternalIdentity{
		Provider:    "google",
		ExternalID:  "g-12345",
		Email:       "alice@example.com",
		DisplayName: "Alice",
	}
}

func TestProvisionRejectsMissingEmail(t *testing.T) {
	p := NewProvisioner(newFakeUserRepo())

	identity := googleIdentity()
	identity.Email = "   "
	_, err := p.Provision(context.Background(), identity)
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestProvisionRejectsMalformedEmail(t *testing.T) {
	p := NewProvisioner(newFakeUserRepo())

	identity := googleIdentity()
	identity.Email = "not-an-email"
	_, err := p.Provision(context.Background(), identity)
	assert.ErrorIs(t, err, ErrInvalidEmailFormat)
}

func TestProvisionCreatesNewAccount(t *testing.T) {
	repo := newFakeUserRepo()
	p := NewProvisioner(repo)

	user, err := p.Provision(context.Background(), googleIdentity())
	require.NoError(t, err)

	assert.Equal(t, "Alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "google", user.Provider)
	require.NotNil(t, user.ProviderID)
	assert.Equal(t, "g-12345", *user.ProviderID)
	assert.Equal(t, models.RoleList{models.RoleContractor}, user.Roles)
	assert.True(t, user.Active)
	assert.True(t, user.Approved)
	assert.Nil(t, user.PasswordHash)

	count, _ := repo.Count(context.Background())
	assert.Equal(t, 1, count)
}

func TestProvisionUsernameFromEmailWhenNameBlank(t *testing.T) {
	p := NewProvisioner(newFakeUserRepo())

	identity := googleIdentity()
	identity.DisplayName = ""
	user, err := p.Provision(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestProvisionUsernameCollisionSmallestSuffix(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, models.User{Username: "alice", Email: "other1@example.com", Provider: models.ProviderLocal})
	seedUser(t, repo, models.User{Username: "alice_1", Email: "other2@example.com", Provider: models.ProviderLocal})
	p := NewProvisioner(repo)

	identity := googleIdentity()
	identity.DisplayName = "alice"
	user, err := p.Provision(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, "alice_2", user.Username)
}

func TestProvisionRepeatCallbackUpdatesInPlace(t *testing.T) {
	repo := newFakeUserRepo()
	p := NewProvisioner(repo)
	ctx := context.Background()

	created, err := p.Provision(ctx, googleIdentity())
	require.NoError(t, err)

	second := googleIdentity()
	second.DisplayName = "Alice Cooper"
	updated, err := p.Provision(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Alice Cooper", updated.Username)
	count, _ := repo.Count(ctx)
	assert.Equal(t, 1, count)
}

func TestProvisionIdenticalCallbackIsNoop(t *testing.T) {
	repo := newFakeUserRepo()
	p := NewProvisioner(repo)
	ctx := context.Background()

	created, err := p.Provision(ctx, googleIdentity())
	require.NoError(t, err)

	again, err := p.Provision(ctx, googleIdentity())
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, created.Username, again.Username)
	count, _ := repo.Count(ctx)
	assert.Equal(t, 1, count)
}

func TestProvisionProviderConflict(t *testing.T) {
	repo := newFakeUserRepo()
	p := NewProvisioner(repo)
	ctx := context.Background()

	_, err := p.Provision(ctx, googleIdentity())
	require.NoError(t, err)

	identity := googleIdentity()
	identity.Provider = "github"
	identity.ExternalID = "gh-99"
	_, err = p.Provision(ctx, identity)
	assert.ErrorIs(t, err, ErrProviderConflict)
}

func TestProvisionConflictAgainstLocalAccount(t *testing.T) {
	repo := newFakeUserRepo()
	hash := "x"
	seedUser(t, repo, models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		Provider:     models.ProviderLocal,
		PasswordHash: &hash,
	})
	p := NewProvisioner(repo)

	_, err := p.Provision(context.Background(), googleIdentity())
	assert.ErrorIs(t, err, ErrProviderConflict)
}

func TestProvisionCreateRaceFallsBackToUpdate(t *testing.T) {
	repo := newFakeUserRepo()
	// The competing callback lands between the email lookup and the insert.
	repo.beforeCreate = func(r *fakeUserRepo) {
		providerID := "g-12345"
		_ = r.insertLocked(&models.User{
			Username:   "Alice",
			Email:      "alice@example.com",
			Provider:   "google",
			ProviderID: &providerID,
			Roles:      models.RoleList{models.RoleContractor},
			Active:     true,
			Approved:   true,
		})
	}
	p := NewProvisioner(repo)

	user, err := p.Provision(context.Background(), googleIdentity())
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Username)

	count, _ := repo.Count(context.Background())
	assert.Equal(t, 1, count, "race must resolve to exactly one account")
}
