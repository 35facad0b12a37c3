package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
)

func newTestSeedService() (*SeedService, *fakeUsers, *fakeTasks, *fakeTx) {
	users := newFakeUsers()
	tasks := newFakeTasks()
	tx := &fakeTx{}
	svc := NewSeedService(users, tasks, &fakeTaxonomy{}, &fakeHistory{}, tx, logger.NewNop())
	svc.bcryptCost = bcrypt.MinCost
	return svc, users, tasks, tx
}

func TestLoadFixtures(t *testing.T) {
	t.Run("bundled defaults", func(t *testing.T) {
		f, err := LoadFixtures("")
		require.NoError(t, err)
		assert.NotEmpty(t, f.Users)
		assert.NotEmpty(t, f.Tasks)
	})

	t.Run("custom file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fixtures.yaml")
		doc := "users:\n  - username: carol\n    password: secret9\ntasks:\n  - title: Water plants\n    owner: carol\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

		f, err := LoadFixtures(path)
		require.NoError(t, err)
		require.Len(t, f.Users, 1)
		assert.Equal(t, "carol", f.Users[0].Username)
		assert.Equal(t, "carol", f.Tasks[0].Owner)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFixtures(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestSeedService_Seed(t *testing.T) {
	ctx := context.Background()

	t.Run("default fixtures in one transaction", func(t *testing.T) {
		svc, users, tasks, tx := newTestSeedService()
		f, err := LoadFixtures("")
		require.NoError(t, err)

		result, err := svc.Seed(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, 1, tx.calls)
		assert.Equal(t, len(f.Users), result.UsersCreated)
		assert.Equal(t, len(f.Tasks), result.Tasks)
		assert.Len(t, tasks.tasks, len(f.Tasks))

		admin, err := users.GetByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, entities.UserRoleAdmin, admin.Role)
	})

	t.Run("unknown owner aborts", func(t *testing.T) {
		svc, _, _, _ := newTestSeedService()
		f := &Fixtures{Tasks: []SeedTask{{Title: "Orphan task", Owner: "ghost"}}}

		_, err := svc.Seed(ctx, f)
		assert.ErrorContains(t, err, "unknown owner")
	})
}

func TestSeedService_EnsureUsers(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := newTestSeedService()
	accounts := []SeedUser{
		{Username: "admin", Password: "admin123", Role: entities.UserRoleAdmin},
		{Username: "user", Password: "user1234"},
	}

	first, err := svc.EnsureUsers(ctx, accounts)
	require.NoError(t, err)
	assert.Equal(t, 2, first.UsersCreated)

	second, err := svc.EnsureUsers(ctx, accounts)
	require.NoError(t, err)
	assert.Zero(t, second.UsersCreated)
	assert.Equal(t, 2, second.UsersKept)

	count, _ := users.Count(ctx)
	assert.Equal(t, int64(2), count)
}
