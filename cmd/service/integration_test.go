//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"code-to-content/internal/model"
	"code-to-content/internal/store"
)

func setupTestStore(ctx context.Context, t *testing.T) *store.Postgres {
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, pgContainer.Terminate(ctx)) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://../../migrations", connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	pool, err := store.Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return store.NewPostgres(pool)
}

func remoteRepo(githubID int64, name string) model.RemoteRepository {
	return model.RemoteRepository{
		GithubRepoID:  githubID,
		Name:          name,
		FullName:      "test-owner/" + name,
		Owner:         "test-owner",
		URL:           "https://github.com/test-owner/" + name,
		DefaultBranch: "main",
	}
}

func storedCommit(repoID int64, sha string, committedAt time.Time) model.Commit {
	return model.Commit{
		RepositoryID: repoID,
		SHA:          sha,
		Message:      "feat: " + sha,
		AuthorName:   "tester",
		AuthorEmail:  "t@t.com",
		CommittedAt:  committedAt,
		Additions:    5,
		Deletions:    2,
		FilesChanged: 1,
		Branch:       "main",
	}
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	st := setupTestStore(ctx, t)

	user, err := st.EnsureUser(ctx, "user_123", "Tester")
	require.NoError(t, err)

	t.Run("EnsureUser is idempotent", func(t *testing.T) {
		again, err := st.EnsureUser(ctx, "user_123", "Renamed")
		require.NoError(t, err)
		assert.Equal(t, user.ID, again.ID)
		assert.Equal(t, "Renamed", again.Name)
	})

	t.Run("commit insert deduplicates per repository", func(t *testing.T) {
		repo, err := st.UpsertRepository(ctx, user.ID, remoteRepo(1001, "dedup-repo"))
		require.NoError(t, err)

		committedAt := time.Now().Add(-time.Hour).UTC()
		inserted, err := st.InsertCommit(ctx, storedCommit(repo.ID, "abc123", committedAt))
		require.NoError(t, err)
		assert.True(t, inserted)

		// Second sync over the same window sees the same sha.
		inserted, err = st.InsertCommit(ctx, storedCommit(repo.ID, "abc123", committedAt))
		require.NoError(t, err)
		assert.False(t, inserted)

		commits, err := st.ListCommitsByRepository(ctx, repo.ID, nil, 0)
		require.NoError(t, err)
		assert.Len(t, commits, 1)
	})

	t.Run("same sha in two repositories stays distinct", func(t *testing.T) {
		first, err := st.UpsertRepository(ctx, user.ID, remoteRepo(1002, "fork-a"))
		require.NoError(t, err)
		second, err := st.UpsertRepository(ctx, user.ID, remoteRepo(1003, "fork-b"))
		require.NoError(t, err)

		committedAt := time.Now().Add(-time.Hour).UTC()
		inserted, err := st.InsertCommit(ctx, storedCommit(first.ID, "shared-sha", committedAt))
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = st.InsertCommit(ctx, storedCommit(second.ID, "shared-sha", committedAt))
		require.NoError(t, err)
		assert.True(t, inserted, "forks carry the same shas and must not collide")
	})

	t.Run("reconnecting a repository reactivates it", func(t *testing.T) {
		repo, err := st.UpsertRepository(ctx, user.ID, remoteRepo(1004, "revive-repo"))
		require.NoError(t, err)

		require.NoError(t, st.SetRepositoryActive(ctx, repo.ID, false))

		again, err := st.UpsertRepository(ctx, user.ID, remoteRepo(1004, "revive-repo"))
		require.NoError(t, err)
		assert.Equal(t, repo.ID, again.ID, "reconnect must not create a second row")
		assert.True(t, again.IsActive)
	})

	t.Run("disconnect cascades to commits", func(t *testing.T) {
		repo, err := st.UpsertRepository(ctx, user.ID, remoteRepo(1005, "doomed-repo"))
		require.NoError(t, err)

		committedAt := time.Now().Add(-time.Hour).UTC()
		_, err = st.InsertCommit(ctx, storedCommit(repo.ID, "doomed-sha", committedAt))
		require.NoError(t, err)

		require.NoError(t, st.DeleteRepository(ctx, repo.ID))

		commits, err := st.ListCommitsByRepository(ctx, repo.ID, nil, 0)
		require.NoError(t, err)
		assert.Empty(t, commits)
	})

	t.Run("marking commits processed enforces ownership", func(t *testing.T) {
		repo, err := st.UpsertRepository(ctx, user.ID, remoteRepo(1006, "owned-repo"))
		require.NoError(t, err)
		_, err = st.InsertCommit(ctx, storedCommit(repo.ID, "owned-sha", time.Now().UTC()))
		require.NoError(t, err)
		commits, err := st.ListCommitsByRepository(ctx, repo.ID, nil, 0)
		require.NoError(t, err)
		require.Len(t, commits, 1)

		stranger, err := st.EnsureUser(ctx, "user_999", "Stranger")
		require.NoError(t, err)

		_, err = st.MarkCommitsProcessed(ctx, stranger.ID, []int64{commits[0].ID})
		assert.Error(t, err, "another user's commits must not be markable")

		updated, err := st.MarkCommitsProcessed(ctx, user.ID, []int64{commits[0].ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)

		processed := true
		remaining, err := st.ListCommitsByRepository(ctx, repo.ID, &processed, 0)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})

	t.Run("repository stats aggregate commit counters", func(t *testing.T) {
		repo, err := st.UpsertRepository(ctx, user.ID, remoteRepo(1007, "stats-repo"))
		require.NoError(t, err)
		base := time.Now().Add(-2 * time.Hour).UTC()
		for i, sha := range []string{"s1", "s2", "s3"} {
			_, err = st.InsertCommit(ctx, storedCommit(repo.ID, sha, base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}

		stats, err := st.GetCommitStats(ctx, repo.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.Total)
		assert.Equal(t, int64(3), stats.Unprocessed)
		assert.Equal(t, int64(15), stats.TotalAdditions)
		assert.Equal(t, int64(6), stats.TotalDeletions)
	})

	t.Run("retention sweep removes only old commits", func(t *testing.T) {
		repo, err := st.UpsertRepository(ctx, user.ID, remoteRepo(1008, "retention-repo"))
		require.NoError(t, err)

		old := time.Now().Add(-90 * 24 * time.Hour).UTC()
		recent := time.Now().Add(-time.Hour).UTC()
		_, err = st.InsertCommit(ctx, storedCommit(repo.ID, "old-sha", old))
		require.NoError(t, err)
		_, err = st.InsertCommit(ctx, storedCommit(repo.ID, "recent-sha", recent))
		require.NoError(t, err)

		deleted, err := st.DeleteCommitsOlderThan(ctx, repo.ID, time.Now().Add(-30*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		commits, err := st.ListCommitsByRepository(ctx, repo.ID, nil, 0)
		require.NoError(t, err)
		require.Len(t, commits, 1)
		assert.Equal(t, "recent-sha", commits[0].SHA)
	})

	t.Run("templates round trip with ownership checks", func(t *testing.T) {
		created, err := st.CreateTemplate(ctx, model.Template{
			UserID:    user.ID,
			Name:      "Release notes",
			Category:  "announcement",
			Structure: "## What changed\n\n## Why it matters",
		})
		require.NoError(t, err)
		assert.True(t, created.IsActive)

		stranger, err := st.EnsureUser(ctx, "user_888", "Stranger")
		require.NoError(t, err)
		_, err = st.GetTemplate(ctx, stranger.ID, created.ID)
		assert.Error(t, err)

		newName := "Release notes v2"
		updated, err := st.UpdateTemplate(ctx, store.UpdateTemplateParams{
			TemplateID: created.ID,
			Name:       &newName,
		})
		require.NoError(t, err)
		assert.Equal(t, newName, updated.Name)
		assert.Equal(t, created.Structure, updated.Structure)
	})

	t.Run("tone preset settings survive the JSONB round trip", func(t *testing.T) {
		audience := "engineering leaders"
		created, err := st.CreateTonePreset(ctx, model.TonePreset{
			UserID: user.ID,
			Name:   "Thought leader",
			Settings: model.ToneSettings{
				Formality:      "semi-formal",
				TechnicalDepth: "medium",
				Personality:    []string{"confident", "insightful"},
				TargetAudience: &audience,
			},
		})
		require.NoError(t, err)

		fetched, err := st.GetTonePreset(ctx, user.ID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Settings, fetched.Settings)
		require.NotNil(t, fetched.Settings.TargetAudience)
		assert.Equal(t, audience, *fetched.Settings.TargetAudience)
	})
}
