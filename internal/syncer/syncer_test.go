// internal/syncer/syncer_test.go
package syncer

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
)

// MockStore is a mock of the syncer's Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertRepository(ctx context.Context, userID int64, repo model.RemoteRepository) (model.Repository, error) {
	args := m.Called(ctx, userID, repo)
	return args.Get(0).(model.Repository), args.Error(1)
}
func (m *MockStore) GetRepository(ctx context.Context, userID, repoID int64) (model.Repository, error) {
	args := m.Called(ctx, userID, repoID)
	return args.Get(0).(model.Repository), args.Error(1)
}
func (m *MockStore) ListActiveRepositories(ctx context.Context, userID int64) ([]model.Repository, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Repository), args.Error(1)
}
func (m *MockStore) UpdateLastSynced(ctx context.Context, repoID int64, ts time.Time) error {
	args := m.Called(ctx, repoID, ts)
	return args.Error(0)
}
func (m *MockStore) InsertCommit(ctx context.Context, c model.Commit) (bool, error) {
	args := m.Called(ctx, c)
	return args.Bool(0), args.Error(1)
}

// MockGitHub is a mock of the GitHubClient interface.
type MockGitHub struct {
	mock.Mock
}

func (m *MockGitHub) ListAllRepositories(ctx context.Context) ([]model.RemoteRepository, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.RemoteRepository), args.Error(1)
}
func (m *MockGitHub) ListCommitsWithDetails(ctx context.Context, owner, name, branch string, since time.Time) ([]model.RemoteCommit, error) {
	args := m.Called(ctx, owner, name, branch, since)
	return args.Get(0).([]model.RemoteCommit), args.Error(1)
}

func testSyncer(store *MockStore) *Syncer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s := New(store, logger, 30)
	s.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func remoteCommit(sha string) model.RemoteCommit {
	return model.RemoteCommit{
		SHA:         sha,
		Message:     "feat: " + sha,
		AuthorName:  "tester",
		AuthorEmail: "t@t.com",
		CommittedAt: time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC),
	}
}

func TestSyncer_SyncAll(t *testing.T) {
	ctx := context.Background()

	repo := model.Repository{
		ID:            1,
		UserID:        7,
		Name:          "test-repo",
		FullName:      "test-owner/test-repo",
		Owner:         "test-owner",
		DefaultBranch: "main",
		IsActive:      true,
	}

	t.Run("counts new and skipped commits separately", func(t *testing.T) {
		store := new(MockStore)
		gh := new(MockGitHub)
		s := testSyncer(store)

		store.On("ListActiveRepositories", ctx, int64(7)).Return([]model.Repository{repo}, nil).Once()
		gh.On("ListCommitsWithDetails", ctx, "test-owner", "test-repo", "main", mock.Anything).
			Return([]model.RemoteCommit{remoteCommit("abc"), remoteCommit("def"), remoteCommit("ghi")}, nil).Once()
		store.On("InsertCommit", ctx, mock.Anything).Return(true, nil).Twice()
		store.On("InsertCommit", ctx, mock.Anything).Return(false, nil).Once()
		store.On("UpdateLastSynced", ctx, int64(1), s.now()).Return(nil).Once()

		items, err := s.SyncAll(ctx, gh, 7)

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "test-repo", items[0].Repository)
		assert.Equal(t, 2, items[0].NewCommits)
		assert.Equal(t, 1, items[0].Skipped)
		assert.Equal(t, 3, items[0].Total)
		assert.Empty(t, items[0].Error)
		store.AssertExpectations(t)
	})

	t.Run("uses last synced time as the since boundary", func(t *testing.T) {
		store := new(MockStore)
		gh := new(MockGitHub)
		s := testSyncer(store)

		lastSynced := time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC)
		synced := repo
		synced.LastSyncedAt = sql.NullTime{Time: lastSynced, Valid: true}

		store.On("ListActiveRepositories", ctx, int64(7)).Return([]model.Repository{synced}, nil).Once()
		gh.On("ListCommitsWithDetails", ctx, "test-owner", "test-repo", "main", lastSynced).
			Return([]model.RemoteCommit{}, nil).Once()
		store.On("UpdateLastSynced", ctx, int64(1), s.now()).Return(nil).Once()

		_, err := s.SyncAll(ctx, gh, 7)

		require.NoError(t, err)
		gh.AssertExpectations(t)
	})

	t.Run("falls back to the default window when never synced", func(t *testing.T) {
		store := new(MockStore)
		gh := new(MockGitHub)
		s := testSyncer(store)

		expectedSince := s.now().Add(-30 * 24 * time.Hour)
		store.On("ListActiveRepositories", ctx, int64(7)).Return([]model.Repository{repo}, nil).Once()
		gh.On("ListCommitsWithDetails", ctx, "test-owner", "test-repo", "main", expectedSince).
			Return([]model.RemoteCommit{}, nil).Once()
		store.On("UpdateLastSynced", ctx, int64(1), s.now()).Return(nil).Once()

		_, err := s.SyncAll(ctx, gh, 7)

		require.NoError(t, err)
		gh.AssertExpectations(t)
	})

	t.Run("advances last synced even when nothing new arrived", func(t *testing.T) {
		store := new(MockStore)
		gh := new(MockGitHub)
		s := testSyncer(store)

		store.On("ListActiveRepositories", ctx, int64(7)).Return([]model.Repository{repo}, nil).Once()
		gh.On("ListCommitsWithDetails", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]model.RemoteCommit{}, nil).Once()
		store.On("UpdateLastSynced", ctx, int64(1), s.now()).Return(nil).Once()

		items, err := s.SyncAll(ctx, gh, 7)

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 0, items[0].NewCommits)
		store.AssertExpectations(t)
	})

	t.Run("one failing repository does not abort the rest", func(t *testing.T) {
		store := new(MockStore)
		gh := new(MockGitHub)
		s := testSyncer(store)

		broken := repo
		broken.ID = 2
		broken.Name = "broken-repo"
		broken.FullName = "test-owner/broken-repo"

		store.On("ListActiveRepositories", ctx, int64(7)).Return([]model.Repository{broken, repo}, nil).Once()
		gh.On("ListCommitsWithDetails", ctx, "test-owner", "broken-repo", "main", mock.Anything).
			Return([]model.RemoteCommit(nil), errors.New("github unavailable")).Once()
		gh.On("ListCommitsWithDetails", ctx, "test-owner", "test-repo", "main", mock.Anything).
			Return([]model.RemoteCommit{remoteCommit("abc")}, nil).Once()
		store.On("InsertCommit", ctx, mock.Anything).Return(true, nil).Once()
		store.On("UpdateLastSynced", ctx, int64(1), s.now()).Return(nil).Once()

		items, err := s.SyncAll(ctx, gh, 7)

		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "broken-repo", items[0].Repository)
		assert.Equal(t, "Failed to sync", items[0].Error)
		assert.Equal(t, "test-repo", items[1].Repository)
		assert.Equal(t, 1, items[1].NewCommits)
		store.AssertNotCalled(t, "UpdateLastSynced", ctx, int64(2), mock.Anything)
	})
}

func TestSyncer_SyncOne(t *testing.T) {
	ctx := context.Background()

	t.Run("propagates access denied from the store", func(t *testing.T) {
		store := new(MockStore)
		gh := new(MockGitHub)
		s := testSyncer(store)

		denied := &apperrors.ErrAccessDenied{Resource: "repository"}
		store.On("GetRepository", ctx, int64(7), int64(99)).Return(model.Repository{}, denied).Once()

		_, err := s.SyncOne(ctx, gh, 7, 99)

		var target *apperrors.ErrAccessDenied
		assert.ErrorAs(t, err, &target)
		gh.AssertNotCalled(t, "ListCommitsWithDetails")
	})
}

func TestSyncer_ImportRepositories(t *testing.T) {
	ctx := context.Background()

	remote := model.RemoteRepository{
		GithubRepoID:  12345,
		Name:          "test-repo",
		FullName:      "test-owner/test-repo",
		Owner:         "test-owner",
		DefaultBranch: "main",
	}
	other := model.RemoteRepository{
		GithubRepoID:  67890,
		Name:          "other-repo",
		FullName:      "test-owner/other-repo",
		Owner:         "test-owner",
		DefaultBranch: "main",
	}

	t.Run("imports only the selected repositories", func(t *testing.T) {
		store := new(MockStore)
		gh := new(MockGitHub)
		s := testSyncer(store)

		gh.On("ListAllRepositories", ctx).Return([]model.RemoteRepository{remote, other}, nil).Once()
		store.On("UpsertRepository", ctx, int64(7), remote).
			Return(model.Repository{ID: 1, DefaultBranch: "main"}, nil).Once()
		gh.On("ListCommitsWithDetails", ctx, "test-owner", "test-repo", "main", mock.Anything).
			Return([]model.RemoteCommit{remoteCommit("abc"), remoteCommit("def")}, nil).Once()
		store.On("InsertCommit", ctx, mock.Anything).Return(true, nil).Twice()

		items, err := s.ImportRepositories(ctx, gh, 7, []int64{12345})

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "test-repo", items[0].Name)
		assert.Equal(t, 2, items[0].CommitCount)
		store.AssertNotCalled(t, "UpsertRepository", ctx, int64(7), other)
	})

	t.Run("returns not found when no requested id matches", func(t *testing.T) {
		store := new(MockStore)
		gh := new(MockGitHub)
		s := testSyncer(store)

		gh.On("ListAllRepositories", ctx).Return([]model.RemoteRepository{remote}, nil).Once()

		_, err := s.ImportRepositories(ctx, gh, 7, []int64{404404})

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		store.AssertNotCalled(t, "UpsertRepository")
	})

	t.Run("reports a per-item error when one import fails", func(t *testing.T) {
		store := new(MockStore)
		gh := new(MockGitHub)
		s := testSyncer(store)

		gh.On("ListAllRepositories", ctx).Return([]model.RemoteRepository{remote, other}, nil).Once()
		store.On("UpsertRepository", ctx, int64(7), remote).
			Return(model.Repository{}, errors.New("db down")).Once()
		store.On("UpsertRepository", ctx, int64(7), other).
			Return(model.Repository{ID: 2, DefaultBranch: "main"}, nil).Once()
		gh.On("ListCommitsWithDetails", ctx, "test-owner", "other-repo", "main", mock.Anything).
			Return([]model.RemoteCommit{remoteCommit("abc")}, nil).Once()
		store.On("InsertCommit", ctx, mock.Anything).Return(true, nil).Once()

		items, err := s.ImportRepositories(ctx, gh, 7, []int64{12345, 67890})

		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Failed to import commits", items[0].Error)
		assert.Empty(t, items[1].Error)
		assert.Equal(t, 1, items[1].CommitCount)
	})
}
