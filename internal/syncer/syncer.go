// internal/syncer/syncer.go
package syncer

import (
	"context"
	"log/slog"
	"time"

	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
)

// Store is the slice of the persistence layer the syncer needs.
type Store interface {
	UpsertRepository(ctx context.Context, userID int64, repo model.RemoteRepository) (model.Repository, error)
	GetRepository(ctx context.Context, userID, repoID int64) (model.Repository, error)
	ListActiveRepositories(ctx context.Context, userID int64) ([]model.Repository, error)
	UpdateLastSynced(ctx context.Context, repoID int64, ts time.Time) error
	InsertCommit(ctx context.Context, c model.Commit) (bool, error)
}

// GitHubClient is the slice of the GitHub wrapper the syncer needs. A client
// is created per request from the calling user's stored token.
type GitHubClient interface {
	ListAllRepositories(ctx context.Context) ([]model.RemoteRepository, error)
	ListCommitsWithDetails(ctx context.Context, owner, name, branch string, since time.Time) ([]model.RemoteCommit, error)
}

// Syncer orchestrates repository import and incremental commit sync.
type Syncer struct {
	store  Store
	logger *slog.Logger
	window time.Duration
	now    func() time.Time
}

// New creates a Syncer. windowDays bounds the history fetched for
// repositories that have never been synced.
func New(store Store, logger *slog.Logger, windowDays int) *Syncer {
	return &Syncer{
		store:  store,
		logger: logger,
		window: time.Duration(windowDays) * 24 * time.Hour,
		now:    time.Now,
	}
}

// ImportItem is the per-repository outcome of an import request.
type ImportItem struct {
	Name        string `json:"name"`
	CommitCount int    `json:"commitCount"`
	Error       string `json:"error,omitempty"`
}

// ImportRepositories connects the requested remote repositories and pulls
// their recent history. One repository failing does not abort the rest;
// failures are reported inline per item.
func (s *Syncer) ImportRepositories(ctx context.Context, gh GitHubClient, userID int64, repositoryIDs []int64) ([]ImportItem, error) {
	remotes, err := gh.ListAllRepositories(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[int64]bool, len(repositoryIDs))
	for _, id := range repositoryIDs {
		wanted[id] = true
	}

	var selected []model.RemoteRepository
	for _, remote := range remotes {
		if wanted[remote.GithubRepoID] {
			selected = append(selected, remote)
		}
	}
	if len(selected) == 0 {
		return nil, apperrors.ErrNotFound
	}

	since := s.now().Add(-s.window)
	items := make([]ImportItem, 0, len(selected))

	for _, remote := range selected {
		logger := s.logger.With("repo", remote.FullName)
		logger.Info("Importing repository")

		item, err := s.importOne(ctx, gh, userID, remote, since)
		if err != nil {
			logger.Error("Failed to import repository", "error", err)
			items = append(items, ImportItem{Name: remote.Name, Error: "Failed to import commits"})
			continue
		}
		logger.Info("Imported repository", "commits", item.CommitCount)
		items = append(items, item)
	}

	return items, nil
}

func (s *Syncer) importOne(ctx context.Context, gh GitHubClient, userID int64, remote model.RemoteRepository, since time.Time) (ImportItem, error) {
	repo, err := s.store.UpsertRepository(ctx, userID, remote)
	if err != nil {
		return ImportItem{}, err
	}

	commits, err := gh.ListCommitsWithDetails(ctx, remote.Owner, remote.Name, remote.DefaultBranch, since)
	if err != nil {
		return ImportItem{}, err
	}

	for _, commit := range commits {
		if _, err := s.store.InsertCommit(ctx, toStoredCommit(repo, commit)); err != nil {
			return ImportItem{}, err
		}
	}

	return ImportItem{Name: remote.Name, CommitCount: len(commits)}, nil
}

// SyncItem is the per-repository outcome of a sync request.
type SyncItem struct {
	Repository string `json:"repository"`
	NewCommits int    `json:"newCommits"`
	Skipped    int    `json:"skipped"`
	Total      int    `json:"total"`
	Error      string `json:"error,omitempty"`
}

// SyncAll incrementally syncs every active repository of the user.
func (s *Syncer) SyncAll(ctx context.Context, gh GitHubClient, userID int64) ([]SyncItem, error) {
	repos, err := s.store.ListActiveRepositories(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.syncRepositories(ctx, gh, repos), nil
}

// SyncOne syncs a single repository, which must belong to the user.
func (s *Syncer) SyncOne(ctx context.Context, gh GitHubClient, userID, repoID int64) ([]SyncItem, error) {
	repo, err := s.store.GetRepository(ctx, userID, repoID)
	if err != nil {
		return nil, err
	}
	return s.syncRepositories(ctx, gh, []model.Repository{repo}), nil
}

func (s *Syncer) syncRepositories(ctx context.Context, gh GitHubClient, repos []model.Repository) []SyncItem {
	items := make([]SyncItem, 0, len(repos))
	for _, repo := range repos {
		logger := s.logger.With("repo", repo.FullName)
		logger.Info("Syncing repository")

		item, err := s.syncRepository(ctx, gh, repo)
		if err != nil {
			logger.Error("Failed to sync repository", "error", err)
			items = append(items, SyncItem{Repository: repo.Name, Error: "Failed to sync"})
			continue
		}
		logger.Info("Synced repository", "new", item.NewCommits, "skipped", item.Skipped)
		items = append(items, item)
	}
	return items
}

// syncRepository pulls commits since the repository's last sync (or the
// default window if never synced), stores unseen ones, and advances
// last_synced_at unconditionally so the same window is not re-scanned.
func (s *Syncer) syncRepository(ctx context.Context, gh GitHubClient, repo model.Repository) (SyncItem, error) {
	since := s.now().Add(-s.window)
	if repo.LastSyncedAt.Valid {
		since = repo.LastSyncedAt.Time
	}

	commits, err := gh.ListCommitsWithDetails(ctx, repo.Owner, repo.Name, repo.DefaultBranch, since)
	if err != nil {
		return SyncItem{}, err
	}

	var added, skipped int
	for _, commit := range commits {
		inserted, err := s.store.InsertCommit(ctx, toStoredCommit(repo, commit))
		if err != nil {
			return SyncItem{}, err
		}
		if inserted {
			added++
		} else {
			skipped++
		}
	}

	if err := s.store.UpdateLastSynced(ctx, repo.ID, s.now()); err != nil {
		return SyncItem{}, err
	}

	return SyncItem{
		Repository: repo.Name,
		NewCommits: added,
		Skipped:    skipped,
		Total:      len(commits),
	}, nil
}

// TotalNewCommits sums the added counts across sync results.
func TotalNewCommits(items []SyncItem) int {
	var total int
	for _, item := range items {
		total += item.NewCommits
	}
	return total
}

func toStoredCommit(repo model.Repository, c model.RemoteCommit) model.Commit {
	return model.Commit{
		RepositoryID: repo.ID,
		SHA:          c.SHA,
		Message:      c.Message,
		AuthorName:   c.AuthorName,
		AuthorEmail:  c.AuthorEmail,
		CommittedAt:  c.CommittedAt,
		FilesChanged: c.FilesChanged,
		Additions:    c.Additions,
		Deletions:    c.Deletions,
		URL:          c.URL,
		Branch:       repo.DefaultBranch,
	}
}
