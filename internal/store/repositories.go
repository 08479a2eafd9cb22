package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
)

const repositoryColumns = `id, user_id, github_repo_id, name, full_name, owner, url,
	default_branch, language, is_active, is_private, webhook_id, last_synced_at, created_at`

func scanRepository(row pgx.Row) (model.Repository, error) {
	var r model.Repository
	err := row.Scan(&r.ID, &r.UserID, &r.GithubRepoID, &r.Name, &r.FullName, &r.Owner,
		&r.URL, &r.DefaultBranch, &r.Language, &r.IsActive, &r.IsPrivate,
		&r.WebhookID, &r.LastSyncedAt, &r.CreatedAt)
	return r, err
}

// UpsertRepository connects a remote repository for a user. Reconnecting an
// existing (user, remote id) pair reactivates the stored row and refreshes
// last_synced_at instead of creating a duplicate.
func (p *Postgres) UpsertRepository(ctx context.Context, userID int64, repo model.RemoteRepository) (model.Repository, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO repositories (user_id, github_repo_id, name, full_name, owner, url,
			default_branch, language, is_active, is_private, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, NOW())
		ON CONFLICT (user_id, github_repo_id) DO UPDATE SET
			is_active      = TRUE,
			last_synced_at = NOW()
		RETURNING `+repositoryColumns,
		userID, repo.GithubRepoID, repo.Name, repo.FullName, repo.Owner, repo.URL,
		repo.DefaultBranch, repo.Language, repo.IsPrivate)

	r, err := scanRepository(row)
	if err != nil {
		return model.Repository{}, fmt.Errorf("upsert repository: %w", err)
	}
	return r, nil
}

// GetRepository returns the repository only when it belongs to the user.
func (p *Postgres) GetRepository(ctx context.Context, userID, repoID int64) (model.Repository, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+repositoryColumns+`
		FROM repositories
		WHERE id = $1 AND user_id = $2`,
		repoID, userID)

	r, err := scanRepository(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Repository{}, &apperrors.ErrAccessDenied{Resource: "repository"}
		}
		return model.Repository{}, fmt.Errorf("get repository: %w", err)
	}
	return r, nil
}

func (p *Postgres) ListRepositories(ctx context.Context, userID int64) ([]model.Repository, error) {
	return p.listRepositories(ctx, `
		SELECT `+repositoryColumns+`
		FROM repositories
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
}

func (p *Postgres) ListActiveRepositories(ctx context.Context, userID int64) ([]model.Repository, error) {
	return p.listRepositories(ctx, `
		SELECT `+repositoryColumns+`
		FROM repositories
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC`, userID)
}

func (p *Postgres) listRepositories(ctx context.Context, query string, userID int64) ([]model.Repository, error) {
	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// ListRepositoriesWithStats joins each repository with its commit counts.
// Counts are recomputed per request; acceptable at per-user data volumes.
func (p *Postgres) ListRepositoriesWithStats(ctx context.Context, userID int64) ([]model.RepositoryWithStats, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT r.id, r.user_id, r.github_repo_id, r.name, r.full_name, r.owner, r.url,
			r.default_branch, r.language, r.is_active, r.is_private, r.webhook_id,
			r.last_synced_at, r.created_at,
			COUNT(c.id) AS total_commits,
			COUNT(c.id) FILTER (WHERE NOT c.processed) AS new_commits
		FROM repositories r
		LEFT JOIN commits c ON c.repository_id = r.id
		WHERE r.user_id = $1
		GROUP BY r.id
		ORDER BY r.created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list repositories with stats: %w", err)
	}
	defer rows.Close()

	var repos []model.RepositoryWithStats
	for rows.Next() {
		var r model.RepositoryWithStats
		err := rows.Scan(&r.ID, &r.UserID, &r.GithubRepoID, &r.Name, &r.FullName, &r.Owner,
			&r.URL, &r.DefaultBranch, &r.Language, &r.IsActive, &r.IsPrivate,
			&r.WebhookID, &r.LastSyncedAt, &r.CreatedAt, &r.TotalCommits, &r.NewCommits)
		if err != nil {
			return nil, fmt.Errorf("scan repository stats: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func (p *Postgres) SetRepositoryActive(ctx context.Context, repoID int64, active bool) error {
	tag, err := p.pool.Exec(ctx, `UPDATE repositories SET is_active = $2 WHERE id = $1`, repoID, active)
	if err != nil {
		return fmt.Errorf("set repository active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteRepository disconnects a repository. Commits go with it via the
// foreign key cascade.
func (p *Postgres) DeleteRepository(ctx context.Context, repoID int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM repositories WHERE id = $1`, repoID)
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateLastSynced(ctx context.Context, repoID int64, ts time.Time) error {
	if _, err := p.pool.Exec(ctx, `UPDATE repositories SET last_synced_at = $2 WHERE id = $1`, repoID, ts); err != nil {
		return fmt.Errorf("update last synced: %w", err)
	}
	return nil
}

func (p *Postgres) SetWebhookID(ctx context.Context, repoID int64, webhookID *int64) error {
	if _, err := p.pool.Exec(ctx, `UPDATE repositories SET webhook_id = $2 WHERE id = $1`, repoID, webhookID); err != nil {
		return fmt.Errorf("set webhook id: %w", err)
	}
	return nil
}
