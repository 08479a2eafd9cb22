package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
)

const commitColumns = `id, repository_id, sha, message, author_name, author_email,
	committed_at, files_changed, additions, deletions, url, branch, processed, created_at`

func scanCommit(row pgx.Row) (model.Commit, error) {
	var c model.Commit
	err := row.Scan(&c.ID, &c.RepositoryID, &c.SHA, &c.Message, &c.AuthorName, &c.AuthorEmail,
		&c.CommittedAt, &c.FilesChanged, &c.Additions, &c.Deletions, &c.URL, &c.Branch,
		&c.Processed, &c.CreatedAt)
	return c, err
}

// InsertCommit stores a commit unless the (repository, sha) pair is already
// present. A single ON CONFLICT insert makes the added/skipped decision
// atomic, so concurrent imports cannot double-count.
func (p *Postgres) InsertCommit(ctx context.Context, c model.Commit) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO commits (repository_id, sha, message, author_name, author_email,
			committed_at, files_changed, additions, deletions, url, branch, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)
		ON CONFLICT (repository_id, sha) DO NOTHING`,
		c.RepositoryID, c.SHA, c.Message, c.AuthorName, c.AuthorEmail,
		c.CommittedAt, c.FilesChanged, c.Additions, c.Deletions, c.URL, c.Branch)
	if err != nil {
		return false, fmt.Errorf("insert commit: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) ListCommitsByRepository(ctx context.Context, repoID int64, processed *bool, limit int) ([]model.Commit, error) {
	query := `
		SELECT ` + commitColumns + `
		FROM commits
		WHERE repository_id = $1 AND ($2::BOOLEAN IS NULL OR processed = $2)
		ORDER BY committed_at DESC`
	args := []any{repoID, processed}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()
	return collectCommits(rows)
}

func (p *Postgres) ListRecentCommits(ctx context.Context, userID int64, limit int) ([]model.Commit, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT c.id, c.repository_id, c.sha, c.message, c.author_name, c.author_email,
			c.committed_at, c.files_changed, c.additions, c.deletions, c.url, c.branch,
			c.processed, c.created_at
		FROM commits c
		JOIN repositories r ON r.id = c.repository_id
		WHERE r.user_id = $1
		ORDER BY c.committed_at DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent commits: %w", err)
	}
	defer rows.Close()
	return collectCommits(rows)
}

func collectCommits(rows pgx.Rows) ([]model.Commit, error) {
	var commits []model.Commit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

// MarkCommitsProcessed flags the given commits as consumed by content
// generation. Fails if any id does not belong to the user.
func (p *Postgres) MarkCommitsProcessed(ctx context.Context, userID int64, commitIDs []int64) (int64, error) {
	if len(commitIDs) == 0 {
		return 0, nil
	}

	var foreign int64
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM commits c
		JOIN repositories r ON r.id = c.repository_id
		WHERE c.id = ANY($1) AND r.user_id <> $2`,
		commitIDs, userID).Scan(&foreign)
	if err != nil {
		return 0, fmt.Errorf("check commit ownership: %w", err)
	}
	if foreign > 0 {
		return 0, &apperrors.ErrAccessDenied{Resource: "commit"}
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE commits c
		SET processed = TRUE
		FROM repositories r
		WHERE r.id = c.repository_id AND c.id = ANY($1) AND r.user_id = $2`,
		commitIDs, userID)
	if err != nil {
		return 0, fmt.Errorf("mark commits processed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) GetCommitStats(ctx context.Context, repoID int64) (model.CommitStats, error) {
	var s model.CommitStats
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE processed),
			COUNT(*) FILTER (WHERE NOT processed),
			COALESCE(SUM(additions), 0),
			COALESCE(SUM(deletions), 0),
			COALESCE(SUM(files_changed), 0)
		FROM commits
		WHERE repository_id = $1`,
		repoID).Scan(&s.Total, &s.Processed, &s.Unprocessed,
		&s.TotalAdditions, &s.TotalDeletions, &s.TotalFiles)
	if err != nil {
		return model.CommitStats{}, fmt.Errorf("get commit stats: %w", err)
	}
	return s, nil
}

// DeleteCommitsOlderThan removes commits committed before the cutoff. Used by
// the retention sweep.
func (p *Postgres) DeleteCommitsOlderThan(ctx context.Context, repoID int64, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM commits
		WHERE repository_id = $1 AND committed_at < $2`,
		repoID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old commits: %w", err)
	}
	return tag.RowsAffected(), nil
}
