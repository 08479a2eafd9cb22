// Package store is the Postgres persistence layer. Interfaces are split per
// entity so callers depend only on what they use; Postgres implements all of
// them over a pgx pool.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"code-to-content/internal/model"
)

// UserStore manages user accounts keyed by external identity.
type UserStore interface {
	EnsureUser(ctx context.Context, externalID, name string) (model.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (model.User, error)
}

// TokenStore manages the single GitHub token per user.
type TokenStore interface {
	UpsertToken(ctx context.Context, params UpsertTokenParams) error
	GetTokenByUserID(ctx context.Context, userID int64) (model.GitHubToken, error)
	DeleteToken(ctx context.Context, userID int64) error
}

// RepositoryStore manages connected repositories.
type RepositoryStore interface {
	UpsertRepository(ctx context.Context, userID int64, repo model.RemoteRepository) (model.Repository, error)
	GetRepository(ctx context.Context, userID, repoID int64) (model.Repository, error)
	ListRepositories(ctx context.Context, userID int64) ([]model.Repository, error)
	ListActiveRepositories(ctx context.Context, userID int64) ([]model.Repository, error)
	ListRepositoriesWithStats(ctx context.Context, userID int64) ([]model.RepositoryWithStats, error)
	SetRepositoryActive(ctx context.Context, repoID int64, active bool) error
	DeleteRepository(ctx context.Context, repoID int64) error
	UpdateLastSynced(ctx context.Context, repoID int64, ts time.Time) error
	SetWebhookID(ctx context.Context, repoID int64, webhookID *int64) error
}

// CommitStore manages stored commits.
type CommitStore interface {
	// InsertCommit stores a commit unless (repository, sha) already exists.
	// Returns false when the row was already present.
	InsertCommit(ctx context.Context, c model.Commit) (bool, error)
	ListCommitsByRepository(ctx context.Context, repoID int64, processed *bool, limit int) ([]model.Commit, error)
	ListRecentCommits(ctx context.Context, userID int64, limit int) ([]model.Commit, error)
	MarkCommitsProcessed(ctx context.Context, userID int64, commitIDs []int64) (int64, error)
	GetCommitStats(ctx context.Context, repoID int64) (model.CommitStats, error)
	DeleteCommitsOlderThan(ctx context.Context, repoID int64, cutoff time.Time) (int64, error)
}

// TemplateStore manages content templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context, userID int64) ([]model.Template, error)
	ListTemplatesByCategory(ctx context.Context, userID int64, category string) ([]model.Template, error)
	ListActiveTemplates(ctx context.Context, userID int64) ([]model.Template, error)
	GetTemplate(ctx context.Context, userID, templateID int64) (model.Template, error)
	CreateTemplate(ctx context.Context, t model.Template) (model.Template, error)
	UpdateTemplate(ctx context.Context, params UpdateTemplateParams) (model.Template, error)
	DeleteTemplate(ctx context.Context, templateID int64) error
	SetTemplateActive(ctx context.Context, templateID int64, active bool) error
	IncrementTemplateUsage(ctx context.Context, templateID int64) error
}

// ToneStore manages tone-of-voice presets.
type ToneStore interface {
	ListTonePresets(ctx context.Context, userID int64) ([]model.TonePreset, error)
	ListActiveTonePresets(ctx context.Context, userID int64) ([]model.TonePreset, error)
	GetTonePreset(ctx context.Context, userID, presetID int64) (model.TonePreset, error)
	CreateTonePreset(ctx context.Context, p model.TonePreset) (model.TonePreset, error)
	UpdateTonePreset(ctx context.Context, params UpdateTonePresetParams) (model.TonePreset, error)
	DeleteTonePreset(ctx context.Context, presetID int64) error
	SetTonePresetActive(ctx context.Context, presetID int64, active bool) error
	IncrementTonePresetUsage(ctx context.Context, presetID int64) error
}

// Store is the full persistence surface the API handlers depend on.
type Store interface {
	UserStore
	TokenStore
	RepositoryStore
	CommitStore
	TemplateStore
	ToneStore
}

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Open connects a pool and verifies the connection.
func Open(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
