package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
)

// UpsertTokenParams are the fields stored for a user's GitHub token.
type UpsertTokenParams struct {
	UserID      int64
	AccessToken string
	TokenType   string
	Scope       string
	ExpiresAt   sql.NullTime
}

// UpsertToken stores the token, replacing any previous one for the user.
func (p *Postgres) UpsertToken(ctx context.Context, params UpsertTokenParams) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO github_tokens (user_id, access_token, token_type, scope, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			token_type   = EXCLUDED.token_type,
			scope        = EXCLUDED.scope,
			expires_at   = EXCLUDED.expires_at,
			updated_at   = NOW()`,
		params.UserID, params.AccessToken, params.TokenType, params.Scope, params.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert github token: %w", err)
	}
	return nil
}

func (p *Postgres) GetTokenByUserID(ctx context.Context, userID int64) (model.GitHubToken, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, user_id, access_token, token_type, scope, expires_at, created_at, updated_at
		FROM github_tokens
		WHERE user_id = $1`,
		userID)

	var t model.GitHubToken
	err := row.Scan(&t.ID, &t.UserID, &t.AccessToken, &t.TokenType, &t.Scope, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.GitHubToken{}, apperrors.ErrTokenMissing
		}
		return model.GitHubToken{}, fmt.Errorf("get github token: %w", err)
	}
	return t, nil
}

func (p *Postgres) DeleteToken(ctx context.Context, userID int64) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM github_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete github token: %w", err)
	}
	return nil
}
