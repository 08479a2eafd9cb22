package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
)

// EnsureUser creates the user on first sight and returns the stored row
// either way. The display name is refreshed on every call.
func (p *Postgres) EnsureUser(ctx context.Context, externalID, name string) (model.User, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (external_id, name)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, external_id, name, created_at`,
		externalID, name)

	var u model.User
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.CreatedAt); err != nil {
		return model.User{}, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

func (p *Postgres) GetUserByExternalID(ctx context.Context, externalID string) (model.User, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, external_id, name, created_at
		FROM users
		WHERE external_id = $1`,
		externalID)

	var u model.User
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, apperrors.ErrNotFound
		}
		return model.User{}, fmt.Errorf("get user by external id: %w", err)
	}
	return u, nil
}
