package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
)

const templateColumns = `id, user_id, name, description, category, structure,
	is_default, is_active, usage_count, created_at, updated_at`

func scanTemplate(row pgx.Row) (model.Template, error) {
	var t model.Template
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.Category, &t.Structure,
		&t.IsDefault, &t.IsActive, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (p *Postgres) ListTemplates(ctx context.Context, userID int64) ([]model.Template, error) {
	return p.listTemplates(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
}

func (p *Postgres) ListTemplatesByCategory(ctx context.Context, userID int64, category string) ([]model.Template, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE user_id = $1 AND category = $2 AND is_active
		ORDER BY created_at DESC`,
		userID, category)
	if err != nil {
		return nil, fmt.Errorf("list templates by category: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func (p *Postgres) ListActiveTemplates(ctx context.Context, userID int64) ([]model.Template, error) {
	return p.listTemplates(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC`, userID)
}

func (p *Postgres) listTemplates(ctx context.Context, query string, userID int64) ([]model.Template, error) {
	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func collectTemplates(rows pgx.Rows) ([]model.Template, error) {
	var templates []model.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (p *Postgres) GetTemplate(ctx context.Context, userID, templateID int64) (model.Template, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE id = $1 AND user_id = $2`,
		templateID, userID)

	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Template{}, &apperrors.ErrAccessDenied{Resource: "template"}
		}
		return model.Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (p *Postgres) CreateTemplate(ctx context.Context, t model.Template) (model.Template, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO templates (user_id, name, description, category, structure, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+templateColumns,
		t.UserID, t.Name, t.Description, t.Category, t.Structure, t.IsDefault)

	created, err := scanTemplate(row)
	if err != nil {
		return model.Template{}, fmt.Errorf("create template: %w", err)
	}
	return created, nil
}

// UpdateTemplateParams carries optional field updates; nil pointers leave the
// stored value unchanged.
type UpdateTemplateParams struct {
	TemplateID  int64
	Name        *string
	Description *string
	Category    *string
	Structure   *string
	IsActive    *bool
}

func (p *Postgres) UpdateTemplate(ctx context.Context, params UpdateTemplateParams) (model.Template, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE templates SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			category    = COALESCE($4, category),
			structure   = COALESCE($5, structure),
			is_active   = COALESCE($6, is_active),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING `+templateColumns,
		params.TemplateID, params.Name, params.Description, params.Category,
		params.Structure, params.IsActive)

	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Template{}, apperrors.ErrNotFound
		}
		return model.Template{}, fmt.Errorf("update template: %w", err)
	}
	return t, nil
}

func (p *Postgres) DeleteTemplate(ctx context.Context, templateID int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, templateID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (p *Postgres) SetTemplateActive(ctx context.Context, templateID int64, active bool) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE templates SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		templateID, active)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (p *Postgres) IncrementTemplateUsage(ctx context.Context, templateID int64) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE templates SET usage_count = usage_count + 1 WHERE id = $1`,
		templateID)
	if err != nil {
		return fmt.Errorf("increment template usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
