package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
)

const tonePresetColumns = `id, user_id, name, description, settings,
	is_default, is_active, usage_count, created_at, updated_at`

func scanTonePreset(row pgx.Row) (model.TonePreset, error) {
	var p model.TonePreset
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Settings,
		&p.IsDefault, &p.IsActive, &p.UsageCount, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (p *Postgres) ListTonePresets(ctx context.Context, userID int64) ([]model.TonePreset, error) {
	return p.listTonePresets(ctx, `
		SELECT `+tonePresetColumns+`
		FROM tone_presets
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
}

func (p *Postgres) ListActiveTonePresets(ctx context.Context, userID int64) ([]model.TonePreset, error) {
	return p.listTonePresets(ctx, `
		SELECT `+tonePresetColumns+`
		FROM tone_presets
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC`, userID)
}

func (p *Postgres) listTonePresets(ctx context.Context, query string, userID int64) ([]model.TonePreset, error) {
	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tone presets: %w", err)
	}
	defer rows.Close()

	var presets []model.TonePreset
	for rows.Next() {
		preset, err := scanTonePreset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tone preset: %w", err)
		}
		presets = append(presets, preset)
	}
	return presets, rows.Err()
}

func (p *Postgres) GetTonePreset(ctx context.Context, userID, presetID int64) (model.TonePreset, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+tonePresetColumns+`
		FROM tone_presets
		WHERE id = $1 AND user_id = $2`,
		presetID, userID)

	preset, err := scanTonePreset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TonePreset{}, &apperrors.ErrAccessDenied{Resource: "tone preset"}
		}
		return model.TonePreset{}, fmt.Errorf("get tone preset: %w", err)
	}
	return preset, nil
}

func (p *Postgres) CreateTonePreset(ctx context.Context, preset model.TonePreset) (model.TonePreset, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO tone_presets (user_id, name, description, settings, is_default)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+tonePresetColumns,
		preset.UserID, preset.Name, preset.Description, preset.Settings, preset.IsDefault)

	created, err := scanTonePreset(row)
	if err != nil {
		return model.TonePreset{}, fmt.Errorf("create tone preset: %w", err)
	}
	return created, nil
}

// UpdateTonePresetParams carries optional field updates; nil pointers leave
// the stored value unchanged.
type UpdateTonePresetParams struct {
	PresetID    int64
	Name        *string
	Description *string
	Settings    *model.ToneSettings
	IsActive    *bool
}

func (p *Postgres) UpdateTonePreset(ctx context.Context, params UpdateTonePresetParams) (model.TonePreset, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE tone_presets SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			settings    = COALESCE($4, settings),
			is_active   = COALESCE($5, is_active),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING `+tonePresetColumns,
		params.PresetID, params.Name, params.Description, params.Settings, params.IsActive)

	preset, err := scanTonePreset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TonePreset{}, apperrors.ErrNotFound
		}
		return model.TonePreset{}, fmt.Errorf("update tone preset: %w", err)
	}
	return preset, nil
}

func (p *Postgres) DeleteTonePreset(ctx context.Context, presetID int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM tone_presets WHERE id = $1`, presetID)
	if err != nil {
		return fmt.Errorf("delete tone preset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (p *Postgres) SetTonePresetActive(ctx context.Context, presetID int64, active bool) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE tone_presets SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		presetID, active)
	if err != nil {
		return fmt.Errorf("set tone preset active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (p *Postgres) IncrementTonePresetUsage(ctx context.Context, presetID int64) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE tone_presets SET usage_count = usage_count + 1 WHERE id = $1`,
		presetID)
	if err != nil {
		return fmt.Errorf("increment tone preset usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
