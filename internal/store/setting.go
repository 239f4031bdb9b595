package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/cpanato/mattermost-plugin-alertmanager/core/db"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/model"
)

type settingStore struct {
	q db.Querier
}

func newSettingStore(q db.Querier) SettingStore {
	return &settingStore{q: q}
}

const getSetting = `
SELECT setting_id, value, revision_id, saved_by, created_at, updated_at
FROM plugin_settings
WHERE setting_id = $1`

func (s *settingStore) Get(ctx context.Context, settingID string) (*model.PluginSetting, error) {
	var row model.PluginSetting
	err := s.q.QueryRow(ctx, getSetting, settingID).Scan(
		&row.SettingID,
		&row.Value,
		&row.RevisionID,
		&row.SavedBy,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

const upsertSetting = `
INSERT INTO plugin_settings (setting_id, value, revision_id, saved_by)
VALUES ($1, $2, $3, $4)
ON CONFLICT (setting_id) DO UPDATE
SET value = EXCLUDED.value,
    revision_id = EXCLUDED.revision_id,
    saved_by = EXCLUDED.saved_by,
    updated_at = now()
RETURNING created_at, updated_at`

func (s *settingStore) Upsert(ctx context.Context, setting *model.PluginSetting) error {
	return s.q.QueryRow(ctx, upsertSetting,
		setting.SettingID,
		string(setting.Value),
		setting.RevisionID,
		setting.SavedBy,
	).Scan(&setting.CreatedAt, &setting.UpdatedAt)
}
