package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/cpanato/mattermost-plugin-alertmanager/core/db"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/model"
)

type revisionStore struct {
	q db.Querier
}

func newRevisionStore(q db.Querier) RevisionStore {
	return &revisionStore{q: q}
}

const revisionColumns = `revision_id, setting_id, value, entry_count, saved_by, created_at`

func scanRevision(row pgx.Row) (model.SettingRevision, error) {
	var rev model.SettingRevision
	err := row.Scan(
		&rev.RevisionID,
		&rev.SettingID,
		&rev.Value,
		&rev.EntryCount,
		&rev.SavedBy,
		&rev.CreatedAt,
	)
	return rev, err
}

func (s *revisionStore) GetByID(ctx context.Context, revisionID int64) (*model.SettingRevision, error) {
	rev, err := scanRevision(s.q.QueryRow(ctx,
		`SELECT `+revisionColumns+` FROM plugin_setting_revisions WHERE revision_id = $1`,
		revisionID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rev, nil
}

func (s *revisionStore) Create(ctx context.Context, rev *model.SettingRevision) error {
	return s.q.QueryRow(ctx, `
INSERT INTO plugin_setting_revisions (revision_id, setting_id, value, entry_count, saved_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`,
		rev.RevisionID,
		rev.SettingID,
		string(rev.Value),
		rev.EntryCount,
		rev.SavedBy,
	).Scan(&rev.CreatedAt)
}

func (s *revisionStore) ListBySetting(ctx context.Context, settingID string, limit int32) ([]model.SettingRevision, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+revisionColumns+` FROM plugin_setting_revisions
WHERE setting_id = $1
ORDER BY revision_id DESC
LIMIT $2`,
		settingID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []model.SettingRevision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}
