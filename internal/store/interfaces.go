package store

import (
	"context"
	"errors"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// SettingStore defines the contract for saved setting values
type SettingStore interface {
	Get(ctx context.Context, settingID string) (*model.PluginSetting, error)
	Upsert(ctx context.Context, setting *model.PluginSetting) error
}

// RevisionStore defines the contract for the save history of a setting
type RevisionStore interface {
	GetByID(ctx context.Context, revisionID int64) (*model.SettingRevision, error)
	Create(ctx context.Context, rev *model.SettingRevision) error
	ListBySetting(ctx context.Context, settingID string, limit int32) ([]model.SettingRevision, error)
}
