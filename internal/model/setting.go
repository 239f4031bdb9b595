package model

import (
	"encoding/json"
	"time"
)

// PluginSetting is the saved value of one host setting key.
type PluginSetting struct {
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	SettingID  string          `json:"setting_id"`
	Value      json.RawMessage `json:"value"`
	RevisionID int64           `json:"revision_id"`
	SavedBy    string          `json:"saved_by"`
}

// SettingRevision is an append-only record of every save.
type SettingRevision struct {
	CreatedAt  time.Time       `json:"created_at"`
	SettingID  string          `json:"setting_id"`
	Value      json.RawMessage `json:"value"`
	RevisionID int64           `json:"revision_id"`
	EntryCount int             `json:"entry_count"`
	SavedBy    string          `json:"saved_by"`
}
