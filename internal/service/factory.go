package service

import (
	"github.com/cpanato/mattermost-plugin-alertmanager/core/config"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/queue"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/settings"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/store"
)

type Services struct {
	settings SettingsService
}

// NewServices wires the services once; the settings service keeps open
// sessions in memory, so it must not be rebuilt per request.
func NewServices(stores *store.Stores, txRunner TxRunner, producer queue.Producer, cfg config.SettingsConfig) (*Services, error) {
	emptyDefault, err := settings.ParseEmptyDefault(cfg.EmptyDefault)
	if err != nil {
		return nil, err
	}

	return &Services{
		settings: NewSettingsService(stores.Settings(), stores.Revisions(), txRunner, producer, SettingsOptions{
			SettingID:      cfg.SettingID,
			EmptyDefault:   emptyDefault,
			TokenLength:    cfg.TokenLength,
			SessionIdleTTL: cfg.SessionIdleTTL,
		}),
	}, nil
}

func (s *Services) Settings() SettingsService {
	return s.settings
}

// Close discards open settings sessions.
func (s *Services) Close() error {
	return s.settings.Shutdown()
}
