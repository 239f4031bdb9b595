package reload_test

import (
	"context"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/model"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/queue"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/store"
)

type mockSettingStore struct {
	getFn func(ctx context.Context, settingID string) (*model.PluginSetting, error)
}

func (m *mockSettingStore) Get(ctx context.Context, settingID string) (*model.PluginSetting, error) {
	if m.getFn != nil {
		return m.getFn(ctx, settingID)
	}
	return nil, store.ErrNotFound
}

func (m *mockSettingStore) Upsert(context.Context, *model.PluginSetting) error {
	return nil
}

type mockRevisionStore struct {
	getByIDFn func(ctx context.Context, revisionID int64) (*model.SettingRevision, error)
	getCalls  int
}

func (m *mockRevisionStore) GetByID(ctx context.Context, revisionID int64) (*model.SettingRevision, error) {
	m.getCalls++
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, revisionID)
	}
	return nil, store.ErrNotFound
}

func (m *mockRevisionStore) Create(context.Context, *model.SettingRevision) error {
	return nil
}

func (m *mockRevisionStore) ListBySetting(context.Context, string, int32) ([]model.SettingRevision, error) {
	return nil, nil
}

// mockConsumer hands out batches in order, then cancels the run.
type mockConsumer struct {
	batches [][]queue.Message
	cancel  context.CancelFunc
	acked   []string
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	if len(m.batches) == 0 {
		m.cancel()
		return nil, ctx.Err()
	}
	next := m.batches[0]
	m.batches = m.batches[1:]
	return next, nil
}

func (m *mockConsumer) Ack(_ context.Context, msg queue.Message) error {
	m.acked = append(m.acked, msg.ID)
	return nil
}
