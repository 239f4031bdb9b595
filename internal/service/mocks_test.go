package service_test

import (
	"context"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/model"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/queue"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/service"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/store"
)

type mockSettingStore struct {
	getFn       func(ctx context.Context, settingID string) (*model.PluginSetting, error)
	upsertFn    func(ctx context.Context, setting *model.PluginSetting) error
	upsertCalls int
}

func (m *mockSettingStore) Get(ctx context.Context, settingID string) (*model.PluginSetting, error) {
	if m.getFn != nil {
		return m.getFn(ctx, settingID)
	}
	return nil, store.ErrNotFound
}

func (m *mockSettingStore) Upsert(ctx context.Context, setting *model.PluginSetting) error {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, setting)
	}
	return nil
}

type mockRevisionStore struct {
	getByIDFn       func(ctx context.Context, revisionID int64) (*model.SettingRevision, error)
	createFn        func(ctx context.Context, rev *model.SettingRevision) error
	listBySettingFn func(ctx context.Context, settingID string, limit int32) ([]model.SettingRevision, error)
	created         []model.SettingRevision
}

func (m *mockRevisionStore) GetByID(ctx context.Context, revisionID int64) (*model.SettingRevision, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, revisionID)
	}
	return nil, store.ErrNotFound
}

func (m *mockRevisionStore) Create(ctx context.Context, rev *model.SettingRevision) error {
	m.created = append(m.created, *rev)
	if m.createFn != nil {
		return m.createFn(ctx, rev)
	}
	return nil
}

func (m *mockRevisionStore) ListBySetting(ctx context.Context, settingID string, limit int32) ([]model.SettingRevision, error) {
	if m.listBySettingFn != nil {
		return m.listBySettingFn(ctx, settingID, limit)
	}
	return nil, nil
}

type mockStoreProvider struct {
	settings  store.SettingStore
	revisions store.RevisionStore
}

func (m *mockStoreProvider) Settings() store.SettingStore {
	return m.settings
}

func (m *mockStoreProvider) Revisions() store.RevisionStore {
	return m.revisions
}

type mockTxRunner struct {
	provider service.StoreProvider
	calls    int
}

func (m *mockTxRunner) WithTx(_ context.Context, fn func(stores service.StoreProvider) error) error {
	m.calls++
	return fn(m.provider)
}

type mockProducer struct {
	publishFn func(ctx context.Context, msg queue.SettingSaved) error
	published []queue.SettingSaved
}

func (m *mockProducer) Publish(ctx context.Context, msg queue.SettingSaved) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, msg); err != nil {
			return err
		}
	}
	m.published = append(m.published, msg)
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
