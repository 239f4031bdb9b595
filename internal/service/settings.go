package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v2"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/id"
	"github.com/cpanato/mattermost-plugin-alertmanager/common/logger"
	"github.com/cpanato/mattermost-plugin-alertmanager/common/token"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/model"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/queue"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/settings"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownSetting  = errors.New("unknown setting")
)

const (
	maxRevisionPage       = 100
	defaultSessionIdleTTL = 30 * time.Minute
)

type SettingsOptions struct {
	SettingID    string
	EmptyDefault settings.EmptyDefault
	TokenLength  int
	Generate     token.Generator
	Now          func() time.Time
	// SessionIdleTTL is how long a session survives without a request.
	SessionIdleTTL time.Duration
}

type SaveResult struct {
	Revision  *model.SettingRevision
	Session   *SessionView
	Published bool
}

// SettingsService hosts editing sessions of the alert manager setting. Every
// mutating call returns the session as it stands afterwards.
type SettingsService interface {
	Open(ctx context.Context, settingID string) (*SessionView, error)
	Get(ctx context.Context, sessionID int64) (*SessionView, error)
	Close(ctx context.Context, sessionID int64) error
	Value(ctx context.Context, sessionID int64) ([]byte, error)
	Save(ctx context.Context, sessionID int64, savedBy string) (*SaveResult, error)

	AddEntry(ctx context.Context, sessionID int64) (settings.EntryID, *SessionView, error)
	UpdateEntry(ctx context.Context, sessionID int64, entryID settings.EntryID, patch settings.Patch) (*SessionView, error)
	ChangeField(ctx context.Context, sessionID int64, entryID settings.EntryID, field settings.Field, raw string) (*SessionView, error)
	RegenerateToken(ctx context.Context, sessionID int64, entryID settings.EntryID) (*SessionView, error)
	RequestDelete(ctx context.Context, sessionID int64, entryID settings.EntryID) (*SessionView, error)
	ConfirmDelete(ctx context.Context, sessionID int64) (bool, *SessionView, error)
	CancelDelete(ctx context.Context, sessionID int64) (*SessionView, error)

	Revisions(ctx context.Context, settingID string, limit int32) ([]model.SettingRevision, error)

	// Shutdown drops every open session and stops expiring them.
	Shutdown() error
}

type settingsService struct {
	settingStore  store.SettingStore
	revisionStore store.RevisionStore
	txRunner      TxRunner
	producer      queue.Producer
	opts          SettingsOptions

	// sessions maps the decimal session id to *session. Every lookup
	// extends the entry, so only sessions nobody touches expire.
	sessions *ttlcache.Cache
}

// NewSettingsService builds the session host. producer may be nil, in which
// case saves are not announced.
func NewSettingsService(settingStore store.SettingStore, revisionStore store.RevisionStore, txRunner TxRunner, producer queue.Producer, opts SettingsOptions) SettingsService {
	if opts.Generate == nil {
		opts.Generate = token.Secure
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.EmptyDefault == "" {
		opts.EmptyDefault = settings.EmptyDefaultPlaceholder
	}
	if opts.SessionIdleTTL <= 0 {
		opts.SessionIdleTTL = defaultSessionIdleTTL
	}

	sessions := ttlcache.NewCache()
	_ = sessions.SetTTL(opts.SessionIdleTTL)
	sessions.SkipTTLExtensionOnHit(false)
	sessions.SetExpirationReasonCallback(func(key string, reason ttlcache.EvictionReason, value interface{}) {
		if reason != ttlcache.Expired {
			return
		}
		sess, ok := value.(*session)
		if !ok {
			return
		}
		sess.mu.Lock()
		discarded := sess.saveNeeded
		sess.mu.Unlock()

		slog.InfoContext(context.Background(), "settings session expired",
			"session_id", key,
			"setting_id", sess.settingID,
			"unsaved_changes_discarded", discarded)
	})

	return &settingsService{
		settingStore:  settingStore,
		revisionStore: revisionStore,
		txRunner:      txRunner,
		producer:      producer,
		opts:          opts,
		sessions:      sessions,
	}
}

func (s *settingsService) Open(ctx context.Context, settingID string) (*SessionView, error) {
	if settingID != s.opts.SettingID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, settingID)
	}

	var (
		persisted  []byte
		revisionID int64
		savedAt    *time.Time
	)
	saved, err := s.settingStore.Get(ctx, settingID)
	switch {
	case err == nil:
		persisted = saved.Value
		revisionID = saved.RevisionID
		savedAt = &saved.UpdatedAt
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, fmt.Errorf("loading setting: %w", err)
	}

	sess := &session{
		id:          id.New(),
		settingID:   settingID,
		openedAt:    s.opts.Now(),
		revisionID:  revisionID,
		lastSavedAt: savedAt,
	}
	sess.manager = settings.NewManager(settingID, sess,
		settings.WithEmptyDefault(s.opts.EmptyDefault),
		settings.WithTokenGenerator(s.opts.Generate),
		settings.WithTokenLength(s.opts.TokenLength),
	)
	if err := sess.manager.Initialize(persisted); err != nil {
		return nil, err
	}

	if err := s.sessions.Set(sessionKey(sess.id), sess); err != nil {
		return nil, fmt.Errorf("registering session: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{SettingID: &settingID, SessionID: &sess.id})
	slog.InfoContext(ctx, "settings session opened",
		"entry_count", sess.manager.Collection().Len(),
		"revision_id", revisionID)

	return sess.view(), nil
}

func (s *settingsService) Get(ctx context.Context, sessionID int64) (*SessionView, error) {
	return s.withSession(ctx, sessionID, func(_ context.Context, _ *session) error {
		return nil
	})
}

func (s *settingsService) Close(ctx context.Context, sessionID int64) error {
	sess, ok := s.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if err := s.sessions.Remove(sessionKey(sessionID)); err != nil {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	discarded := sess.saveNeeded
	sess.mu.Unlock()

	slog.InfoContext(ctx, "settings session closed",
		"session_id", sessionID,
		"unsaved_changes_discarded", discarded)
	return nil
}

func (s *settingsService) Value(ctx context.Context, sessionID int64) ([]byte, error) {
	var value []byte
	_, err := s.withSession(ctx, sessionID, func(_ context.Context, sess *session) error {
		var err error
		value, err = sess.manager.Serialize()
		return err
	})
	return value, err
}

// Save persists the session's current value as a new revision and
// announces it. The announcement runs after the session is unlocked; a
// failed announcement does not undo the save.
func (s *settingsService) Save(ctx context.Context, sessionID int64, savedBy string) (*SaveResult, error) {
	sc := logger.StartSpan(ctx, "settings.save")
	defer sc.End()
	ctx = sc.Context()

	var rev *model.SettingRevision
	view, err := s.withSession(ctx, sessionID, func(ctx context.Context, sess *session) error {
		var err error
		rev, err = s.persist(ctx, sess, savedBy)
		return err
	})
	if err != nil {
		sc.RecordError(err)
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SettingID:  &rev.SettingID,
		SessionID:  &sessionID,
		RevisionID: &rev.RevisionID,
		Component:  "alertmanager.service.settings",
	})
	published := s.announce(ctx, sc, rev)

	slog.InfoContext(ctx, "setting saved",
		"entry_count", rev.EntryCount,
		"published", published)

	return &SaveResult{Revision: rev, Session: view, Published: published}, nil
}

// persist writes the setting and its revision in one transaction. The
// caller holds the session lock.
func (s *settingsService) persist(ctx context.Context, sess *session, savedBy string) (*model.SettingRevision, error) {
	// Without edits there is nothing staged; saving then still rewrites
	// legacy shapes in the canonical form.
	value := sess.pending
	if value == nil {
		var err error
		if value, err = sess.manager.Serialize(); err != nil {
			return nil, err
		}
	}

	rev := &model.SettingRevision{
		RevisionID: id.New(),
		SettingID:  sess.settingID,
		Value:      value,
		EntryCount: sess.manager.Collection().Len(),
		SavedBy:    savedBy,
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{RevisionID: &rev.RevisionID})

	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if err := sp.Settings().Upsert(ctx, &model.PluginSetting{
			SettingID:  rev.SettingID,
			Value:      rev.Value,
			RevisionID: rev.RevisionID,
			SavedBy:    savedBy,
		}); err != nil {
			return fmt.Errorf("upserting setting: %w", err)
		}
		if err := sp.Revisions().Create(ctx, rev); err != nil {
			return fmt.Errorf("creating revision: %w", err)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("saving setting: %w", err)
	}

	savedAt := s.opts.Now()
	sess.pending = value
	sess.saveNeeded = false
	sess.revisionID = rev.RevisionID
	sess.lastSavedAt = &savedAt

	if invalid := sess.manager.Collection().Invalid(); len(invalid) > 0 {
		slog.WarnContext(ctx, "saved setting has incomplete entries", "entry_ids", invalid)
	}
	return rev, nil
}

// announce publishes rev. Two saves may announce out of order; the reload
// worker ignores revisions older than the one it holds.
func (s *settingsService) announce(ctx context.Context, sc *logger.SpanContext, rev *model.SettingRevision) bool {
	if s.producer == nil {
		return false
	}

	msg := queue.SettingSaved{
		SettingID:  rev.SettingID,
		RevisionID: rev.RevisionID,
		EntryCount: rev.EntryCount,
		SavedBy:    rev.SavedBy,
	}
	if traceID := sc.TraceID(); traceID != "" {
		msg.TraceID = &traceID
	}
	if spanID := sc.SpanID(); spanID != "" {
		msg.SpanID = &spanID
	}

	if err := s.producer.Publish(ctx, msg); err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "failed to announce saved setting", "error", err)
		return false
	}
	return true
}

func (s *settingsService) AddEntry(ctx context.Context, sessionID int64) (settings.EntryID, *SessionView, error) {
	var added settings.EntryID
	view, err := s.withSession(ctx, sessionID, func(ctx context.Context, sess *session) error {
		var err error
		added, err = sess.manager.AddEntry()
		if err != nil {
			return err
		}
		slog.DebugContext(ctx, "entry added", "entry_id", added)
		return nil
	})
	return added, view, err
}

func (s *settingsService) UpdateEntry(ctx context.Context, sessionID int64, entryID settings.EntryID, patch settings.Patch) (*SessionView, error) {
	return s.withSession(ctx, sessionID, func(_ context.Context, sess *session) error {
		return sess.manager.UpdateEntry(entryID, patch)
	})
}

func (s *settingsService) ChangeField(ctx context.Context, sessionID int64, entryID settings.EntryID, field settings.Field, raw string) (*SessionView, error) {
	return s.withEditor(ctx, sessionID, entryID, func(_ context.Context, ed *settings.Editor) error {
		return ed.OnFieldChange(field, raw)
	})
}

func (s *settingsService) RegenerateToken(ctx context.Context, sessionID int64, entryID settings.EntryID) (*SessionView, error) {
	return s.withEditor(ctx, sessionID, entryID, func(ctx context.Context, ed *settings.Editor) error {
		if err := ed.OnRegenerateToken(); err != nil {
			return err
		}
		slog.InfoContext(ctx, "entry token regenerated")
		return nil
	})
}

func (s *settingsService) RequestDelete(ctx context.Context, sessionID int64, entryID settings.EntryID) (*SessionView, error) {
	return s.withEditor(ctx, sessionID, entryID, func(_ context.Context, ed *settings.Editor) error {
		ed.OnDeleteRequested()
		return nil
	})
}

func (s *settingsService) ConfirmDelete(ctx context.Context, sessionID int64) (bool, *SessionView, error) {
	var removed bool
	view, err := s.withSession(ctx, sessionID, func(ctx context.Context, sess *session) error {
		pending := sess.manager.DeletePrompt()
		var err error
		removed, err = sess.manager.ConfirmDelete()
		if err != nil {
			return err
		}
		if removed {
			slog.InfoContext(ctx, "entry deleted", "entry_id", pending.EntryID)
		}
		return nil
	})
	return removed, view, err
}

func (s *settingsService) CancelDelete(ctx context.Context, sessionID int64) (*SessionView, error) {
	return s.withSession(ctx, sessionID, func(_ context.Context, sess *session) error {
		sess.manager.CancelDelete()
		return nil
	})
}

func (s *settingsService) Revisions(ctx context.Context, settingID string, limit int32) ([]model.SettingRevision, error) {
	if settingID != s.opts.SettingID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, settingID)
	}
	if limit <= 0 || limit > maxRevisionPage {
		limit = maxRevisionPage
	}

	revs, err := s.revisionStore.ListBySetting(ctx, settingID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	return revs, nil
}

func (s *settingsService) Shutdown() error {
	if err := s.sessions.Close(); err != nil && !errors.Is(err, ttlcache.ErrClosed) {
		return fmt.Errorf("closing sessions: %w", err)
	}
	return nil
}

func (s *settingsService) lookup(sessionID int64) (*session, bool) {
	value, err := s.sessions.Get(sessionKey(sessionID))
	if err != nil {
		return nil, false
	}
	sess, ok := value.(*session)
	return sess, ok
}

func sessionKey(sessionID int64) string {
	return strconv.FormatInt(sessionID, 10)
}

// withSession runs fn with the session locked and returns the resulting view.
func (s *settingsService) withSession(ctx context.Context, sessionID int64, fn func(ctx context.Context, sess *session) error) (*SessionView, error) {
	sess, ok := s.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SettingID: &sess.settingID,
		SessionID: &sess.id,
		Component: "alertmanager.service.settings",
	})
	if err := fn(ctx, sess); err != nil {
		return nil, err
	}
	return sess.view(), nil
}

func (s *settingsService) withEditor(ctx context.Context, sessionID int64, entryID settings.EntryID, fn func(ctx context.Context, ed *settings.Editor) error) (*SessionView, error) {
	return s.withSession(ctx, sessionID, func(ctx context.Context, sess *session) error {
		ed, ok := sess.manager.Editor(entryID)
		if !ok {
			return fmt.Errorf("%w: %d", settings.ErrUnknownEntry, entryID)
		}
		entry := int(entryID)
		return fn(logger.WithLogFields(ctx, logger.LogFields{EntryID: &entry}), ed)
	})
}
