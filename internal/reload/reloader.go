package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/logger"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/queue"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/store"
)

// Reloader swaps in a new routing table whenever a save is announced.
type Reloader struct {
	settingID string
	settings  store.SettingStore
	revisions store.RevisionStore

	mu    sync.RWMutex
	table *Table
}

func NewReloader(settingID string, settings store.SettingStore, revisions store.RevisionStore) *Reloader {
	return &Reloader{
		settingID: settingID,
		settings:  settings,
		revisions: revisions,
	}
}

// Table returns the current routing table; nil until the first load.
func (r *Reloader) Table() *Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table
}

// Load builds the table from the current saved value. A setting that was
// never saved yields an empty table.
func (r *Reloader) Load(ctx context.Context) error {
	saved, err := r.settings.Get(ctx, r.settingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.swap(ctx, &Table{})
			return nil
		}
		return fmt.Errorf("loading setting: %w", err)
	}
	return r.apply(ctx, saved.RevisionID, saved.Value)
}

// Handle applies one announced save. Announcements for other settings and
// for revisions older than the current table are ignored.
func (r *Reloader) Handle(ctx context.Context, msg queue.Message) error {
	ev := msg.Event
	if ev.SettingID != r.settingID {
		return nil
	}

	sc := logger.StartSpanFromTraceID(ctx, deref(ev.TraceID), deref(ev.SpanID), "reload.handle")
	defer sc.End()
	ctx = sc.Context()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SettingID:  logger.Ptr(ev.SettingID),
		RevisionID: logger.Ptr(ev.RevisionID),
		Component:  "alertmanager.reload",
	})

	if current := r.Table(); current != nil && current.RevisionID >= ev.RevisionID {
		slog.DebugContext(ctx, "skipping stale revision", "current_revision_id", current.RevisionID)
		return nil
	}

	rev, err := r.revisions.GetByID(ctx, ev.RevisionID)
	if err != nil {
		sc.RecordError(err)
		return fmt.Errorf("fetching revision: %w", err)
	}
	if err := r.apply(ctx, rev.RevisionID, rev.Value); err != nil {
		sc.RecordError(err)
		return err
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Run consumes announcements until ctx is done. Messages that fail are not
// acknowledged and stay pending in the consumer group.
func (r *Reloader) Run(ctx context.Context, consumer queue.Consumer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		for _, msg := range msgs {
			if err := r.Handle(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "failed to reload setting",
					"error", err,
					"message_id", msg.ID,
					"revision_id", msg.Event.RevisionID)
				continue
			}
			if err := consumer.Ack(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "failed to ack message", "error", err, "message_id", msg.ID)
			}
		}
	}
}

func (r *Reloader) apply(ctx context.Context, revisionID int64, value []byte) error {
	table, err := Build(revisionID, value)
	if table == nil {
		return fmt.Errorf("building routes: %w", err)
	}
	if err != nil {
		slog.WarnContext(ctx, "skipped unusable entries", "error", err)
	}
	r.swap(ctx, table)
	return nil
}

func (r *Reloader) swap(ctx context.Context, t *Table) {
	r.mu.Lock()
	r.table = t
	r.mu.Unlock()

	slog.InfoContext(ctx, "routes reloaded",
		"revision_id", t.RevisionID,
		"routes", t.Len(),
		"channels", t.Channels())
}
