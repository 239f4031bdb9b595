package service

import (
	"sync"
	"time"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/settings"
)

// session is one open settings page. It is the host of its manager: the
// manager stages values here and the save path persists them.
type session struct {
	mu sync.Mutex

	id        int64
	settingID string
	openedAt  time.Time
	manager   *settings.Manager

	pending     []byte
	saveNeeded  bool
	revisionID  int64
	lastSavedAt *time.Time
}

func (s *session) OnChange(_ string, value []byte) {
	s.pending = value
}

func (s *session) SetSaveNeeded() {
	s.saveNeeded = true
}

// SessionView is a point-in-time copy of a session, safe to use after the
// session lock is released.
type SessionView struct {
	SessionID    int64
	SettingID    string
	EmptyDefault settings.EmptyDefault
	Entries      []EntryView
	DeletePrompt settings.ConfirmDialog
	SaveNeeded   bool
	RevisionID   int64
	OpenedAt     time.Time
	LastSavedAt  *time.Time
}

type EntryView struct {
	ID        settings.EntryID
	Entry     settings.Entry
	Errors    []settings.Field
	ErrorText string
}

func (s *session) view() *SessionView {
	v := &SessionView{
		SessionID:    s.id,
		SettingID:    s.settingID,
		EmptyDefault: s.manager.EmptyDefault(),
		DeletePrompt: s.manager.DeletePrompt(),
		SaveNeeded:   s.saveNeeded,
		RevisionID:   s.revisionID,
		OpenedAt:     s.openedAt,
		LastSavedAt:  s.lastSavedAt,
	}
	for _, ed := range s.manager.Editors() {
		ev := EntryView{
			ID:        ed.ID(),
			Entry:     ed.Entry(),
			ErrorText: ed.ErrorText(),
		}
		for _, f := range settings.EditableFields {
			if ed.FieldError(f) {
				ev.Errors = append(ev.Errors, f)
			}
		}
		v.Entries = append(v.Entries, ev)
	}
	return v
}
