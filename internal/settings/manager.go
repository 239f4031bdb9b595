package settings

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/token"
)

var (
	ErrUnknownEntry = errors.New("unknown entry")
	ErrIDsExhausted = errors.New("no entry ids left")
)

// Host is the settings page that owns the persisted value. The manager
// calls both methods after every mutation.
type Host interface {
	// OnChange stages value as the pending value for settingID.
	OnChange(settingID string, value []byte)
	// SetSaveNeeded activates the host's save control.
	SetSaveNeeded()
}

// EmptyDefault decides what a never-saved setting looks like.
type EmptyDefault string

const (
	// EmptyDefaultNone starts with no entries; the console shows an empty-state message.
	EmptyDefaultNone EmptyDefault = "none"
	// EmptyDefaultPlaceholder starts with one blank entry at BaseID.
	EmptyDefaultPlaceholder EmptyDefault = "placeholder"
)

func ParseEmptyDefault(s string) (EmptyDefault, error) {
	switch d := EmptyDefault(s); d {
	case EmptyDefaultNone, EmptyDefaultPlaceholder:
		return d, nil
	}
	return "", fmt.Errorf("unknown empty collection default %q", s)
}

// EmptyStateText is shown instead of editors when the collection is empty.
const EmptyStateText = "No alert managers have been created"

// ConfirmDialog is what the host's confirmation modal is rendered from.
type ConfirmDialog struct {
	Show              bool
	Title             string
	Message           string
	ConfirmButtonText string
	EntryID           EntryID
}

var deleteDialog = ConfirmDialog{
	Title:             "Delete Alert Manager",
	Message:           "Are you sure you want to remove this alert manager?",
	ConfirmButtonText: "Remove",
}

// Manager owns the entry collection of one setting. Editors talk to it only
// through the hooks it hands them; nothing else mutates the collection.
// A Manager is not safe for concurrent use.
type Manager struct {
	settingID    string
	host         Host
	emptyDefault EmptyDefault
	generate     token.Generator
	tokenLength  int

	collection    Collection
	editors       map[EntryID]*Editor
	pendingDelete *EntryID
}

type ManagerOption func(*Manager)

func WithEmptyDefault(d EmptyDefault) ManagerOption {
	return func(m *Manager) {
		m.emptyDefault = d
	}
}

func WithTokenGenerator(g token.Generator) ManagerOption {
	return func(m *Manager) {
		m.generate = g
	}
}

func WithTokenLength(n int) ManagerOption {
	return func(m *Manager) {
		m.tokenLength = n
	}
}

func NewManager(settingID string, host Host, opts ...ManagerOption) *Manager {
	m := &Manager{
		settingID:    settingID,
		host:         host,
		emptyDefault: EmptyDefaultPlaceholder,
		generate:     token.Secure,
		tokenLength:  token.MinLength,
		editors:      make(map[EntryID]*Editor),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) SettingID() string {
	return m.settingID
}

func (m *Manager) EmptyDefault() EmptyDefault {
	return m.emptyDefault
}

// Initialize loads the persisted value. It replaces any current state and
// does not notify the host: nothing has changed from the host's view.
func (m *Manager) Initialize(persisted []byte) error {
	c, err := Decode(persisted)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", m.settingID, err)
	}

	if IsAbsent(persisted) && m.emptyDefault == EmptyDefaultPlaceholder {
		c = c.With(BaseID, Entry{})
	}

	m.collection = c
	m.pendingDelete = nil
	m.editors = make(map[EntryID]*Editor, c.Len())
	for _, item := range c.Items() {
		m.editors[item.ID] = m.newEditor(item.ID, item.Entry)
	}
	return nil
}

// Collection returns the current collection. Later mutations do not affect
// the returned value.
func (m *Manager) Collection() Collection {
	return m.collection
}

// Editors returns one editor per entry in id order.
func (m *Manager) Editors() []*Editor {
	return lo.Map(m.collection.IDs(), func(id EntryID, _ int) *Editor {
		return m.editors[id]
	})
}

func (m *Manager) Editor(id EntryID) (*Editor, bool) {
	ed, ok := m.editors[id]
	return ed, ok
}

// AddEntry appends a blank entry and returns its id.
func (m *Manager) AddEntry() (EntryID, error) {
	id, ok := m.collection.NextID()
	if !ok {
		return 0, fmt.Errorf("%w: highest id is %d", ErrIDsExhausted, MaxEntryID)
	}
	if err := m.commit(m.collection.With(id, Entry{})); err != nil {
		return 0, err
	}
	m.editors[id] = m.newEditor(id, Entry{})
	return id, nil
}

// UpdateEntry merges p into the entry at id.
func (m *Manager) UpdateEntry(id EntryID, p Patch) error {
	current, ok := m.collection.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntry, id)
	}

	updated := p.Apply(current)
	if err := m.commit(m.collection.With(id, updated)); err != nil {
		return err
	}
	if ed, ok := m.editors[id]; ok {
		ed.absorb(p, updated)
	}
	return nil
}

// RequestDelete opens the confirmation prompt for id.
func (m *Manager) RequestDelete(id EntryID) {
	m.pendingDelete = &id
}

// DeletePrompt returns the dialog state; Show is false when no delete is pending.
func (m *Manager) DeletePrompt() ConfirmDialog {
	if m.pendingDelete == nil {
		return ConfirmDialog{}
	}
	d := deleteDialog
	d.Show = true
	d.EntryID = *m.pendingDelete
	return d
}

// ConfirmDelete removes the entry the prompt was opened for and closes the
// prompt. It reports whether an entry was removed.
func (m *Manager) ConfirmDelete() (bool, error) {
	if m.pendingDelete == nil {
		return false, nil
	}
	id := *m.pendingDelete
	m.pendingDelete = nil
	return m.DeleteEntry(id)
}

// CancelDelete closes the prompt and leaves the collection alone.
func (m *Manager) CancelDelete() {
	m.pendingDelete = nil
}

// DeleteEntry removes id. Deleting a missing id is a no-op and does not
// notify the host.
func (m *Manager) DeleteEntry(id EntryID) (bool, error) {
	if !m.collection.Has(id) {
		return false, nil
	}
	if err := m.commit(m.collection.Without(id)); err != nil {
		return false, err
	}
	delete(m.editors, id)
	return true, nil
}

// Serialize returns the value the host's save path persists.
func (m *Manager) Serialize() ([]byte, error) {
	return Encode(m.collection)
}

func (m *Manager) commit(next Collection) error {
	value, err := Encode(next)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", m.settingID, err)
	}

	m.collection = next
	if m.host != nil {
		m.host.OnChange(m.settingID, value)
		m.host.SetSaveNeeded()
	}
	return nil
}

func (m *Manager) newEditor(id EntryID, e Entry) *Editor {
	return NewEditor(id, e, EditorHooks{
		OnChange:    m.applyEdit,
		OnDelete:    m.RequestDelete,
		Generate:    m.generate,
		TokenLength: m.tokenLength,
	})
}

// applyEdit receives the full working copy of an editor.
func (m *Manager) applyEdit(id EntryID, e Entry) error {
	if !m.collection.Has(id) {
		return fmt.Errorf("%w: %d", ErrUnknownEntry, id)
	}
	return m.commit(m.collection.With(id, e))
}
