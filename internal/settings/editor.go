package settings

import (
	"fmt"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/token"
)

// ErrorText is shown above an entry while any of its fields is flagged.
const ErrorText = "Attribute cannot be empty."

// Editor is the form for a single entry. It keeps a working copy and the
// per-field error flags, and pushes the whole working copy upward on every
// change; there is no separate submit.
type Editor struct {
	id    EntryID
	entry Entry
	errs  map[Field]bool

	onChange    func(EntryID, Entry) error
	onDelete    func(EntryID)
	generate    token.Generator
	tokenLength int
}

// EditorHooks connects an editor to its owner.
type EditorHooks struct {
	OnChange    func(EntryID, Entry) error
	OnDelete    func(EntryID)
	Generate    token.Generator
	TokenLength int
}

// NewEditor starts an editor on a copy of entry with no fields flagged.
func NewEditor(id EntryID, entry Entry, hooks EditorHooks) *Editor {
	if hooks.Generate == nil {
		hooks.Generate = token.Secure
	}
	if hooks.TokenLength < token.MinLength {
		hooks.TokenLength = token.MinLength
	}
	return &Editor{
		id:          id,
		entry:       entry,
		errs:        make(map[Field]bool, len(EditableFields)),
		onChange:    hooks.OnChange,
		onDelete:    hooks.OnDelete,
		generate:    hooks.Generate,
		tokenLength: hooks.TokenLength,
	}
}

func (ed *Editor) ID() EntryID {
	return ed.id
}

func (ed *Editor) Entry() Entry {
	return ed.entry
}

// OnFieldChange stores raw exactly as typed and flags the field when it is
// blank. The change is forwarded even when invalid so typed input survives.
func (ed *Editor) OnFieldChange(f Field, raw string) error {
	if !f.Editable() {
		return fmt.Errorf("%w: %s", ErrFieldNotEditable, f)
	}

	ed.entry = ed.entry.Set(f, raw)
	ed.errs[f] = IsBlank(raw)

	return ed.forward()
}

// OnRegenerateToken replaces the token with a freshly generated one. The old
// token stops working as soon as the host saves.
func (ed *Editor) OnRegenerateToken() error {
	tok, err := ed.generate(ed.tokenLength)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	ed.entry.Token = tok
	return ed.forward()
}

func (ed *Editor) OnDeleteRequested() {
	if ed.onDelete != nil {
		ed.onDelete(ed.id)
	}
}

// FieldError reports whether f is currently flagged empty.
func (ed *Editor) FieldError(f Field) bool {
	return ed.errs[f]
}

// HasError is true while any editable field is flagged. The token is never
// flagged since the user cannot type it.
func (ed *Editor) HasError() bool {
	for _, f := range EditableFields {
		if ed.errs[f] {
			return true
		}
	}
	return false
}

func (ed *Editor) ErrorText() string {
	if ed.HasError() {
		return ErrorText
	}
	return ""
}

// absorb takes an update that reached the collection without going through
// this editor, refreshing flags for the editable fields it touched.
func (ed *Editor) absorb(p Patch, e Entry) {
	ed.entry = e
	for _, f := range EditableFields {
		if patched(p, f) {
			ed.errs[f] = IsBlank(e.Get(f))
		}
	}
}

func (ed *Editor) forward() error {
	if ed.onChange == nil {
		return nil
	}
	return ed.onChange(ed.id, ed.entry)
}

func patched(p Patch, f Field) bool {
	switch f {
	case FieldTeam:
		return p.Team != nil
	case FieldChannel:
		return p.Channel != nil
	case FieldToken:
		return p.Token != nil
	case FieldURL:
		return p.URL != nil
	}
	return false
}
