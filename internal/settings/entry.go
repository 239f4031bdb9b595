// Package settings holds the alert manager configuration form: the keyed
// collection of entries, the per-entry editors and the persisted value
// codec the host saves.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrFieldRequired    = errors.New("attribute cannot be empty")
	ErrUnknownField     = errors.New("unknown field")
	ErrFieldNotEditable = errors.New("field is not editable")
)

// Entry is one alert manager integration: alerts posted with Token are
// forwarded to Channel in Team, and URL points back at the alertmanager.
type Entry struct {
	Team    string `json:"team" jsonschema:"title=Team Name,description=Team name such as my-team (not the display name)"`
	Channel string `json:"channel" jsonschema:"title=Channel Name,description=Channel name such as town-square; created when missing"`
	Token   string `json:"token" jsonschema:"title=Token,description=Webhook token validated on every alertmanager request,pattern=^[A-Za-z0-9_-]*$"`
	URL     string `json:"url" jsonschema:"title=AlertManager URL,description=Base URL of the alertmanager instance,example=http://alertmanager.example.com/"`
}

type Field string

const (
	FieldTeam    Field = "team"
	FieldChannel Field = "channel"
	FieldToken   Field = "token"
	FieldURL     Field = "url"
)

// Fields lists every entry field in display order.
var Fields = []Field{FieldTeam, FieldChannel, FieldToken, FieldURL}

// EditableFields are the free-text fields a user types into. The token is
// generated, never typed.
var EditableFields = []Field{FieldTeam, FieldChannel, FieldURL}

func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldTeam, FieldChannel, FieldToken, FieldURL:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

func (f Field) Editable() bool {
	return f != FieldToken
}

// Get returns the value of field f.
func (e Entry) Get(f Field) string {
	switch f {
	case FieldTeam:
		return e.Team
	case FieldChannel:
		return e.Channel
	case FieldToken:
		return e.Token
	case FieldURL:
		return e.URL
	}
	return ""
}

// Set returns a copy of e with field f replaced by value.
func (e Entry) Set(f Field, value string) Entry {
	switch f {
	case FieldTeam:
		e.Team = value
	case FieldChannel:
		e.Channel = value
	case FieldToken:
		e.Token = value
	case FieldURL:
		e.URL = value
	}
	return e
}

// FieldError reports one required field that is empty.
type FieldError struct {
	Field Field
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, ErrFieldRequired)
}

func (e *FieldError) Unwrap() error {
	return ErrFieldRequired
}

// IsBlank reports whether s is empty once surrounding whitespace is ignored.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Validate checks that all four fields are set. Every missing field is
// reported, not just the first.
func (e Entry) Validate() error {
	var result *multierror.Error
	for _, f := range Fields {
		if IsBlank(e.Get(f)) {
			result = multierror.Append(result, &FieldError{Field: f})
		}
	}
	return result.ErrorOrNil()
}

func (e Entry) IsValid() bool {
	return e.Validate() == nil
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Team    *string `json:"team,omitempty"`
	Channel *string `json:"channel,omitempty"`
	Token   *string `json:"token,omitempty"`
	URL     *string `json:"url,omitempty"`
}

// Apply returns e with the non-nil fields of p merged in.
func (p Patch) Apply(e Entry) Entry {
	if p.Team != nil {
		e.Team = *p.Team
	}
	if p.Channel != nil {
		e.Channel = *p.Channel
	}
	if p.Token != nil {
		e.Token = *p.Token
	}
	if p.URL != nil {
		e.URL = *p.URL
	}
	return e
}

func (p Patch) IsEmpty() bool {
	return p.Team == nil && p.Channel == nil && p.Token == nil && p.URL == nil
}

// FieldLabel and FieldHelp are the texts the console renders next to each input.
func FieldLabel(f Field) string {
	switch f {
	case FieldTeam:
		return "Team Name:"
	case FieldChannel:
		return "Channel Name:"
	case FieldToken:
		return "Token:"
	case FieldURL:
		return "AlertManager URL:"
	}
	return ""
}

func FieldHelp(f Field) string {
	switch f {
	case FieldTeam:
		return "Team you want to send messages to. Use the team name such as 'my-team', instead of the display name."
	case FieldChannel:
		return "Channel you want to send messages to. Use the channel name such as 'town-square', instead of the display name. If you specify a channel that does not exist, this plugin creates a new channel with that name."
	case FieldToken:
		return "The token used to configure the webhook for AlertManager. The token is validated for each webhook request by the Mattermost server."
	case FieldURL:
		return "The URL of your AlertManager instance, e.g. 'http://alertmanager.example.com/'"
	}
	return ""
}
